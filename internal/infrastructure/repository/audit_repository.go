package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qmscore/quality-compliance-backend/internal/domain/auditing"
)

// AuditRepository persists audits.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `
	id, programa_id, codigo, alcance, estado, auditor_lider_id,
	formulario_lista_id, version_lista, informe_final, fecha_inicio,
	fecha_fin, activo, creado_por, creado_en, actualizado_en`

func (r *AuditRepository) GetByID(ctx context.Context, auditID uuid.UUID) (*auditing.Audit, error) {
	query := `SELECT` + auditColumns + `
		FROM auditorias
		WHERE id = $1 AND activo = TRUE`

	var a auditing.Audit
	err := querier(ctx, r.db).QueryRow(ctx, query, auditID).Scan(
		&a.ID, &a.ProgramID, &a.Code, &a.Scope, &a.Status, &a.LeadAuditorID,
		&a.ChecklistFormID, &a.ChecklistVersion, &a.FinalReport, &a.StartedAt,
		&a.EndedAt, &a.Active, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "audit")
	}
	return &a, nil
}

func (r *AuditRepository) Update(ctx context.Context, audit *auditing.Audit) error {
	query := `
		UPDATE auditorias SET
			alcance = $2, estado = $3, auditor_lider_id = $4,
			formulario_lista_id = $5, version_lista = $6, informe_final = $7,
			fecha_inicio = $8, fecha_fin = $9, actualizado_en = $10
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query,
		audit.ID, audit.Scope, audit.Status, audit.LeadAuditorID,
		audit.ChecklistFormID, audit.ChecklistVersion, audit.FinalReport,
		audit.StartedAt, audit.EndedAt, audit.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "audit")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "audit")
	}
	return nil
}

// ProgramRepository persists audit programs.
type ProgramRepository struct {
	db *pgxpool.Pool
}

func NewProgramRepository(db *pgxpool.Pool) *ProgramRepository {
	return &ProgramRepository{db: db}
}

func (r *ProgramRepository) GetByID(ctx context.Context, programID uuid.UUID) (*auditing.Program, error) {
	query := `
		SELECT id, codigo, nombre, anio, estado, activo, creado_por, creado_en, actualizado_en
		FROM programas_auditoria
		WHERE id = $1 AND activo = TRUE`

	var p auditing.Program
	err := querier(ctx, r.db).QueryRow(ctx, query, programID).Scan(
		&p.ID, &p.Code, &p.Name, &p.Year, &p.Status,
		&p.Active, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "audit program")
	}
	return &p, nil
}

func (r *ProgramRepository) Update(ctx context.Context, program *auditing.Program) error {
	query := `UPDATE programas_auditoria SET estado = $2, actualizado_en = $3
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query, program.ID, program.Status, program.UpdatedAt)
	if err != nil {
		return translateError(err, "audit program")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "audit program")
	}
	return nil
}

// FindingRepository persists audit findings.
type FindingRepository struct {
	db *pgxpool.Pool
}

func NewFindingRepository(db *pgxpool.Pool) *FindingRepository {
	return &FindingRepository{db: db}
}

const findingColumns = `
	id, auditoria_id, codigo, descripcion, tipo, no_conformidad_id,
	proceso_id, etapa_id, evidencia, estado, verificado_por,
	fecha_verificacion, resultado_verificacion, activo, creado_por,
	creado_en, actualizado_en`

func scanFinding(row pgx.Row) (*auditing.Finding, error) {
	var f auditing.Finding
	err := row.Scan(
		&f.ID, &f.AuditID, &f.Code, &f.Description, &f.Type, &f.NonConformityID,
		&f.ProcessID, &f.StageID, &f.Evidence, &f.Status, &f.VerifiedBy,
		&f.VerifiedAt, &f.VerificationResult, &f.Active, &f.CreatedBy,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FindingRepository) GetByID(ctx context.Context, findingID uuid.UUID) (*auditing.Finding, error) {
	query := `SELECT` + findingColumns + `
		FROM hallazgos_auditoria
		WHERE id = $1 AND activo = TRUE`

	f, err := scanFinding(querier(ctx, r.db).QueryRow(ctx, query, findingID))
	if err != nil {
		return nil, translateError(err, "finding")
	}
	return f, nil
}

func (r *FindingRepository) ListByAudit(ctx context.Context, auditID uuid.UUID) ([]*auditing.Finding, error) {
	query := `SELECT` + findingColumns + `
		FROM hallazgos_auditoria
		WHERE auditoria_id = $1 AND activo = TRUE
		ORDER BY codigo`

	rows, err := querier(ctx, r.db).Query(ctx, query, auditID)
	if err != nil {
		return nil, translateError(err, "finding")
	}
	defer rows.Close()

	var out []*auditing.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, translateError(err, "finding")
		}
		out = append(out, f)
	}
	return out, translateError(rows.Err(), "finding")
}

func (r *FindingRepository) CountByAudit(ctx context.Context, auditID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM hallazgos_auditoria
		WHERE auditoria_id = $1 AND activo = TRUE`

	var count int
	if err := querier(ctx, r.db).QueryRow(ctx, query, auditID).Scan(&count); err != nil {
		return 0, translateError(err, "finding")
	}
	return count, nil
}

func (r *FindingRepository) Save(ctx context.Context, finding *auditing.Finding) error {
	query := `
		INSERT INTO hallazgos_auditoria (
			id, auditoria_id, codigo, descripcion, tipo, no_conformidad_id,
			proceso_id, etapa_id, evidencia, estado, verificado_por,
			fecha_verificacion, resultado_verificacion, activo, creado_por,
			creado_en, actualizado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		finding.ID, finding.AuditID, finding.Code, finding.Description,
		finding.Type, finding.NonConformityID, finding.ProcessID, finding.StageID,
		finding.Evidence, finding.Status, finding.VerifiedBy, finding.VerifiedAt,
		finding.VerificationResult, finding.Active, finding.CreatedBy,
		finding.CreatedAt, finding.UpdatedAt,
	)
	return translateError(err, "finding")
}

func (r *FindingRepository) Update(ctx context.Context, finding *auditing.Finding) error {
	query := `
		UPDATE hallazgos_auditoria SET
			descripcion = $2, tipo = $3, no_conformidad_id = $4, evidencia = $5,
			estado = $6, verificado_por = $7, fecha_verificacion = $8,
			resultado_verificacion = $9, actualizado_en = $10
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query,
		finding.ID, finding.Description, finding.Type, finding.NonConformityID,
		finding.Evidence, finding.Status, finding.VerifiedBy, finding.VerifiedAt,
		finding.VerificationResult, finding.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "finding")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "finding")
	}
	return nil
}

// ChecklistRepository reads checklist field definitions and recorded
// answers. Field definitions are versioned snapshots maintained elsewhere;
// this core only consults them for the closure gate.
type ChecklistRepository struct {
	db *pgxpool.Pool
}

func NewChecklistRepository(db *pgxpool.Pool) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

func (r *ChecklistRepository) ListFields(ctx context.Context, formID uuid.UUID, version int) ([]*auditing.ChecklistField, error) {
	query := `
		SELECT id, formulario_id, nombre, etiqueta, obligatorio,
			requiere_evidencia, posicion, activo, creado_en
		FROM campos_lista_verificacion
		WHERE formulario_id = $1 AND version = $2 AND activo = TRUE
		ORDER BY posicion`

	rows, err := querier(ctx, r.db).Query(ctx, query, formID, version)
	if err != nil {
		return nil, translateError(err, "checklist field")
	}
	defer rows.Close()

	var out []*auditing.ChecklistField
	for rows.Next() {
		var f auditing.ChecklistField
		if err := rows.Scan(&f.ID, &f.FormID, &f.Name, &f.Label, &f.Required,
			&f.EvidenceRequired, &f.Position, &f.Active, &f.CreatedAt); err != nil {
			return nil, translateError(err, "checklist field")
		}
		out = append(out, &f)
	}
	return out, translateError(rows.Err(), "checklist field")
}

func (r *ChecklistRepository) ListAnswers(ctx context.Context, auditID uuid.UUID) ([]*auditing.ChecklistAnswer, error) {
	query := `
		SELECT id, campo_id, auditoria_id, valor, referencia_evidencia,
			respondido_por, respondido_en, activo
		FROM respuestas_lista_verificacion
		WHERE auditoria_id = $1 AND activo = TRUE`

	rows, err := querier(ctx, r.db).Query(ctx, query, auditID)
	if err != nil {
		return nil, translateError(err, "checklist answer")
	}
	defer rows.Close()

	var out []*auditing.ChecklistAnswer
	for rows.Next() {
		var a auditing.ChecklistAnswer
		if err := rows.Scan(&a.ID, &a.FieldID, &a.AuditID, &a.Value,
			&a.EvidenceRef, &a.AnsweredBy, &a.AnsweredAt, &a.Active); err != nil {
			return nil, translateError(err, "checklist answer")
		}
		out = append(out, &a)
	}
	return out, translateError(rows.Err(), "checklist answer")
}

// StateHistoryRepository appends immutable state-transition rows.
type StateHistoryRepository struct {
	db *pgxpool.Pool
}

func NewStateHistoryRepository(db *pgxpool.Pool) *StateHistoryRepository {
	return &StateHistoryRepository{db: db}
}

func (r *StateHistoryRepository) Append(ctx context.Context, entry *auditing.StateHistory) error {
	query := `
		INSERT INTO historial_estados (
			id, tipo_entidad, entidad_id, estado_anterior, estado_nuevo,
			actor_id, comentario, creado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		entry.ID, entry.EntityType, entry.EntityID, entry.PrevState,
		entry.NewState, entry.ActorID, entry.Comment, entry.CreatedAt,
	)
	return translateError(err, "state history")
}
