package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qmscore/quality-compliance-backend/internal/domain/process"
)

// ProcessRepository checks process references.
type ProcessRepository struct {
	db *pgxpool.Pool
}

func NewProcessRepository(db *pgxpool.Pool) *ProcessRepository {
	return &ProcessRepository{db: db}
}

func (r *ProcessRepository) Exists(ctx context.Context, processID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM procesos WHERE id = $1 AND activo = TRUE
	)`

	var exists bool
	if err := querier(ctx, r.db).QueryRow(ctx, query, processID).Scan(&exists); err != nil {
		return false, translateError(err, "process")
	}
	return exists, nil
}

// StageRepository reads process stages.
type StageRepository struct {
	db *pgxpool.Pool
}

func NewStageRepository(db *pgxpool.Pool) *StageRepository {
	return &StageRepository{db: db}
}

func (r *StageRepository) ListActiveByProcess(ctx context.Context, processID uuid.UUID) ([]*process.Stage, error) {
	query := `
		SELECT id, proceso_id, nombre, posicion, habilitada, activo, creado_en
		FROM etapas_proceso
		WHERE proceso_id = $1 AND habilitada = TRUE AND activo = TRUE
		ORDER BY posicion`

	rows, err := querier(ctx, r.db).Query(ctx, query, processID)
	if err != nil {
		return nil, translateError(err, "process stage")
	}
	defer rows.Close()

	var out []*process.Stage
	for rows.Next() {
		var s process.Stage
		if err := rows.Scan(&s.ID, &s.ProcessID, &s.Name, &s.Position,
			&s.Enabled, &s.Active, &s.CreatedAt); err != nil {
			return nil, translateError(err, "process stage")
		}
		out = append(out, &s)
	}
	return out, translateError(rows.Err(), "process stage")
}

// StageRequirementRepository reads the baseline competency requirements
// stages declare.
type StageRequirementRepository struct {
	db *pgxpool.Pool
}

func NewStageRequirementRepository(db *pgxpool.Pool) *StageRequirementRepository {
	return &StageRequirementRepository{db: db}
}

const stageRequirementColumns = `
	id, etapa_id, competencia_id, nivel_requerido, activo, creado_en`

func (r *StageRequirementRepository) ListActiveByStage(ctx context.Context, stageID uuid.UUID) ([]*process.StageRequirement, error) {
	query := `SELECT` + stageRequirementColumns + `
		FROM requisitos_competencia_etapa
		WHERE etapa_id = $1 AND activo = TRUE`

	rows, err := querier(ctx, r.db).Query(ctx, query, stageID)
	if err != nil {
		return nil, translateError(err, "stage requirement")
	}
	defer rows.Close()

	var out []*process.StageRequirement
	for rows.Next() {
		var req process.StageRequirement
		if err := rows.Scan(&req.ID, &req.StageID, &req.CompetencyID,
			&req.RequiredLevel, &req.Active, &req.CreatedAt); err != nil {
			return nil, translateError(err, "stage requirement")
		}
		out = append(out, &req)
	}
	return out, translateError(rows.Err(), "stage requirement")
}

func (r *StageRequirementRepository) FindForResponsiblePerson(ctx context.Context, personID, competencyID uuid.UUID) (*process.StageRequirement, error) {
	query := `SELECT req.id, req.etapa_id, req.competencia_id, req.nivel_requerido,
			req.activo, req.creado_en
		FROM requisitos_competencia_etapa req
		JOIN etapas_proceso e ON e.id = req.etapa_id AND e.activo = TRUE
		JOIN responsables_proceso rp ON rp.proceso_id = e.proceso_id
			AND rp.activo = TRUE
			AND (rp.valido_hasta IS NULL OR rp.valido_hasta > NOW())
		WHERE rp.usuario_id = $1 AND req.competencia_id = $2 AND req.activo = TRUE
		ORDER BY req.creado_en DESC
		LIMIT 1`

	var req process.StageRequirement
	err := querier(ctx, r.db).QueryRow(ctx, query, personID, competencyID).Scan(
		&req.ID, &req.StageID, &req.CompetencyID, &req.RequiredLevel,
		&req.Active, &req.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err, "stage requirement")
	}
	return &req, nil
}

func (r *StageRequirementRepository) ListStagesRequiringCompetency(ctx context.Context, personID, competencyID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT req.etapa_id
		FROM requisitos_competencia_etapa req
		JOIN etapas_proceso e ON e.id = req.etapa_id AND e.activo = TRUE
		JOIN responsables_proceso rp ON rp.proceso_id = e.proceso_id
			AND rp.activo = TRUE
			AND (rp.valido_hasta IS NULL OR rp.valido_hasta > NOW())
		WHERE rp.usuario_id = $1 AND req.competencia_id = $2 AND req.activo = TRUE`

	rows, err := querier(ctx, r.db).Query(ctx, query, personID, competencyID)
	if err != nil {
		return nil, translateError(err, "stage requirement")
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, translateError(err, "stage requirement")
		}
		out = append(out, id)
	}
	return out, translateError(rows.Err(), "stage requirement")
}

// AssignmentRepository resolves the people currently assigned to a process:
// valid responsibles plus active participants of active instances.
type AssignmentRepository struct {
	db *pgxpool.Pool
}

func NewAssignmentRepository(db *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) ListAssignedPeople(ctx context.Context, processID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT rp.usuario_id
		FROM responsables_proceso rp
		WHERE rp.proceso_id = $1 AND rp.activo = TRUE
		  AND (rp.valido_hasta IS NULL OR rp.valido_hasta > NOW())
		UNION
		SELECT p.usuario_id
		FROM participantes_instancia p
		JOIN instancias_proceso i ON i.id = p.instancia_id AND i.activo = TRUE
		WHERE i.proceso_id = $1 AND p.activo = TRUE`

	rows, err := querier(ctx, r.db).Query(ctx, query, processID)
	if err != nil {
		return nil, translateError(err, "process assignment")
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, translateError(err, "process assignment")
		}
		out = append(out, id)
	}
	return out, translateError(rows.Err(), "process assignment")
}

// ProcessActionRepository persists process actions, including the preventive
// actions the automation engine raises.
type ProcessActionRepository struct {
	db *pgxpool.Pool
}

func NewProcessActionRepository(db *pgxpool.Pool) *ProcessActionRepository {
	return &ProcessActionRepository{db: db}
}

func (r *ProcessActionRepository) HasActiveByOrigin(ctx context.Context, processID uuid.UUID, origin string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM acciones_proceso
		WHERE proceso_id = $1 AND origen = $2 AND estado = ANY($3) AND activo = TRUE
	)`

	states := make([]string, len(process.OpenActionStatuses))
	for i, s := range process.OpenActionStatuses {
		states[i] = string(s)
	}

	var exists bool
	if err := querier(ctx, r.db).QueryRow(ctx, query, processID, origin, states).Scan(&exists); err != nil {
		return false, translateError(err, "process action")
	}
	return exists, nil
}

// CodeExists checks the code against every row, soft-deleted included, so
// a retried code never collides with the unique index.
func (r *ProcessActionRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM acciones_proceso WHERE codigo = $1
	)`

	var exists bool
	if err := querier(ctx, r.db).QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, translateError(err, "process action")
	}
	return exists, nil
}

func (r *ProcessActionRepository) Save(ctx context.Context, action *process.Action) error {
	query := `
		INSERT INTO acciones_proceso (
			id, proceso_id, codigo, nombre, descripcion, tipo_accion, origen,
			responsable_id, fecha_planificada, estado, activo, creado_por,
			creado_en, actualizado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		action.ID, action.ProcessID, action.Code, action.Name, action.Description,
		action.ActionType, action.Origin, action.ResponsibleID, action.PlannedAt,
		action.Status, action.Active, action.CreatedBy,
		action.CreatedAt, action.UpdatedAt,
	)
	return translateError(err, "process action")
}
