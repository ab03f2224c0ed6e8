package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qmscore/quality-compliance-backend/internal/domain/quality"
)

// NonConformityRepository persists non-conformities.
type NonConformityRepository struct {
	db *pgxpool.Pool
}

func NewNonConformityRepository(db *pgxpool.Pool) *NonConformityRepository {
	return &NonConformityRepository{db: db}
}

const nonConformityColumns = `
	id, codigo, descripcion, proceso_id, tipo, fuente, detectado_por,
	fecha_deteccion, severidad, estado, causa_raiz, plan_accion, evidencia,
	responsable_id, fecha_cierre, activo, creado_por, creado_en, actualizado_en`

func (r *NonConformityRepository) GetByID(ctx context.Context, ncID uuid.UUID) (*quality.NonConformity, error) {
	query := `SELECT` + nonConformityColumns + `
		FROM no_conformidades
		WHERE id = $1 AND activo = TRUE`

	var nc quality.NonConformity
	err := querier(ctx, r.db).QueryRow(ctx, query, ncID).Scan(
		&nc.ID, &nc.Code, &nc.Description, &nc.ProcessID, &nc.Type, &nc.Source,
		&nc.DetectedBy, &nc.DetectedAt, &nc.Severity, &nc.Status, &nc.RootCause,
		&nc.ActionPlan, &nc.Evidence, &nc.ResponsibleID, &nc.ClosedAt,
		&nc.Active, &nc.CreatedBy, &nc.CreatedAt, &nc.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "non-conformity")
	}
	return &nc, nil
}

func (r *NonConformityRepository) Save(ctx context.Context, nc *quality.NonConformity) error {
	query := `
		INSERT INTO no_conformidades (
			id, codigo, descripcion, proceso_id, tipo, fuente, detectado_por,
			fecha_deteccion, severidad, estado, causa_raiz, plan_accion, evidencia,
			responsable_id, fecha_cierre, activo, creado_por, creado_en, actualizado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		nc.ID, nc.Code, nc.Description, nc.ProcessID, nc.Type, nc.Source,
		nc.DetectedBy, nc.DetectedAt, nc.Severity, nc.Status, nc.RootCause,
		nc.ActionPlan, nc.Evidence, nc.ResponsibleID, nc.ClosedAt,
		nc.Active, nc.CreatedBy, nc.CreatedAt, nc.UpdatedAt,
	)
	return translateError(err, "non-conformity")
}

func (r *NonConformityRepository) Update(ctx context.Context, nc *quality.NonConformity) error {
	query := `
		UPDATE no_conformidades SET
			descripcion = $2, tipo = $3, fuente = $4, severidad = $5, estado = $6,
			causa_raiz = $7, plan_accion = $8, evidencia = $9, responsable_id = $10,
			fecha_cierre = $11, actualizado_en = $12
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query,
		nc.ID, nc.Description, nc.Type, nc.Source, nc.Severity, nc.Status,
		nc.RootCause, nc.ActionPlan, nc.Evidence, nc.ResponsibleID,
		nc.ClosedAt, nc.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "non-conformity")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "non-conformity")
	}
	return nil
}

// NextSequence allocates the next global non-conformity number.
func (r *NonConformityRepository) NextSequence(ctx context.Context) (int, error) {
	var seq int
	if err := querier(ctx, r.db).QueryRow(ctx, `SELECT nextval('no_conformidades_seq')`).Scan(&seq); err != nil {
		return 0, translateError(err, "non-conformity")
	}
	return seq, nil
}

// CorrectiveActionRepository persists corrective actions.
type CorrectiveActionRepository struct {
	db *pgxpool.Pool
}

func NewCorrectiveActionRepository(db *pgxpool.Pool) *CorrectiveActionRepository {
	return &CorrectiveActionRepository{db: db}
}

const correctiveActionColumns = `
	id, no_conformidad_id, codigo, tipo, descripcion, analisis_causa_raiz,
	plan_accion, evidencia_implementacion, responsable_id, fecha_compromiso,
	fecha_implementacion, estado, puntaje_eficacia, verificado_por,
	fecha_verificacion, observaciones, activo, creado_por, creado_en, actualizado_en`

func (r *CorrectiveActionRepository) GetByID(ctx context.Context, actionID uuid.UUID) (*quality.CorrectiveAction, error) {
	query := `SELECT` + correctiveActionColumns + `
		FROM acciones_correctivas
		WHERE id = $1 AND activo = TRUE`

	var a quality.CorrectiveAction
	err := querier(ctx, r.db).QueryRow(ctx, query, actionID).Scan(
		&a.ID, &a.NonConformityID, &a.Code, &a.Type, &a.Description,
		&a.RootCauseAnalysis, &a.ActionPlan, &a.Evidence, &a.ResponsibleID,
		&a.CommittedAt, &a.ImplementedAt, &a.Status, &a.EffectivenessScore,
		&a.VerifiedBy, &a.VerifiedAt, &a.Observations,
		&a.Active, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "corrective action")
	}
	return &a, nil
}

func (r *CorrectiveActionRepository) Save(ctx context.Context, action *quality.CorrectiveAction) error {
	query := `
		INSERT INTO acciones_correctivas (
			id, no_conformidad_id, codigo, tipo, descripcion, analisis_causa_raiz,
			plan_accion, evidencia_implementacion, responsable_id, fecha_compromiso,
			fecha_implementacion, estado, puntaje_eficacia, verificado_por,
			fecha_verificacion, observaciones, activo, creado_por, creado_en, actualizado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		action.ID, action.NonConformityID, action.Code, action.Type, action.Description,
		action.RootCauseAnalysis, action.ActionPlan, action.Evidence, action.ResponsibleID,
		action.CommittedAt, action.ImplementedAt, action.Status, action.EffectivenessScore,
		action.VerifiedBy, action.VerifiedAt, action.Observations,
		action.Active, action.CreatedBy, action.CreatedAt, action.UpdatedAt,
	)
	return translateError(err, "corrective action")
}

func (r *CorrectiveActionRepository) Update(ctx context.Context, action *quality.CorrectiveAction) error {
	query := `
		UPDATE acciones_correctivas SET
			descripcion = $2, analisis_causa_raiz = $3, plan_accion = $4,
			evidencia_implementacion = $5, responsable_id = $6, fecha_compromiso = $7,
			fecha_implementacion = $8, estado = $9, puntaje_eficacia = $10,
			verificado_por = $11, fecha_verificacion = $12, observaciones = $13,
			actualizado_en = $14
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query,
		action.ID, action.Description, action.RootCauseAnalysis, action.ActionPlan,
		action.Evidence, action.ResponsibleID, action.CommittedAt,
		action.ImplementedAt, action.Status, action.EffectivenessScore,
		action.VerifiedBy, action.VerifiedAt, action.Observations, action.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "corrective action")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "corrective action")
	}
	return nil
}

func (r *CorrectiveActionRepository) CountByNonConformity(ctx context.Context, ncID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM acciones_correctivas
		WHERE no_conformidad_id = $1 AND activo = TRUE`

	var count int
	if err := querier(ctx, r.db).QueryRow(ctx, query, ncID).Scan(&count); err != nil {
		return 0, translateError(err, "corrective action")
	}
	return count, nil
}
