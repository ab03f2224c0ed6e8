package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
)

// EvaluationRepository persists competency evaluations.
type EvaluationRepository struct {
	db *pgxpool.Pool
}

func NewEvaluationRepository(db *pgxpool.Pool) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

const evaluationColumns = `
	id, usuario_id, competencia_id, nivel, estado, fecha_evaluacion,
	evaluador_id, observaciones, activo, creado_en`

func (r *EvaluationRepository) LatestForPerson(ctx context.Context, personID, competencyID uuid.UUID) (*competency.Evaluation, error) {
	query := `SELECT` + evaluationColumns + `
		FROM evaluaciones_competencia
		WHERE usuario_id = $1 AND competencia_id = $2 AND activo = TRUE
		ORDER BY fecha_evaluacion DESC, creado_en DESC
		LIMIT 1`

	var e competency.Evaluation
	err := querier(ctx, r.db).QueryRow(ctx, query, personID, competencyID).Scan(
		&e.ID, &e.PersonID, &e.CompetencyID, &e.Level, &e.State,
		&e.EvaluatedAt, &e.EvaluatorID, &e.Observations, &e.Active, &e.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err, "competency evaluation")
	}
	return &e, nil
}

func (r *EvaluationRepository) Save(ctx context.Context, eval *competency.Evaluation) error {
	query := `
		INSERT INTO evaluaciones_competencia (
			id, usuario_id, competencia_id, nivel, estado, fecha_evaluacion,
			evaluador_id, observaciones, activo, creado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		eval.ID, eval.PersonID, eval.CompetencyID, eval.Level, eval.State,
		eval.EvaluatedAt, eval.EvaluatorID, eval.Observations, eval.Active, eval.CreatedAt,
	)
	return translateError(err, "competency evaluation")
}

// GapRepository persists competency gaps. FindOpenByKey treats absent stage
// and risk references as part of the composite key, matching only rows where
// the same reference is absent.
type GapRepository struct {
	db *pgxpool.Pool
}

func NewGapRepository(db *pgxpool.Pool) *GapRepository {
	return &GapRepository{db: db}
}

const gapColumns = `
	id, usuario_id, competencia_id, etapa_id, riesgo_id, nivel_requerido,
	nivel_actual, nivel_riesgo, estado, capacitacion_id, detectado_en,
	resuelto_en, activo, creado_en, actualizado_en`

func scanGap(row pgx.Row) (*competency.Gap, error) {
	var g competency.Gap
	err := row.Scan(
		&g.ID, &g.PersonID, &g.CompetencyID, &g.StageID, &g.RiskID,
		&g.RequiredLevel, &g.CurrentLevel, &g.RiskLevel, &g.Status,
		&g.TrainingID, &g.DetectedAt, &g.ResolvedAt,
		&g.Active, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GapRepository) FindOpenByKey(ctx context.Context, key competency.GapKey) (*competency.Gap, error) {
	query := `SELECT` + gapColumns + `
		FROM brechas_competencia
		WHERE usuario_id = $1 AND competencia_id = $2
		  AND etapa_id IS NOT DISTINCT FROM $3
		  AND riesgo_id IS NOT DISTINCT FROM $4
		  AND estado = ANY($5) AND activo = TRUE
		LIMIT 1`

	g, err := scanGap(querier(ctx, r.db).QueryRow(ctx, query,
		key.PersonID, key.CompetencyID, key.StageID, key.RiskID, openGapStates()))
	if err != nil {
		return nil, translateError(err, "competency gap")
	}
	return g, nil
}

func (r *GapRepository) LatestOpenForPerson(ctx context.Context, personID, competencyID uuid.UUID) (*competency.Gap, error) {
	query := `SELECT` + gapColumns + `
		FROM brechas_competencia
		WHERE usuario_id = $1 AND competencia_id = $2
		  AND estado = ANY($3) AND activo = TRUE
		ORDER BY creado_en DESC
		LIMIT 1`

	g, err := scanGap(querier(ctx, r.db).QueryRow(ctx, query, personID, competencyID, openGapStates()))
	if err != nil {
		return nil, translateError(err, "competency gap")
	}
	return g, nil
}

func (r *GapRepository) CloseMatching(ctx context.Context, personID, competencyID uuid.UUID, stageID, riskID *uuid.UUID, observed competency.Level, at time.Time) error {
	query := `
		UPDATE brechas_competencia
		SET estado = $1, nivel_actual = $2, resuelto_en = $3, actualizado_en = $3
		WHERE usuario_id = $4 AND competencia_id = $5
		  AND ($6::uuid IS NULL OR etapa_id = $6)
		  AND ($7::uuid IS NULL OR riesgo_id = $7)
		  AND estado = ANY($8) AND activo = TRUE`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		competency.GapStatusClosed, observed, at,
		personID, competencyID, stageID, riskID, openGapStates(),
	)
	return translateError(err, "competency gap")
}

func (r *GapRepository) Save(ctx context.Context, gap *competency.Gap) error {
	query := `
		INSERT INTO brechas_competencia (
			id, usuario_id, competencia_id, etapa_id, riesgo_id, nivel_requerido,
			nivel_actual, nivel_riesgo, estado, capacitacion_id, detectado_en,
			resuelto_en, activo, creado_en, actualizado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		gap.ID, gap.PersonID, gap.CompetencyID, gap.StageID, gap.RiskID,
		gap.RequiredLevel, gap.CurrentLevel, gap.RiskLevel, gap.Status,
		gap.TrainingID, gap.DetectedAt, gap.ResolvedAt,
		gap.Active, gap.CreatedAt, gap.UpdatedAt,
	)
	return translateError(err, "competency gap")
}

func (r *GapRepository) Update(ctx context.Context, gap *competency.Gap) error {
	query := `
		UPDATE brechas_competencia SET
			nivel_requerido = $2, nivel_actual = $3, nivel_riesgo = $4,
			estado = $5, capacitacion_id = $6, detectado_en = $7,
			resuelto_en = $8, actualizado_en = $9
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query,
		gap.ID, gap.RequiredLevel, gap.CurrentLevel, gap.RiskLevel,
		gap.Status, gap.TrainingID, gap.DetectedAt,
		gap.ResolvedAt, gap.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "competency gap")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "competency gap")
	}
	return nil
}

func (r *GapRepository) ListOpenByTraining(ctx context.Context, personID, trainingID uuid.UUID) ([]*competency.Gap, error) {
	query := `SELECT` + gapColumns + `
		FROM brechas_competencia
		WHERE usuario_id = $1 AND capacitacion_id = $2
		  AND estado = ANY($3) AND activo = TRUE`

	rows, err := querier(ctx, r.db).Query(ctx, query, personID, trainingID, openGapStates())
	if err != nil {
		return nil, translateError(err, "competency gap")
	}
	defer rows.Close()

	return collectGaps(rows)
}

func (r *GapRepository) ListByTraining(ctx context.Context, personID, trainingID uuid.UUID) ([]*competency.Gap, error) {
	query := `SELECT` + gapColumns + `
		FROM brechas_competencia
		WHERE usuario_id = $1 AND capacitacion_id = $2 AND activo = TRUE`

	rows, err := querier(ctx, r.db).Query(ctx, query, personID, trainingID)
	if err != nil {
		return nil, translateError(err, "competency gap")
	}
	defer rows.Close()

	return collectGaps(rows)
}

func collectGaps(rows pgx.Rows) ([]*competency.Gap, error) {
	var out []*competency.Gap
	for rows.Next() {
		g, err := scanGap(rows)
		if err != nil {
			return nil, translateError(err, "competency gap")
		}
		out = append(out, g)
	}
	return out, translateError(rows.Err(), "competency gap")
}

func openGapStates() []string {
	states := make([]string, len(competency.OpenGapStatuses))
	for i, s := range competency.OpenGapStatuses {
		states[i] = string(s)
	}
	return states
}

// PersonRepository checks person references.
type PersonRepository struct {
	db *pgxpool.Pool
}

func NewPersonRepository(db *pgxpool.Pool) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Exists(ctx context.Context, personID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM usuarios WHERE id = $1 AND activo = TRUE
	)`

	var exists bool
	if err := querier(ctx, r.db).QueryRow(ctx, query, personID).Scan(&exists); err != nil {
		return false, translateError(err, "person")
	}
	return exists, nil
}

// CompetencyRepository checks competency references.
type CompetencyRepository struct {
	db *pgxpool.Pool
}

func NewCompetencyRepository(db *pgxpool.Pool) *CompetencyRepository {
	return &CompetencyRepository{db: db}
}

func (r *CompetencyRepository) Exists(ctx context.Context, competencyID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM competencias WHERE id = $1 AND activo = TRUE
	)`

	var exists bool
	if err := querier(ctx, r.db).QueryRow(ctx, query, competencyID).Scan(&exists); err != nil {
		return false, translateError(err, "competency")
	}
	return exists, nil
}
