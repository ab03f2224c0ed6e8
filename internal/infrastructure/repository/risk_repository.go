package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
)

// RiskRepository persists risks, their controls and the critical-competency
// mappings. It serves both the scoring service and the automation engine.
type RiskRepository struct {
	db *pgxpool.Pool
}

func NewRiskRepository(db *pgxpool.Pool) *RiskRepository {
	return &RiskRepository{db: db}
}

const riskColumns = `
	id, proceso_id, etapa_id, codigo, descripcion, categoria, tipo_riesgo,
	probabilidad, impacto, nivel, nivel_residual, causas, consecuencias,
	responsable_id, estado, fecha_identificacion, fecha_revision, tratamiento,
	activo, creado_por, creado_en, actualizado_en`

func scanRisk(row pgx.Row) (*risk.Risk, error) {
	var r risk.Risk
	err := row.Scan(
		&r.ID, &r.ProcessID, &r.StageID, &r.Code, &r.Description, &r.Category,
		&r.RiskType, &r.Probability, &r.Impact, &r.Level, &r.ResidualLevel,
		&r.Causes, &r.Consequences, &r.ResponsibleID, &r.Status,
		&r.IdentifiedAt, &r.ReviewedAt, &r.Treatment,
		&r.Active, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *RiskRepository) GetByID(ctx context.Context, riskID uuid.UUID) (*risk.Risk, error) {
	query := `SELECT` + riskColumns + `
		FROM riesgos
		WHERE id = $1 AND activo = TRUE`

	out, err := scanRisk(querier(ctx, r.db).QueryRow(ctx, query, riskID))
	if err != nil {
		return nil, translateError(err, "risk")
	}
	return out, nil
}

// GetActive is GetByID under the name the automation engine asks for.
func (r *RiskRepository) GetActive(ctx context.Context, riskID uuid.UUID) (*risk.Risk, error) {
	return r.GetByID(ctx, riskID)
}

func (r *RiskRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM riesgos WHERE codigo = $1 AND activo = TRUE
	)`

	var exists bool
	if err := querier(ctx, r.db).QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, translateError(err, "risk")
	}
	return exists, nil
}

func (r *RiskRepository) Save(ctx context.Context, rk *risk.Risk) error {
	query := `
		INSERT INTO riesgos (
			id, proceso_id, etapa_id, codigo, descripcion, categoria, tipo_riesgo,
			probabilidad, impacto, nivel, nivel_residual, causas, consecuencias,
			responsable_id, estado, fecha_identificacion, fecha_revision, tratamiento,
			activo, creado_por, creado_en, actualizado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		rk.ID, rk.ProcessID, rk.StageID, rk.Code, rk.Description, rk.Category,
		rk.RiskType, rk.Probability, rk.Impact, rk.Level, rk.ResidualLevel,
		rk.Causes, rk.Consequences, rk.ResponsibleID, rk.Status,
		rk.IdentifiedAt, rk.ReviewedAt, rk.Treatment,
		rk.Active, rk.CreatedBy, rk.CreatedAt, rk.UpdatedAt,
	)
	return translateError(err, "risk")
}

func (r *RiskRepository) Update(ctx context.Context, rk *risk.Risk) error {
	query := `
		UPDATE riesgos SET
			descripcion = $2, categoria = $3, tipo_riesgo = $4,
			probabilidad = $5, impacto = $6, nivel = $7, nivel_residual = $8,
			causas = $9, consecuencias = $10, responsable_id = $11, estado = $12,
			fecha_revision = $13, tratamiento = $14, actualizado_en = $15
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query,
		rk.ID, rk.Description, rk.Category, rk.RiskType,
		rk.Probability, rk.Impact, rk.Level, rk.ResidualLevel,
		rk.Causes, rk.Consequences, rk.ResponsibleID, rk.Status,
		rk.ReviewedAt, rk.Treatment, rk.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "risk")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "risk")
	}
	return nil
}

func (r *RiskRepository) SoftDelete(ctx context.Context, riskID uuid.UUID, at time.Time) error {
	query := `UPDATE riesgos SET activo = FALSE, actualizado_en = $2
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query, riskID, at)
	if err != nil {
		return translateError(err, "risk")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "risk")
	}
	return nil
}

func (r *RiskRepository) UpdateResidualLevel(ctx context.Context, riskID uuid.UUID, residual *int) error {
	query := `UPDATE riesgos SET nivel_residual = $2, actualizado_en = NOW()
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query, riskID, residual)
	if err != nil {
		return translateError(err, "risk")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "risk")
	}
	return nil
}

func (r *RiskRepository) ListActiveByStage(ctx context.Context, stageID uuid.UUID) ([]*risk.Risk, error) {
	query := `SELECT` + riskColumns + `
		FROM riesgos
		WHERE etapa_id = $1 AND estado = $2 AND activo = TRUE
		ORDER BY codigo`

	rows, err := querier(ctx, r.db).Query(ctx, query, stageID, risk.StatusActive)
	if err != nil {
		return nil, translateError(err, "risk")
	}
	defer rows.Close()

	return collectRisks(rows)
}

func (r *RiskRepository) ListActiveByCriticalCompetency(ctx context.Context, competencyID uuid.UUID) ([]*risk.Risk, error) {
	query := `SELECT` + riskColumns + `
		FROM riesgos r
		WHERE r.estado = $2 AND r.activo = TRUE
		  AND EXISTS (
			SELECT 1 FROM competencias_criticas_riesgo cc
			WHERE cc.riesgo_id = r.id AND cc.competencia_id = $1 AND cc.activo = TRUE
		  )
		ORDER BY r.codigo`

	rows, err := querier(ctx, r.db).Query(ctx, query, competencyID, risk.StatusActive)
	if err != nil {
		return nil, translateError(err, "risk")
	}
	defer rows.Close()

	return collectRisks(rows)
}

func collectRisks(rows pgx.Rows) ([]*risk.Risk, error) {
	var out []*risk.Risk
	for rows.Next() {
		rk, err := scanRisk(rows)
		if err != nil {
			return nil, translateError(err, "risk")
		}
		out = append(out, rk)
	}
	return out, translateError(rows.Err(), "risk")
}

func (r *RiskRepository) CountActiveControls(ctx context.Context, riskID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM controles_riesgo
		WHERE riesgo_id = $1 AND activo = TRUE`

	var count int
	if err := querier(ctx, r.db).QueryRow(ctx, query, riskID).Scan(&count); err != nil {
		return 0, translateError(err, "risk control")
	}
	return count, nil
}

func (r *RiskRepository) GetControl(ctx context.Context, controlID uuid.UUID) (*risk.Control, error) {
	query := `
		SELECT id, riesgo_id, descripcion, tipo_control, frecuencia,
			responsable_id, eficacia, activo, creado_por, creado_en, actualizado_en
		FROM controles_riesgo
		WHERE id = $1 AND activo = TRUE`

	var c risk.Control
	err := querier(ctx, r.db).QueryRow(ctx, query, controlID).Scan(
		&c.ID, &c.RiskID, &c.Description, &c.ControlType, &c.Frequency,
		&c.ResponsibleID, &c.Effectiveness, &c.Active, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "risk control")
	}
	return &c, nil
}

func (r *RiskRepository) SaveControl(ctx context.Context, c *risk.Control) error {
	query := `
		INSERT INTO controles_riesgo (
			id, riesgo_id, descripcion, tipo_control, frecuencia,
			responsable_id, eficacia, activo, creado_por, creado_en, actualizado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		c.ID, c.RiskID, c.Description, c.ControlType, c.Frequency,
		c.ResponsibleID, c.Effectiveness, c.Active, c.CreatedBy,
		c.CreatedAt, c.UpdatedAt,
	)
	return translateError(err, "risk control")
}

func (r *RiskRepository) SoftDeleteControl(ctx context.Context, controlID uuid.UUID, at time.Time) error {
	query := `UPDATE controles_riesgo SET activo = FALSE, actualizado_en = $2
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query, controlID, at)
	if err != nil {
		return translateError(err, "risk control")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "risk control")
	}
	return nil
}

// RiskHistoryRepository appends immutable risk evaluation records.
type RiskHistoryRepository struct {
	db *pgxpool.Pool
}

func NewRiskHistoryRepository(db *pgxpool.Pool) *RiskHistoryRepository {
	return &RiskHistoryRepository{db: db}
}

func (r *RiskHistoryRepository) Append(ctx context.Context, record *risk.EvaluationRecord) error {
	query := `
		INSERT INTO historial_evaluaciones_riesgo (
			id, riesgo_id, probabilidad_anterior, impacto_anterior, nivel_anterior,
			probabilidad_nueva, impacto_nuevo, nivel_nuevo, justificacion,
			evaluado_por, evaluado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		record.ID, record.RiskID, record.PrevProbability, record.PrevImpact,
		record.PrevLevel, record.NewProbability, record.NewImpact,
		record.NewLevel, record.Justification, record.EvaluatedBy, record.EvaluatedAt,
	)
	return translateError(err, "risk evaluation record")
}

// CriticalCompetencyRepository reads risk-critical-competency mappings.
type CriticalCompetencyRepository struct {
	db *pgxpool.Pool
}

func NewCriticalCompetencyRepository(db *pgxpool.Pool) *CriticalCompetencyRepository {
	return &CriticalCompetencyRepository{db: db}
}

const criticalCompetencyColumns = `
	id, riesgo_id, competencia_id, nivel_minimo, activo, creado_en`

func (r *CriticalCompetencyRepository) ListActiveByRisk(ctx context.Context, riskID uuid.UUID) ([]*risk.CriticalCompetency, error) {
	query := `SELECT` + criticalCompetencyColumns + `
		FROM competencias_criticas_riesgo
		WHERE riesgo_id = $1 AND activo = TRUE`

	rows, err := querier(ctx, r.db).Query(ctx, query, riskID)
	if err != nil {
		return nil, translateError(err, "critical competency")
	}
	defer rows.Close()

	var out []*risk.CriticalCompetency
	for rows.Next() {
		var cc risk.CriticalCompetency
		if err := rows.Scan(&cc.ID, &cc.RiskID, &cc.CompetencyID,
			&cc.MinimumLevel, &cc.Active, &cc.CreatedAt); err != nil {
			return nil, translateError(err, "critical competency")
		}
		out = append(out, &cc)
	}
	return out, translateError(rows.Err(), "critical competency")
}

func (r *CriticalCompetencyRepository) FindActive(ctx context.Context, riskID, competencyID uuid.UUID) (*risk.CriticalCompetency, error) {
	query := `SELECT` + criticalCompetencyColumns + `
		FROM competencias_criticas_riesgo
		WHERE riesgo_id = $1 AND competencia_id = $2 AND activo = TRUE`

	var cc risk.CriticalCompetency
	err := querier(ctx, r.db).QueryRow(ctx, query, riskID, competencyID).Scan(
		&cc.ID, &cc.RiskID, &cc.CompetencyID, &cc.MinimumLevel, &cc.Active, &cc.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err, "critical competency")
	}
	return &cc, nil
}
