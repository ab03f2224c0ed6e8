package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qmscore/quality-compliance-backend/internal/domain/training"
)

// TrainingRepository persists trainings.
type TrainingRepository struct {
	db *pgxpool.Pool
}

func NewTrainingRepository(db *pgxpool.Pool) *TrainingRepository {
	return &TrainingRepository{db: db}
}

func (r *TrainingRepository) GetByID(ctx context.Context, trainingID uuid.UUID) (*training.Training, error) {
	query := `
		SELECT id, codigo, nombre, descripcion, estado, fecha_inicio, fecha_fin,
			activo, creado_por, creado_en, actualizado_en
		FROM capacitaciones
		WHERE id = $1 AND activo = TRUE`

	var t training.Training
	err := querier(ctx, r.db).QueryRow(ctx, query, trainingID).Scan(
		&t.ID, &t.Code, &t.Name, &t.Description, &t.Status, &t.StartsAt,
		&t.EndsAt, &t.Active, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "training")
	}
	return &t, nil
}

func (r *TrainingRepository) Update(ctx context.Context, t *training.Training) error {
	query := `
		UPDATE capacitaciones SET
			nombre = $2, descripcion = $3, estado = $4, fecha_inicio = $5,
			fecha_fin = $6, actualizado_en = $7
		WHERE id = $1 AND activo = TRUE`

	tag, err := querier(ctx, r.db).Exec(ctx, query,
		t.ID, t.Name, t.Description, t.Status, t.StartsAt, t.EndsAt, t.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "training")
	}
	if tag.RowsAffected() == 0 {
		return translateError(pgx.ErrNoRows, "training")
	}
	return nil
}

// AttendanceRepository reads training attendances.
type AttendanceRepository struct {
	db *pgxpool.Pool
}

func NewAttendanceRepository(db *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListQualified returns the attendances that count for gap closure: the
// person attended and passed the evaluation.
func (r *AttendanceRepository) ListQualified(ctx context.Context, trainingID uuid.UUID) ([]*training.Attendance, error) {
	query := `
		SELECT id, capacitacion_id, usuario_id, asistio, aprobo, activo, creado_en
		FROM asistencias_capacitacion
		WHERE capacitacion_id = $1 AND asistio = TRUE AND aprobo = TRUE AND activo = TRUE`

	rows, err := querier(ctx, r.db).Query(ctx, query, trainingID)
	if err != nil {
		return nil, translateError(err, "training attendance")
	}
	defer rows.Close()

	var out []*training.Attendance
	for rows.Next() {
		var a training.Attendance
		if err := rows.Scan(&a.ID, &a.TrainingID, &a.PersonID, &a.Attended,
			&a.Passed, &a.Active, &a.CreatedAt); err != nil {
			return nil, translateError(err, "training attendance")
		}
		out = append(out, &a)
	}
	return out, translateError(rows.Err(), "training attendance")
}
