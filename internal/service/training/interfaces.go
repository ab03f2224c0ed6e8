package training

import (
	"context"

	"github.com/google/uuid"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/training"
)

// Service closes trainings and propagates the closure into the competency
// picture: gaps linked to the training close for every qualified attendee
// and the automation engine re-runs for them.
type Service interface {
	CloseTraining(ctx context.Context, trainingID, actorID uuid.UUID) (*training.Training, error)
}

// TrainingRepository persists trainings.
type TrainingRepository interface {
	GetByID(ctx context.Context, trainingID uuid.UUID) (*training.Training, error)
	Update(ctx context.Context, t *training.Training) error
}

// AttendanceRepository reads training attendances.
type AttendanceRepository interface {
	// ListQualified returns active attendances where the person both
	// attended and passed the evaluation.
	ListQualified(ctx context.Context, trainingID uuid.UUID) ([]*training.Attendance, error)
}

// GapRepository reads and mutates gaps linked to a training.
type GapRepository interface {
	// ListOpenByTraining returns the person's open gaps linked to the
	// training.
	ListOpenByTraining(ctx context.Context, personID, trainingID uuid.UUID) ([]*competency.Gap, error)

	// ListByTraining returns all of the person's gaps linked to the
	// training, regardless of state.
	ListByTraining(ctx context.Context, personID, trainingID uuid.UUID) ([]*competency.Gap, error)

	Update(ctx context.Context, gap *competency.Gap) error
}

// EvaluationRepository writes the evidence evaluations produced on closure.
type EvaluationRepository interface {
	Save(ctx context.Context, eval *competency.Evaluation) error
}

// TrailRecorder appends change-trail entries.
type TrailRecorder interface {
	Record(ctx context.Context, table string, recordID uuid.UUID, action string, actorID *uuid.UUID, changes map[string]interface{}) error
}

// AutomationTrigger re-runs the risk-competency automation for a person.
type AutomationTrigger interface {
	ReevaluatePersonByCompetency(ctx context.Context, personID, competencyID uuid.UUID) error
}

// UnitOfWork runs fn inside a single database transaction. Every write an
// operation performs commits together or not at all.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
