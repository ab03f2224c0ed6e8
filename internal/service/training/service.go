package training

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
	"github.com/qmscore/quality-compliance-backend/internal/domain/training"
	"github.com/qmscore/quality-compliance-backend/internal/metrics"
)

type service struct {
	logger      *zap.Logger
	uow         UnitOfWork
	trainings   TrainingRepository
	attendances AttendanceRepository
	gaps        GapRepository
	evaluations EvaluationRepository
	trail       TrailRecorder
	engine      AutomationTrigger
	metrics     *metrics.Registry
}

// NewService builds the training closure service.
func NewService(
	logger *zap.Logger,
	uow UnitOfWork,
	trainings TrainingRepository,
	attendances AttendanceRepository,
	gaps GapRepository,
	evaluations EvaluationRepository,
	trail TrailRecorder,
	engine AutomationTrigger,
	registry *metrics.Registry,
) Service {
	return &service{
		logger:      logger,
		uow:         uow,
		trainings:   trainings,
		attendances: attendances,
		gaps:        gaps,
		evaluations: evaluations,
		trail:       trail,
		engine:      engine,
		metrics:     registry,
	}
}

var _ Service = (*service)(nil)

func (s *service) CloseTraining(ctx context.Context, trainingID, actorID uuid.UUID) (*training.Training, error) {
	var closed *training.Training
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		closed, err = s.closeTraining(ctx, trainingID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func (s *service) closeTraining(ctx context.Context, trainingID, actorID uuid.UUID) (*training.Training, error) {
	t, err := s.trainings.GetByID(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	if t.Status == training.StatusClosed {
		return nil, errors.NewInvalidStateError("training is already closed")
	}

	qualified, err := s.attendances.ListQualified(ctx, trainingID)
	if err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	for _, att := range qualified {
		if err := s.closeAttendeeGaps(ctx, att, t, actorID, ts); err != nil {
			return nil, err
		}
	}

	t.Status = training.StatusClosed
	if t.EndsAt == nil {
		t.EndsAt = &ts
	}
	t.UpdatedAt = ts
	if err := s.trainings.Update(ctx, t); err != nil {
		return nil, err
	}

	if err := s.trail.Record(ctx, "capacitaciones", t.ID, "CERRAR", &actorID, map[string]interface{}{
		"estado": string(training.StatusClosed),
	}); err != nil {
		return nil, err
	}

	// Touched competencies may have fed critical risks; re-run the
	// automation per attendee and competency, including already-closed
	// gaps so residuals recover.
	for _, att := range qualified {
		linked, err := s.gaps.ListByTraining(ctx, att.PersonID, trainingID)
		if err != nil {
			return nil, err
		}
		seen := make(map[uuid.UUID]struct{}, len(linked))
		for _, gap := range linked {
			if _, ok := seen[gap.CompetencyID]; ok {
				continue
			}
			seen[gap.CompetencyID] = struct{}{}
			if err := s.engine.ReevaluatePersonByCompetency(ctx, att.PersonID, gap.CompetencyID); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("training closed",
		zap.String("training_id", t.ID.String()),
		zap.String("code", t.Code),
		zap.Int("qualified_attendees", len(qualified)))
	return t, nil
}

// closeAttendeeGaps closes every open gap the attendee holds against this
// training and writes an evaluation at the required level as evidence.
func (s *service) closeAttendeeGaps(ctx context.Context, att *training.Attendance, t *training.Training, actorID uuid.UUID, ts time.Time) error {
	open, err := s.gaps.ListOpenByTraining(ctx, att.PersonID, t.ID)
	if err != nil {
		return err
	}

	for _, gap := range open {
		eval := &competency.Evaluation{
			ID:           uuid.New(),
			PersonID:     att.PersonID,
			CompetencyID: gap.CompetencyID,
			Level:        gap.RequiredLevel,
			State:        "desarrollada",
			EvaluatedAt:  ts,
			EvaluatorID:  &actorID,
			Observations: fmt.Sprintf("Actualizada por cierre de capacitación %s", t.Code),
			Active:       true,
			CreatedAt:    ts,
		}
		if err := s.evaluations.Save(ctx, eval); err != nil {
			return err
		}

		gap.Close(gap.RequiredLevel, ts)
		if err := s.gaps.Update(ctx, gap); err != nil {
			return err
		}
		s.metrics.RecordGapClosed(ctx)
	}
	return nil
}
