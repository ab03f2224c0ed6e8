package training

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
	"github.com/qmscore/quality-compliance-backend/internal/domain/training"
	"github.com/qmscore/quality-compliance-backend/internal/metrics"
)

type trainingMocks struct {
	uow         *stubUnitOfWork
	trainings   *MockTrainingRepository
	attendances *MockAttendanceRepository
	gaps        *MockGapRepository
	evaluations *MockEvaluationRepository
	trail       *MockTrailRecorder
	engine      *MockAutomationTrigger
}

func newTestService(t *testing.T) (Service, *trainingMocks) {
	t.Helper()
	m := &trainingMocks{
		uow:         new(stubUnitOfWork),
		trainings:   new(MockTrainingRepository),
		attendances: new(MockAttendanceRepository),
		gaps:        new(MockGapRepository),
		evaluations: new(MockEvaluationRepository),
		trail:       new(MockTrailRecorder),
		engine:      new(MockAutomationTrigger),
	}
	registry, err := metrics.NewRegistry("training-test")
	require.NoError(t, err)
	svc := NewService(zaptest.NewLogger(t), m.uow, m.trainings, m.attendances, m.gaps,
		m.evaluations, m.trail, m.engine, registry)
	return svc, m
}

func inProgressTraining() *training.Training {
	return &training.Training{
		ID:     uuid.New(),
		Code:   "CAP-2026-03",
		Status: training.StatusInProgress,
		Active: true,
	}
}

func openGap(personID, trainingID uuid.UUID) *competency.Gap {
	tid := trainingID
	return &competency.Gap{
		ID:            uuid.New(),
		PersonID:      personID,
		CompetencyID:  uuid.New(),
		TrainingID:    &tid,
		RequiredLevel: competency.LevelAdvanced,
		CurrentLevel:  competency.LevelBasic,
		Status:        competency.GapStatusInTraining,
		Active:        true,
	}
}

func TestCloseTraining(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("closes gaps with evidence and reruns automation", func(t *testing.T) {
		svc, m := newTestService(t)
		tr := inProgressTraining()
		personID := uuid.New()
		gap := openGap(personID, tr.ID)
		attendee := &training.Attendance{
			ID: uuid.New(), TrainingID: tr.ID, PersonID: personID,
			Attended: true, Passed: true, Active: true,
		}

		m.trainings.On("GetByID", ctx, tr.ID).Return(tr, nil)
		m.attendances.On("ListQualified", ctx, tr.ID).Return([]*training.Attendance{attendee}, nil)
		m.gaps.On("ListOpenByTraining", ctx, personID, tr.ID).Return([]*competency.Gap{gap}, nil)
		m.evaluations.On("Save", ctx, mock.MatchedBy(func(e *competency.Evaluation) bool {
			return e.PersonID == personID &&
				e.CompetencyID == gap.CompetencyID &&
				e.Level == competency.LevelAdvanced &&
				e.State == "desarrollada" &&
				e.Observations == "Actualizada por cierre de capacitación CAP-2026-03"
		})).Return(nil)
		m.gaps.On("Update", ctx, mock.MatchedBy(func(g *competency.Gap) bool {
			return g.Status == competency.GapStatusClosed && g.ResolvedAt != nil
		})).Return(nil)
		m.trainings.On("Update", ctx, mock.MatchedBy(func(updated *training.Training) bool {
			return updated.Status == training.StatusClosed && updated.EndsAt != nil
		})).Return(nil)
		m.trail.On("Record", ctx, "capacitaciones", tr.ID, "CERRAR", &actorID, mock.Anything).Return(nil)
		m.gaps.On("ListByTraining", ctx, personID, tr.ID).Return([]*competency.Gap{gap}, nil)
		m.engine.On("ReevaluatePersonByCompetency", ctx, personID, gap.CompetencyID).Return(nil)

		closed, err := svc.CloseTraining(ctx, tr.ID, actorID)

		require.NoError(t, err)
		assert.Equal(t, training.StatusClosed, closed.Status)
		m.evaluations.AssertExpectations(t)
		m.gaps.AssertExpectations(t)
		m.engine.AssertExpectations(t)
	})

	t.Run("automation runs once per competency", func(t *testing.T) {
		svc, m := newTestService(t)
		tr := inProgressTraining()
		personID := uuid.New()
		competencyID := uuid.New()
		attendee := &training.Attendance{
			ID: uuid.New(), TrainingID: tr.ID, PersonID: personID,
			Attended: true, Passed: true, Active: true,
		}
		first := openGap(personID, tr.ID)
		first.CompetencyID = competencyID
		second := openGap(personID, tr.ID)
		second.CompetencyID = competencyID
		second.Status = competency.GapStatusClosed

		m.trainings.On("GetByID", ctx, tr.ID).Return(tr, nil)
		m.attendances.On("ListQualified", ctx, tr.ID).Return([]*training.Attendance{attendee}, nil)
		m.gaps.On("ListOpenByTraining", ctx, personID, tr.ID).Return([]*competency.Gap{first}, nil)
		m.evaluations.On("Save", ctx, mock.Anything).Return(nil)
		m.gaps.On("Update", ctx, mock.Anything).Return(nil)
		m.trainings.On("Update", ctx, mock.Anything).Return(nil)
		m.trail.On("Record", ctx, "capacitaciones", tr.ID, "CERRAR", &actorID, mock.Anything).Return(nil)
		m.gaps.On("ListByTraining", ctx, personID, tr.ID).Return([]*competency.Gap{first, second}, nil)
		m.engine.On("ReevaluatePersonByCompetency", ctx, personID, competencyID).Return(nil)

		_, err := svc.CloseTraining(ctx, tr.ID, actorID)

		require.NoError(t, err)
		m.engine.AssertNumberOfCalls(t, "ReevaluatePersonByCompetency", 1)
	})

	t.Run("attendee without gaps still closes the training", func(t *testing.T) {
		svc, m := newTestService(t)
		tr := inProgressTraining()
		personID := uuid.New()
		attendee := &training.Attendance{
			ID: uuid.New(), TrainingID: tr.ID, PersonID: personID,
			Attended: true, Passed: true, Active: true,
		}

		m.trainings.On("GetByID", ctx, tr.ID).Return(tr, nil)
		m.attendances.On("ListQualified", ctx, tr.ID).Return([]*training.Attendance{attendee}, nil)
		m.gaps.On("ListOpenByTraining", ctx, personID, tr.ID).Return([]*competency.Gap{}, nil)
		m.trainings.On("Update", ctx, mock.Anything).Return(nil)
		m.trail.On("Record", ctx, "capacitaciones", tr.ID, "CERRAR", &actorID, mock.Anything).Return(nil)
		m.gaps.On("ListByTraining", ctx, personID, tr.ID).Return([]*competency.Gap{}, nil)

		closed, err := svc.CloseTraining(ctx, tr.ID, actorID)

		require.NoError(t, err)
		assert.Equal(t, training.StatusClosed, closed.Status)
		m.evaluations.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		m.engine.AssertNotCalled(t, "ReevaluatePersonByCompetency", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("existing end date is preserved", func(t *testing.T) {
		svc, m := newTestService(t)
		tr := inProgressTraining()
		ended := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
		tr.EndsAt = &ended

		m.trainings.On("GetByID", ctx, tr.ID).Return(tr, nil)
		m.attendances.On("ListQualified", ctx, tr.ID).Return([]*training.Attendance{}, nil)
		m.trainings.On("Update", ctx, mock.MatchedBy(func(updated *training.Training) bool {
			return updated.EndsAt != nil && updated.EndsAt.Equal(ended)
		})).Return(nil)
		m.trail.On("Record", ctx, "capacitaciones", tr.ID, "CERRAR", &actorID, mock.Anything).Return(nil)

		_, err := svc.CloseTraining(ctx, tr.ID, actorID)

		require.NoError(t, err)
		m.trainings.AssertExpectations(t)
	})

	t.Run("already closed is invalid state", func(t *testing.T) {
		svc, m := newTestService(t)
		tr := inProgressTraining()
		tr.Status = training.StatusClosed

		m.trainings.On("GetByID", ctx, tr.ID).Return(tr, nil)

		_, err := svc.CloseTraining(ctx, tr.ID, actorID)

		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidState))
		m.trainings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
