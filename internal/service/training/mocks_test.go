package training

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/training"
)

type MockTrainingRepository struct {
	mock.Mock
}

func (m *MockTrainingRepository) GetByID(ctx context.Context, trainingID uuid.UUID) (*training.Training, error) {
	args := m.Called(ctx, trainingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*training.Training), args.Error(1)
}

func (m *MockTrainingRepository) Update(ctx context.Context, t *training.Training) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

type MockAttendanceRepository struct {
	mock.Mock
}

func (m *MockAttendanceRepository) ListQualified(ctx context.Context, trainingID uuid.UUID) ([]*training.Attendance, error) {
	args := m.Called(ctx, trainingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*training.Attendance), args.Error(1)
}

type MockGapRepository struct {
	mock.Mock
}

func (m *MockGapRepository) ListOpenByTraining(ctx context.Context, personID, trainingID uuid.UUID) ([]*competency.Gap, error) {
	args := m.Called(ctx, personID, trainingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*competency.Gap), args.Error(1)
}

func (m *MockGapRepository) ListByTraining(ctx context.Context, personID, trainingID uuid.UUID) ([]*competency.Gap, error) {
	args := m.Called(ctx, personID, trainingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*competency.Gap), args.Error(1)
}

func (m *MockGapRepository) Update(ctx context.Context, gap *competency.Gap) error {
	args := m.Called(ctx, gap)
	return args.Error(0)
}

type MockEvaluationRepository struct {
	mock.Mock
}

func (m *MockEvaluationRepository) Save(ctx context.Context, eval *competency.Evaluation) error {
	args := m.Called(ctx, eval)
	return args.Error(0)
}

type MockTrailRecorder struct {
	mock.Mock
}

func (m *MockTrailRecorder) Record(ctx context.Context, table string, recordID uuid.UUID, action string, actorID *uuid.UUID, changes map[string]interface{}) error {
	args := m.Called(ctx, table, recordID, action, actorID, changes)
	return args.Error(0)
}

type MockAutomationTrigger struct {
	mock.Mock
}

func (m *MockAutomationTrigger) ReevaluatePersonByCompetency(ctx context.Context, personID, competencyID uuid.UUID) error {
	args := m.Called(ctx, personID, competencyID)
	return args.Error(0)
}

// stubUnitOfWork runs fn directly and records each opened scope, so a test
// can assert that an operation's writes share a single transaction.
type stubUnitOfWork struct {
	calls  int
	active bool
}

func (u *stubUnitOfWork) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.calls++
	u.active = true
	defer func() { u.active = false }()
	return fn(ctx)
}
