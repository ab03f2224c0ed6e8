package automation

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qmscore/quality-compliance-backend/internal/domain/process"
	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
	"github.com/qmscore/quality-compliance-backend/internal/service/gapdetect"
)

type MockRiskRepository struct {
	mock.Mock
}

func (m *MockRiskRepository) GetActive(ctx context.Context, riskID uuid.UUID) (*risk.Risk, error) {
	args := m.Called(ctx, riskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*risk.Risk), args.Error(1)
}

func (m *MockRiskRepository) ListActiveByStage(ctx context.Context, stageID uuid.UUID) ([]*risk.Risk, error) {
	args := m.Called(ctx, stageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*risk.Risk), args.Error(1)
}

func (m *MockRiskRepository) ListActiveByCriticalCompetency(ctx context.Context, competencyID uuid.UUID) ([]*risk.Risk, error) {
	args := m.Called(ctx, competencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*risk.Risk), args.Error(1)
}

func (m *MockRiskRepository) UpdateResidualLevel(ctx context.Context, riskID uuid.UUID, residual *int) error {
	args := m.Called(ctx, riskID, residual)
	return args.Error(0)
}

type MockCriticalCompetencyRepository struct {
	mock.Mock
}

func (m *MockCriticalCompetencyRepository) ListActiveByRisk(ctx context.Context, riskID uuid.UUID) ([]*risk.CriticalCompetency, error) {
	args := m.Called(ctx, riskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*risk.CriticalCompetency), args.Error(1)
}

func (m *MockCriticalCompetencyRepository) FindActive(ctx context.Context, riskID, competencyID uuid.UUID) (*risk.CriticalCompetency, error) {
	args := m.Called(ctx, riskID, competencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*risk.CriticalCompetency), args.Error(1)
}

type MockStageRepository struct {
	mock.Mock
}

func (m *MockStageRepository) ListActiveByProcess(ctx context.Context, processID uuid.UUID) ([]*process.Stage, error) {
	args := m.Called(ctx, processID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*process.Stage), args.Error(1)
}

type MockStageRequirementRepository struct {
	mock.Mock
}

func (m *MockStageRequirementRepository) ListActiveByStage(ctx context.Context, stageID uuid.UUID) ([]*process.StageRequirement, error) {
	args := m.Called(ctx, stageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*process.StageRequirement), args.Error(1)
}

func (m *MockStageRequirementRepository) ListStagesRequiringCompetency(ctx context.Context, personID, competencyID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, personID, competencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) ListAssignedPeople(ctx context.Context, processID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, processID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockActionRepository struct {
	mock.Mock
}

func (m *MockActionRepository) HasActiveByOrigin(ctx context.Context, processID uuid.UUID, origin string) (bool, error) {
	args := m.Called(ctx, processID, origin)
	return args.Bool(0), args.Error(1)
}

func (m *MockActionRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockActionRepository) Save(ctx context.Context, action *process.Action) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

type MockGapDetector struct {
	mock.Mock
}

func (m *MockGapDetector) EvaluateRequirement(ctx context.Context, req gapdetect.Requirement) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
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
