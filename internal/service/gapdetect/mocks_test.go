package gapdetect

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/process"
)

type MockEvaluationRepository struct {
	mock.Mock
}

func (m *MockEvaluationRepository) LatestForPerson(ctx context.Context, personID, competencyID uuid.UUID) (*competency.Evaluation, error) {
	args := m.Called(ctx, personID, competencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*competency.Evaluation), args.Error(1)
}

func (m *MockEvaluationRepository) Save(ctx context.Context, eval *competency.Evaluation) error {
	args := m.Called(ctx, eval)
	return args.Error(0)
}

type MockGapRepository struct {
	mock.Mock
}

func (m *MockGapRepository) FindOpenByKey(ctx context.Context, key competency.GapKey) (*competency.Gap, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*competency.Gap), args.Error(1)
}

func (m *MockGapRepository) CloseMatching(ctx context.Context, personID, competencyID uuid.UUID, stageID, riskID *uuid.UUID, observed competency.Level, at time.Time) error {
	args := m.Called(ctx, personID, competencyID, stageID, riskID, observed, at)
	return args.Error(0)
}

func (m *MockGapRepository) LatestOpenForPerson(ctx context.Context, personID, competencyID uuid.UUID) (*competency.Gap, error) {
	args := m.Called(ctx, personID, competencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*competency.Gap), args.Error(1)
}

func (m *MockGapRepository) Save(ctx context.Context, gap *competency.Gap) error {
	args := m.Called(ctx, gap)
	return args.Error(0)
}

func (m *MockGapRepository) Update(ctx context.Context, gap *competency.Gap) error {
	args := m.Called(ctx, gap)
	return args.Error(0)
}

type MockStageRequirementRepository struct {
	mock.Mock
}

func (m *MockStageRequirementRepository) FindForResponsiblePerson(ctx context.Context, personID, competencyID uuid.UUID) (*process.StageRequirement, error) {
	args := m.Called(ctx, personID, competencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*process.StageRequirement), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, personID uuid.UUID, title, message, referenceType string, referenceID uuid.UUID) error {
	args := m.Called(ctx, personID, title, message, referenceType, referenceID)
	return args.Error(0)
}

type MockPersonRepository struct {
	mock.Mock
}

func (m *MockPersonRepository) Exists(ctx context.Context, personID uuid.UUID) (bool, error) {
	args := m.Called(ctx, personID)
	return args.Bool(0), args.Error(1)
}

type MockCompetencyRepository struct {
	mock.Mock
}

func (m *MockCompetencyRepository) Exists(ctx context.Context, competencyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, competencyID)
	return args.Bool(0), args.Error(1)
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

type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) RequiredLevel(ctx context.Context, personID, competencyID uuid.UUID, explicit string) (competency.Level, bool, error) {
	args := m.Called(ctx, personID, competencyID, explicit)
	return args.Get(0).(competency.Level), args.Bool(1), args.Error(2)
}

func (m *MockDetector) EvaluateRequirement(ctx context.Context, req Requirement) (bool, error) {
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
