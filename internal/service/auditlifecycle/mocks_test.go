package auditlifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qmscore/quality-compliance-backend/internal/domain/auditing"
	"github.com/qmscore/quality-compliance-backend/internal/domain/quality"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) GetByID(ctx context.Context, auditID uuid.UUID) (*auditing.Audit, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditing.Audit), args.Error(1)
}

func (m *MockAuditRepository) Update(ctx context.Context, audit *auditing.Audit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}

type MockProgramRepository struct {
	mock.Mock
}

func (m *MockProgramRepository) GetByID(ctx context.Context, programID uuid.UUID) (*auditing.Program, error) {
	args := m.Called(ctx, programID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditing.Program), args.Error(1)
}

func (m *MockProgramRepository) Update(ctx context.Context, program *auditing.Program) error {
	args := m.Called(ctx, program)
	return args.Error(0)
}

type MockFindingRepository struct {
	mock.Mock
}

func (m *MockFindingRepository) GetByID(ctx context.Context, findingID uuid.UUID) (*auditing.Finding, error) {
	args := m.Called(ctx, findingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditing.Finding), args.Error(1)
}

func (m *MockFindingRepository) ListByAudit(ctx context.Context, auditID uuid.UUID) ([]*auditing.Finding, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditing.Finding), args.Error(1)
}

func (m *MockFindingRepository) CountByAudit(ctx context.Context, auditID uuid.UUID) (int, error) {
	args := m.Called(ctx, auditID)
	return args.Int(0), args.Error(1)
}

func (m *MockFindingRepository) Save(ctx context.Context, finding *auditing.Finding) error {
	args := m.Called(ctx, finding)
	return args.Error(0)
}

func (m *MockFindingRepository) Update(ctx context.Context, finding *auditing.Finding) error {
	args := m.Called(ctx, finding)
	return args.Error(0)
}

type MockNonConformityRepository struct {
	mock.Mock
}

func (m *MockNonConformityRepository) GetByID(ctx context.Context, ncID uuid.UUID) (*quality.NonConformity, error) {
	args := m.Called(ctx, ncID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quality.NonConformity), args.Error(1)
}

func (m *MockNonConformityRepository) Save(ctx context.Context, nc *quality.NonConformity) error {
	args := m.Called(ctx, nc)
	return args.Error(0)
}

func (m *MockNonConformityRepository) NextSequence(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockActionRepository struct {
	mock.Mock
}

func (m *MockActionRepository) CountByNonConformity(ctx context.Context, ncID uuid.UUID) (int, error) {
	args := m.Called(ctx, ncID)
	return args.Int(0), args.Error(1)
}

func (m *MockActionRepository) Save(ctx context.Context, action *quality.CorrectiveAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

type MockChecklistRepository struct {
	mock.Mock
}

func (m *MockChecklistRepository) ListFields(ctx context.Context, formID uuid.UUID, version int) ([]*auditing.ChecklistField, error) {
	args := m.Called(ctx, formID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditing.ChecklistField), args.Error(1)
}

func (m *MockChecklistRepository) ListAnswers(ctx context.Context, auditID uuid.UUID) ([]*auditing.ChecklistAnswer, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditing.ChecklistAnswer), args.Error(1)
}

type MockProcessRepository struct {
	mock.Mock
}

func (m *MockProcessRepository) Exists(ctx context.Context, processID uuid.UUID) (bool, error) {
	args := m.Called(ctx, processID)
	return args.Bool(0), args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, entry *auditing.StateHistory) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockTrailRecorder struct {
	mock.Mock
}

func (m *MockTrailRecorder) Record(ctx context.Context, table string, recordID uuid.UUID, action string, actorID *uuid.UUID, changes map[string]interface{}) error {
	args := m.Called(ctx, table, recordID, action, actorID, changes)
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
