package riskscoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
)

type MockRiskRepository struct {
	mock.Mock
}

func (m *MockRiskRepository) GetByID(ctx context.Context, riskID uuid.UUID) (*risk.Risk, error) {
	args := m.Called(ctx, riskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*risk.Risk), args.Error(1)
}

func (m *MockRiskRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockRiskRepository) Save(ctx context.Context, r *risk.Risk) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRiskRepository) Update(ctx context.Context, r *risk.Risk) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRiskRepository) SoftDelete(ctx context.Context, riskID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, riskID, at)
	return args.Error(0)
}

func (m *MockRiskRepository) CountActiveControls(ctx context.Context, riskID uuid.UUID) (int, error) {
	args := m.Called(ctx, riskID)
	return args.Int(0), args.Error(1)
}

func (m *MockRiskRepository) GetControl(ctx context.Context, controlID uuid.UUID) (*risk.Control, error) {
	args := m.Called(ctx, controlID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*risk.Control), args.Error(1)
}

func (m *MockRiskRepository) SaveControl(ctx context.Context, c *risk.Control) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRiskRepository) SoftDeleteControl(ctx context.Context, controlID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, controlID, at)
	return args.Error(0)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, record *risk.EvaluationRecord) error {
	args := m.Called(ctx, record)
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

func (m *MockAutomationTrigger) ReevaluateCriticalRisk(ctx context.Context, riskID uuid.UUID) (bool, error) {
	args := m.Called(ctx, riskID)
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
