package effectiveness

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qmscore/quality-compliance-backend/internal/domain/quality"
)

type MockActionRepository struct {
	mock.Mock
}

func (m *MockActionRepository) GetByID(ctx context.Context, actionID uuid.UUID) (*quality.CorrectiveAction, error) {
	args := m.Called(ctx, actionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quality.CorrectiveAction), args.Error(1)
}

func (m *MockActionRepository) Update(ctx context.Context, action *quality.CorrectiveAction) error {
	args := m.Called(ctx, action)
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

func (m *MockNonConformityRepository) Update(ctx context.Context, nc *quality.NonConformity) error {
	args := m.Called(ctx, nc)
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
