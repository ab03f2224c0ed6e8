package effectiveness

import (
	"context"

	"github.com/google/uuid"

	"github.com/qmscore/quality-compliance-backend/internal/domain/quality"
)

// Gate enforces that a corrective action closes only after causal
// analysis, implementation evidence and a verified-effectiveness decision.
// It is the sole verification path by which a non-conformity closes.
type Gate interface {
	// CloseAction verifies a corrective action. An effective outcome
	// closes the action and its linked non-conformity; an ineffective one
	// marks the action not-effective and reopens the non-conformity.
	// Verifier and verification date are stamped regardless of outcome.
	CloseAction(ctx context.Context, actionID uuid.UUID, verification quality.Verification, verifierID uuid.UUID) (*quality.CorrectiveAction, error)
}

// ActionRepository persists corrective actions.
type ActionRepository interface {
	// GetByID returns the active corrective action. NotFound when absent.
	GetByID(ctx context.Context, actionID uuid.UUID) (*quality.CorrectiveAction, error)
	Update(ctx context.Context, action *quality.CorrectiveAction) error
}

// NonConformityRepository persists non-conformities.
type NonConformityRepository interface {
	GetByID(ctx context.Context, ncID uuid.UUID) (*quality.NonConformity, error)
	Update(ctx context.Context, nc *quality.NonConformity) error
}

// TrailRecorder appends change-trail entries.
type TrailRecorder interface {
	Record(ctx context.Context, table string, recordID uuid.UUID, action string, actorID *uuid.UUID, changes map[string]interface{}) error
}

// UnitOfWork runs fn inside a single database transaction. Every write an
// operation performs commits together or not at all.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
