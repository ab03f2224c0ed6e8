package riskscoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
)

// Service manages risk scoring, the evaluation history and the
// control-gated risk closure.
type Service interface {
	// CreateRisk registers a new risk. When probability and impact are
	// supplied the severity is derived and the initial evaluation history
	// row is written.
	CreateRisk(ctx context.Context, req CreateRiskRequest) (*risk.Risk, error)

	// RecordEvaluation applies a new probability/impact pair. When either
	// value differs from the stored one, a history row with the
	// before/after snapshot is appended; identical values are a no-op on
	// history. If the new score reaches the automation criticality
	// threshold the automation engine is re-run for the risk.
	RecordEvaluation(ctx context.Context, req RecordEvaluationRequest) (*risk.Risk, error)

	// CloseRisk moves the risk to the closed state. Fails with a
	// precondition error unless at least one active control exists.
	CloseRisk(ctx context.Context, riskID, actorID uuid.UUID) (*risk.Risk, error)

	// DeleteRisk soft-deletes the risk.
	DeleteRisk(ctx context.Context, riskID, actorID uuid.UUID) error

	// AddControl attaches a control to a risk.
	AddControl(ctx context.Context, req AddControlRequest) (*risk.Control, error)

	// RemoveControl soft-deletes a control.
	RemoveControl(ctx context.Context, controlID, actorID uuid.UUID) error
}

// CreateRiskRequest carries the fields needed to register a risk.
type CreateRiskRequest struct {
	ProcessID     uuid.UUID  `json:"process_id" validate:"required"`
	StageID       *uuid.UUID `json:"stage_id,omitempty"`
	Code          string     `json:"code" validate:"required,max=100"`
	Description   string     `json:"description" validate:"required"`
	Category      string     `json:"category,omitempty"`
	RiskType      string     `json:"risk_type" validate:"required"`
	Probability   int        `json:"probability,omitempty" validate:"omitempty,min=1,max=5"`
	Impact        int        `json:"impact,omitempty" validate:"omitempty,min=1,max=5"`
	Causes        string     `json:"causes,omitempty"`
	Consequences  string     `json:"consequences,omitempty"`
	ResponsibleID *uuid.UUID `json:"responsible_id,omitempty"`
	Treatment     string     `json:"treatment,omitempty"`
	ActorID       uuid.UUID  `json:"actor_id" validate:"required"`
}

// RecordEvaluationRequest carries a probability/impact re-evaluation.
type RecordEvaluationRequest struct {
	RiskID        uuid.UUID `json:"risk_id" validate:"required"`
	Probability   int       `json:"probability" validate:"required,min=1,max=5"`
	Impact        int       `json:"impact" validate:"required,min=1,max=5"`
	Justification string    `json:"justification,omitempty"`
	EvaluatorID   uuid.UUID `json:"evaluator_id" validate:"required"`
}

// AddControlRequest attaches a mitigating control to a risk.
type AddControlRequest struct {
	RiskID        uuid.UUID  `json:"risk_id" validate:"required"`
	Description   string     `json:"description" validate:"required"`
	ControlType   string     `json:"control_type" validate:"required"`
	Frequency     string     `json:"frequency,omitempty"`
	ResponsibleID *uuid.UUID `json:"responsible_id,omitempty"`
	ActorID       uuid.UUID  `json:"actor_id" validate:"required"`
}

// RiskRepository persists risks and their controls.
type RiskRepository interface {
	// GetByID returns the active risk. NotFound when absent.
	GetByID(ctx context.Context, riskID uuid.UUID) (*risk.Risk, error)

	// CodeExists reports whether an active risk already uses the code.
	CodeExists(ctx context.Context, code string) (bool, error)

	Save(ctx context.Context, r *risk.Risk) error
	Update(ctx context.Context, r *risk.Risk) error
	SoftDelete(ctx context.Context, riskID uuid.UUID, at time.Time) error

	CountActiveControls(ctx context.Context, riskID uuid.UUID) (int, error)
	GetControl(ctx context.Context, controlID uuid.UUID) (*risk.Control, error)
	SaveControl(ctx context.Context, c *risk.Control) error
	SoftDeleteControl(ctx context.Context, controlID uuid.UUID, at time.Time) error
}

// HistoryRepository appends immutable risk evaluation records.
type HistoryRepository interface {
	Append(ctx context.Context, record *risk.EvaluationRecord) error
}

// TrailRecorder appends change-trail entries.
type TrailRecorder interface {
	Record(ctx context.Context, table string, recordID uuid.UUID, action string, actorID *uuid.UUID, changes map[string]interface{}) error
}

// AutomationTrigger re-runs the risk-competency automation for a risk.
type AutomationTrigger interface {
	ReevaluateCriticalRisk(ctx context.Context, riskID uuid.UUID) (bool, error)
}

// UnitOfWork runs fn inside a single database transaction. Every write an
// operation performs commits together or not at all.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
