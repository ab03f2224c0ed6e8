package automation

import (
	"context"

	"github.com/google/uuid"

	"github.com/qmscore/quality-compliance-backend/internal/domain/process"
	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
	"github.com/qmscore/quality-compliance-backend/internal/service/gapdetect"
)

// Engine orchestrates the gap detector across a risk's stakeholders,
// recomputes residual risk when critical-competency gaps exist and raises
// preventive actions.
type Engine interface {
	// EvaluatePersonInStage checks every active requirement on the stage
	// plus the critical-risk requirements layered on top. Returns true when
	// any sub-check detected a gap.
	EvaluatePersonInStage(ctx context.Context, personID, stageID uuid.UUID) (bool, error)

	// EvaluatePersonInProcess runs the per-stage evaluator over all active
	// stages of the process. Side effects only.
	EvaluatePersonInProcess(ctx context.Context, personID, processID uuid.UUID) error

	// ReevaluateCriticalRisk re-checks every assigned person against the
	// risk's critical-competency mappings, updates the residual level and
	// raises a preventive action when a critical gap exists. Returns
	// whether a critical gap was found.
	ReevaluateCriticalRisk(ctx context.Context, riskID uuid.UUID) (bool, error)

	// ReevaluatePersonByCompetency re-runs every stage and critical risk
	// touched by this competency for the person. Invoked whenever a person
	// receives a new competency evaluation or a training closes a gap.
	ReevaluatePersonByCompetency(ctx context.Context, personID, competencyID uuid.UUID) error
}

// RiskRepository reads and mutates risks for the automation engine. The
// engine may update the residual level but never probability or impact.
type RiskRepository interface {
	// GetActive returns the active risk. NotFound when absent or inactive.
	GetActive(ctx context.Context, riskID uuid.UUID) (*risk.Risk, error)

	ListActiveByStage(ctx context.Context, stageID uuid.UUID) ([]*risk.Risk, error)

	// ListActiveByCriticalCompetency returns active risks that carry an
	// active critical mapping for the competency.
	ListActiveByCriticalCompetency(ctx context.Context, competencyID uuid.UUID) ([]*risk.Risk, error)

	UpdateResidualLevel(ctx context.Context, riskID uuid.UUID, residual *int) error
}

// CriticalCompetencyRepository reads risk-critical-competency mappings.
type CriticalCompetencyRepository interface {
	ListActiveByRisk(ctx context.Context, riskID uuid.UUID) ([]*risk.CriticalCompetency, error)

	// FindActive returns the active mapping for the (risk, competency)
	// pair. NotFound when none exists.
	FindActive(ctx context.Context, riskID, competencyID uuid.UUID) (*risk.CriticalCompetency, error)
}

// StageRepository reads process stages.
type StageRepository interface {
	ListActiveByProcess(ctx context.Context, processID uuid.UUID) ([]*process.Stage, error)
}

// StageRequirementRepository reads stage competency requirements.
type StageRequirementRepository interface {
	ListActiveByStage(ctx context.Context, stageID uuid.UUID) ([]*process.StageRequirement, error)

	// ListStagesRequiringCompetency returns the distinct active stages,
	// joined through the person's active process responsibilities, whose
	// requirements mention the competency.
	ListStagesRequiringCompetency(ctx context.Context, personID, competencyID uuid.UUID) ([]uuid.UUID, error)
}

// AssignmentRepository resolves which people are currently assigned to a
// process: active responsibles whose validity window covers now, plus
// active participants of active process instances.
type AssignmentRepository interface {
	ListAssignedPeople(ctx context.Context, processID uuid.UUID) ([]uuid.UUID, error)
}

// ActionRepository persists preventive process actions.
type ActionRepository interface {
	// HasActiveByOrigin reports whether an active, open-state action with
	// the origin tag already exists on the process.
	HasActiveByOrigin(ctx context.Context, processID uuid.UUID, origin string) (bool, error)

	CodeExists(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, action *process.Action) error
}

// GapDetector is the subset of the gap detector the engine drives.
type GapDetector interface {
	EvaluateRequirement(ctx context.Context, req gapdetect.Requirement) (bool, error)
}

// UnitOfWork runs fn inside a single database transaction. Gap upserts,
// the residual adjustment and the raised preventive action commit together
// or not at all. Nested calls join the caller's transaction.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
