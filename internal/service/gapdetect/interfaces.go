package gapdetect

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/process"
	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
)

// Detector compares a person's current competency level against a required
// one and materializes or resolves gap records.
type Detector interface {
	// RequiredLevel resolves the level a person must hold in a competency:
	// an explicit caller-supplied level wins, else the stage requirement for
	// a stage the person is responsible for, else the requirement implied by
	// the most recent still-open gap. ok is false when nothing resolves.
	RequiredLevel(ctx context.Context, personID, competencyID uuid.UUID, explicit string) (level competency.Level, ok bool, err error)

	// EvaluateRequirement checks one requirement and upserts or closes the
	// matching gap. Returns true when a gap was detected. Each detecting
	// call notifies the person (at-least-once semantics).
	EvaluateRequirement(ctx context.Context, req Requirement) (bool, error)
}

// Requirement is one requirement to evaluate against a person's current
// level. StageID and Risk are optional and become part of the gap's dedup
// key when set.
type Requirement struct {
	PersonID      uuid.UUID
	CompetencyID  uuid.UUID
	RequiredLevel competency.Level
	StageID       *uuid.UUID
	Risk          *risk.Risk
}

// Evaluator is the inbound entry point for a recorded competency
// evaluation. It persists the evaluation, runs gap detection and hands the
// result to the automation engine.
type Evaluator interface {
	RecordEvaluation(ctx context.Context, req RecordEvaluationRequest, actorID uuid.UUID) (*competency.Evaluation, error)
}

// RecordEvaluationRequest carries a new competency evaluation. The required
// level is optional; when absent it resolves through stage requirements and
// open gaps.
type RecordEvaluationRequest struct {
	PersonID      uuid.UUID  `json:"person_id" validate:"required"`
	CompetencyID  uuid.UUID  `json:"competency_id" validate:"required"`
	Level         string     `json:"level" validate:"required,oneof=basico intermedio avanzado"`
	RequiredLevel string     `json:"required_level,omitempty" validate:"omitempty,oneof=basico intermedio avanzado"`
	EvaluatorID   *uuid.UUID `json:"evaluator_id,omitempty"`
	EvaluatedAt   *time.Time `json:"evaluated_at,omitempty"`
	Observations  string     `json:"observations,omitempty"`
}

// EvaluationRepository reads and writes competency evaluations.
type EvaluationRepository interface {
	// LatestForPerson returns the most recent active evaluation for the
	// (person, competency) pair, tie-broken by evaluation date then
	// creation time, descending. NotFound when none exists.
	LatestForPerson(ctx context.Context, personID, competencyID uuid.UUID) (*competency.Evaluation, error)

	Save(ctx context.Context, eval *competency.Evaluation) error
}

// PersonRepository checks person references.
type PersonRepository interface {
	Exists(ctx context.Context, personID uuid.UUID) (bool, error)
}

// CompetencyRepository checks competency references.
type CompetencyRepository interface {
	Exists(ctx context.Context, competencyID uuid.UUID) (bool, error)
}

// TrailRecorder appends change-trail entries.
type TrailRecorder interface {
	Record(ctx context.Context, table string, recordID uuid.UUID, action string, actorID *uuid.UUID, changes map[string]interface{}) error
}

// AutomationTrigger re-runs the risk-competency automation for a person
// after their competency picture changed.
type AutomationTrigger interface {
	ReevaluatePersonByCompetency(ctx context.Context, personID, competencyID uuid.UUID) error
}

// GapRepository persists competency gaps.
type GapRepository interface {
	// FindOpenByKey looks up the single open gap matching the composite
	// key. Absent stage/risk references match only rows where the reference
	// is absent. NotFound when no open gap exists.
	FindOpenByKey(ctx context.Context, key competency.GapKey) (*competency.Gap, error)

	// CloseMatching closes all open gaps for the person and competency,
	// narrowed by stage and risk when supplied, recording the observed
	// level and resolution time.
	CloseMatching(ctx context.Context, personID, competencyID uuid.UUID, stageID, riskID *uuid.UUID, observed competency.Level, at time.Time) error

	// LatestOpenForPerson returns the most recently created open gap for
	// the (person, competency) pair regardless of stage/risk scope.
	// NotFound when none exists.
	LatestOpenForPerson(ctx context.Context, personID, competencyID uuid.UUID) (*competency.Gap, error)

	Save(ctx context.Context, gap *competency.Gap) error
	Update(ctx context.Context, gap *competency.Gap) error
}

// StageRequirementRepository resolves baseline stage requirements.
type StageRequirementRepository interface {
	// FindForResponsiblePerson returns an active stage requirement for the
	// competency on any stage of a process the person is actively
	// responsible for. NotFound when none exists.
	FindForResponsiblePerson(ctx context.Context, personID, competencyID uuid.UUID) (*process.StageRequirement, error)
}

// Notifier delivers gap notifications to the affected person.
type Notifier interface {
	Notify(ctx context.Context, personID uuid.UUID, title, message, referenceType string, referenceID uuid.UUID) error
}

// UnitOfWork runs fn inside a single database transaction. Nested calls
// join the caller's transaction.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
