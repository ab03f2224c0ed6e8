package quality

import (
	"time"

	"github.com/google/uuid"
)

// EffectivenessPassMark is the minimum numeric effectiveness score at which
// a corrective action verifies as effective when no explicit decision is
// supplied.
const EffectivenessPassMark = 80

// NonConformityStatus of a non-conformity.
type NonConformityStatus string

const (
	NCStatusOpen        NonConformityStatus = "abierta"
	NCStatusInTreatment NonConformityStatus = "en_tratamiento"
	NCStatusClosed      NonConformityStatus = "cerrada"
)

// NonConformity is a confirmed deviation from a requirement. It closes only
// after its corrective action verifies as effective (or by explicit
// administrative action outside this core).
type NonConformity struct {
	ID            uuid.UUID           `json:"id"`
	Code          string              `json:"code"`
	Description   string              `json:"description"`
	ProcessID     *uuid.UUID          `json:"process_id,omitempty"`
	Type          string              `json:"type"`
	Source        string              `json:"source"`
	DetectedBy    *uuid.UUID          `json:"detected_by,omitempty"`
	DetectedAt    time.Time           `json:"detected_at"`
	Severity      string              `json:"severity,omitempty"`
	Status        NonConformityStatus `json:"status"`
	RootCause     string              `json:"root_cause,omitempty"`
	ActionPlan    string              `json:"action_plan,omitempty"`
	Evidence      string              `json:"evidence,omitempty"`
	ResponsibleID *uuid.UUID          `json:"responsible_id,omitempty"`
	ClosedAt      *time.Time          `json:"closed_at,omitempty"`
	Active        bool                `json:"active"`
	CreatedBy     uuid.UUID           `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ActionStatus of a corrective action.
type ActionStatus string

const (
	ActionStatusDraft        ActionStatus = "borrador"
	ActionStatusInProgress   ActionStatus = "en_proceso"
	ActionStatusClosed       ActionStatus = "cerrada"
	ActionStatusNotEffective ActionStatus = "no_eficaz"
)

// CorrectiveAction is a planned remedy for a non-conformity. It closes only
// after a verified-effectiveness decision; an ineffective verification
// reopens the parent non-conformity.
type CorrectiveAction struct {
	ID                 uuid.UUID    `json:"id"`
	NonConformityID    uuid.UUID    `json:"non_conformity_id"`
	Code               string       `json:"code"`
	Type               string       `json:"type,omitempty"`
	Description        string       `json:"description,omitempty"`
	RootCauseAnalysis  string       `json:"root_cause_analysis,omitempty"`
	ActionPlan         string       `json:"action_plan,omitempty"`
	Evidence           string       `json:"evidence,omitempty"`
	ResponsibleID      *uuid.UUID   `json:"responsible_id,omitempty"`
	CommittedAt        *time.Time   `json:"committed_at,omitempty"`
	ImplementedAt      *time.Time   `json:"implemented_at,omitempty"`
	Status             ActionStatus `json:"status"`
	EffectivenessScore *int         `json:"effectiveness_score,omitempty"`
	VerifiedBy         *uuid.UUID   `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time   `json:"verified_at,omitempty"`
	Observations       string       `json:"observations,omitempty"`
	Active             bool         `json:"active"`
	CreatedBy          uuid.UUID    `json:"created_by"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Verification carries the caller-supplied effectiveness decision for
// closing a corrective action. An explicit Effective decision wins; otherwise
// Score must be present and effectiveness derives from the pass mark.
type Verification struct {
	Observations string `json:"observations,omitempty"`
	Effective    *bool  `json:"effective,omitempty"`
	Score        *int   `json:"score,omitempty"`
}

// Decide resolves the effectiveness outcome. The second return value is
// false when neither an explicit decision nor a score was supplied.
func (v Verification) Decide() (effective bool, ok bool) {
	if v.Effective != nil {
		return *v.Effective, true
	}
	if v.Score != nil {
		return *v.Score >= EffectivenessPassMark, true
	}
	return false, false
}
