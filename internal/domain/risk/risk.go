package risk

import (
	"time"

	"github.com/google/uuid"
)

// Severity bands over probability x impact. The breakpoints are asserted
// business rules; the automation criticality threshold is a separate constant
// on purpose (see internal/service/automation).
const (
	bandCritical = 20
	bandHigh     = 12
	bandMedium   = 6
)

// Level is the categorical severity of a risk.
type Level string

const (
	LevelLow      Level = "bajo"
	LevelMedium   Level = "medio"
	LevelHigh     Level = "alto"
	LevelCritical Level = "critico"
)

// Status of a risk.
type Status string

const (
	StatusActive Status = "activo"
	StatusClosed Status = "cerrado"
)

// Risk is an identified risk against a process, optionally scoped to a
// process stage. Probability and impact are on a 1-5 scale.
type Risk struct {
	ID            uuid.UUID  `json:"id"`
	ProcessID     uuid.UUID  `json:"process_id"`
	StageID       *uuid.UUID `json:"stage_id,omitempty"`
	Code          string     `json:"code"`
	Description   string     `json:"description"`
	Category      string     `json:"category,omitempty"`
	RiskType      string     `json:"risk_type"`
	Probability   int        `json:"probability,omitempty"`
	Impact        int        `json:"impact,omitempty"`
	Level         Level      `json:"level,omitempty"`
	ResidualLevel *int       `json:"residual_level,omitempty"`
	Causes        string     `json:"causes,omitempty"`
	Consequences  string     `json:"consequences,omitempty"`
	ResponsibleID *uuid.UUID `json:"responsible_id,omitempty"`
	Status        Status     `json:"status"`
	IdentifiedAt  *time.Time `json:"identified_at,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	Treatment     string     `json:"treatment,omitempty"`
	Active        bool       `json:"active"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ComputeLevel derives the categorical severity from probability x impact.
// Total over the 1-5 x 1-5 domain.
func ComputeLevel(probability, impact int) Level {
	score := probability * impact
	switch {
	case score >= bandCritical:
		return LevelCritical
	case score >= bandHigh:
		return LevelHigh
	case score >= bandMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Score returns probability x impact, or 0 when either is unset.
func (r *Risk) Score() int {
	if r.Probability > 0 && r.Impact > 0 {
		return r.Probability * r.Impact
	}
	return 0
}

// IsScored reports whether both probability and impact are set.
func (r *Risk) IsScored() bool {
	return r.Probability > 0 && r.Impact > 0
}

// Control is a mitigating control attached to a risk.
type Control struct {
	ID            uuid.UUID  `json:"id"`
	RiskID        uuid.UUID  `json:"risk_id"`
	Description   string     `json:"description"`
	ControlType   string     `json:"control_type"`
	Frequency     string     `json:"frequency,omitempty"`
	ResponsibleID *uuid.UUID `json:"responsible_id,omitempty"`
	Effectiveness string     `json:"effectiveness,omitempty"`
	Active        bool       `json:"active"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// EvaluationRecord is one immutable row of the risk evaluation history.
// Rows are appended on every probability/impact change and never mutated.
type EvaluationRecord struct {
	ID              uuid.UUID `json:"id"`
	RiskID          uuid.UUID `json:"risk_id"`
	PrevProbability *int      `json:"prev_probability,omitempty"`
	PrevImpact      *int      `json:"prev_impact,omitempty"`
	PrevLevel       *Level    `json:"prev_level,omitempty"`
	NewProbability  int       `json:"new_probability"`
	NewImpact       int       `json:"new_impact"`
	NewLevel        Level     `json:"new_level"`
	Justification   string    `json:"justification,omitempty"`
	EvaluatedBy     uuid.UUID `json:"evaluated_by"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// CriticalCompetency declares that a competency, below a minimum level,
// materially affects this risk's severity.
type CriticalCompetency struct {
	ID           uuid.UUID `json:"id"`
	RiskID       uuid.UUID `json:"risk_id"`
	CompetencyID uuid.UUID `json:"competency_id"`
	MinimumLevel string    `json:"minimum_level"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
