package competency

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level is an ordered competency level. Unrecognized or missing levels
// compare as unsatisfied.
type Level string

const (
	LevelBasic        Level = "basico"
	LevelIntermediate Level = "intermedio"
	LevelAdvanced     Level = "avanzado"

	// LevelUnevaluated is recorded as the current level of a gap when the
	// person has no evaluation on file.
	LevelUnevaluated Level = "sin_evaluacion"
)

var levelOrder = map[Level]int{
	LevelBasic:        1,
	LevelIntermediate: 2,
	LevelAdvanced:     3,
}

// Normalize lowercases and trims a level string.
func Normalize(level string) Level {
	return Level(strings.ToLower(strings.TrimSpace(level)))
}

// Rank returns the ordering rank of a level and whether it is recognized.
func (l Level) Rank() (int, bool) {
	r, ok := levelOrder[l]
	return r, ok
}

// Satisfies reports whether the current level meets the required one.
// Both levels must be recognized; anything else is unsatisfied.
func Satisfies(current, required Level) bool {
	cur, okCur := current.Rank()
	req, okReq := required.Rank()
	return okCur && okReq && cur >= req
}

// Competency is a catalogue entry (e.g. leadership, welding, internal audit).
type Competency struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Evaluation records a person's achieved level in a competency. The most
// recent active evaluation per (person, competency) is the current level,
// tie-broken by evaluation date then creation time, descending.
type Evaluation struct {
	ID           uuid.UUID  `json:"id"`
	PersonID     uuid.UUID  `json:"person_id"`
	CompetencyID uuid.UUID  `json:"competency_id"`
	Level        Level      `json:"level"`
	State        string     `json:"state"`
	EvaluatedAt  time.Time  `json:"evaluated_at"`
	EvaluatorID  *uuid.UUID `json:"evaluator_id,omitempty"`
	Observations string     `json:"observations,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// GapStatus of a competency gap.
type GapStatus string

const (
	GapStatusOpen       GapStatus = "abierta"
	GapStatusPending    GapStatus = "pendiente"
	GapStatusInTraining GapStatus = "en_capacitacion"
	GapStatusClosed     GapStatus = "cerrada"
)

// OpenGapStatuses are the states in which a gap counts as open for dedup
// and closure purposes.
var OpenGapStatuses = []GapStatus{GapStatusOpen, GapStatusPending, GapStatusInTraining}

// GapKey is the composite natural key of a gap. The optional stage and risk
// references are distinct key components: an absent reference matches only
// rows where the reference is absent, never as a wildcard.
type GapKey struct {
	PersonID     uuid.UUID  `json:"person_id"`
	CompetencyID uuid.UUID  `json:"competency_id"`
	StageID      *uuid.UUID `json:"stage_id,omitempty"`
	RiskID       *uuid.UUID `json:"risk_id,omitempty"`
}

// Gap is a deficit between a person's current level and a required level.
// At most one open gap exists per GapKey; re-detection updates the open row.
type Gap struct {
	ID            uuid.UUID  `json:"id"`
	PersonID      uuid.UUID  `json:"person_id"`
	CompetencyID  uuid.UUID  `json:"competency_id"`
	StageID       *uuid.UUID `json:"stage_id,omitempty"`
	RiskID        *uuid.UUID `json:"risk_id,omitempty"`
	RequiredLevel Level      `json:"required_level"`
	CurrentLevel  Level      `json:"current_level"`
	RiskLevel     string     `json:"risk_level,omitempty"`
	Status        GapStatus  `json:"status"`
	TrainingID    *uuid.UUID `json:"training_id,omitempty"`
	DetectedAt    time.Time  `json:"detected_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Key returns the gap's composite dedup key.
func (g *Gap) Key() GapKey {
	return GapKey{
		PersonID:     g.PersonID,
		CompetencyID: g.CompetencyID,
		StageID:      g.StageID,
		RiskID:       g.RiskID,
	}
}

// IsOpen reports whether the gap is in any open state.
func (g *Gap) IsOpen() bool {
	for _, s := range OpenGapStatuses {
		if g.Status == s {
			return true
		}
	}
	return false
}

// Close marks the gap resolved at the observed level.
func (g *Gap) Close(observed Level, at time.Time) {
	g.Status = GapStatusClosed
	if observed != "" {
		g.CurrentLevel = observed
	}
	g.ResolvedAt = &at
	g.UpdatedAt = at
}
