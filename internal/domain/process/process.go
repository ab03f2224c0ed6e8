package process

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Process is a quality-management process.
type Process struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
	Active      bool       `json:"active"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Stage is an ordered stage within a process.
type Stage struct {
	ID        uuid.UUID `json:"id"`
	ProcessID uuid.UUID `json:"process_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Enabled   bool      `json:"enabled"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// StageRequirement is the baseline competency level a stage demands,
// independent of any risk.
type StageRequirement struct {
	ID            uuid.UUID `json:"id"`
	StageID       uuid.UUID `json:"stage_id"`
	CompetencyID  uuid.UUID `json:"competency_id"`
	RequiredLevel string    `json:"required_level"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Responsible assigns a person to a process for a validity window.
// A nil ValidUntil means the assignment is open-ended.
type Responsible struct {
	ID         uuid.UUID  `json:"id"`
	ProcessID  uuid.UUID  `json:"process_id"`
	PersonID   uuid.UUID  `json:"person_id"`
	Role       string     `json:"role,omitempty"`
	ValidFrom  time.Time  `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Active     bool       `json:"active"`
}

// CoversNow reports whether the assignment's validity window covers now.
func (r *Responsible) CoversNow(now time.Time) bool {
	return r.Active && (r.ValidUntil == nil || r.ValidUntil.After(now))
}

// Instance is a running execution of a process.
type Instance struct {
	ID        uuid.UUID `json:"id"`
	ProcessID uuid.UUID `json:"process_id"`
	Status    string    `json:"status"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant is a person taking part in a process instance.
type Participant struct {
	ID         uuid.UUID `json:"id"`
	InstanceID uuid.UUID `json:"instance_id"`
	PersonID   uuid.UUID `json:"person_id"`
	Active     bool      `json:"active"`
}

// ActionStatus of a process action.
type ActionStatus string

const (
	ActionStatusPlanned    ActionStatus = "planificada"
	ActionStatusInProgress ActionStatus = "en_proceso"
	ActionStatusStarted    ActionStatus = "iniciado"
	ActionStatusClosed     ActionStatus = "cerrada"
)

// OpenActionStatuses are the states in which an auto-generated preventive
// action counts as active for dedup purposes.
var OpenActionStatuses = []ActionStatus{ActionStatusPlanned, ActionStatusInProgress, ActionStatusStarted}

// Action is a preventive or corrective action raised against a process.
type Action struct {
	ID            uuid.UUID    `json:"id"`
	ProcessID     uuid.UUID    `json:"process_id"`
	Code          string       `json:"code"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	ActionType    string       `json:"action_type"`
	Origin        string       `json:"origin,omitempty"`
	ResponsibleID *uuid.UUID   `json:"responsible_id,omitempty"`
	PlannedAt     *time.Time   `json:"planned_at,omitempty"`
	Status        ActionStatus `json:"status"`
	Active        bool         `json:"active"`
	// Nil for system-generated actions; the row keeps a NULL creator.
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PreventiveOrigin is the dedup origin tag for auto-generated preventive
// actions raised by a critical-competency gap on a risk. At most one active
// action per (process, origin) may exist.
func PreventiveOrigin(riskID uuid.UUID) string {
	return fmt.Sprintf("brecha_competencia_critica:%s", riskID)
}
