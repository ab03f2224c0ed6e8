package auditing

import (
	"time"

	"github.com/google/uuid"

	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
)

// Status of an audit. Transitions are linear: planned -> in progress ->
// completed -> closed. No skipping, no rollback.
type Status string

const (
	StatusPlanned    Status = "planificada"
	StatusInProgress Status = "en_curso"
	StatusCompleted  Status = "completada"
	StatusClosed     Status = "cerrada"
)

// ProgramStatus of an audit program.
type ProgramStatus string

const (
	ProgramStatusDraft       ProgramStatus = "borrador"
	ProgramStatusApproved    ProgramStatus = "aprobado"
	ProgramStatusInExecution ProgramStatus = "en_ejecucion"
	ProgramStatusClosed      ProgramStatus = "cerrado"
)

// Program is the yearly planning container grouping audits.
type Program struct {
	ID        uuid.UUID     `json:"id"`
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Year      int           `json:"year"`
	Status    ProgramStatus `json:"status"`
	Active    bool          `json:"active"`
	CreatedBy uuid.UUID     `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Audit is a single audit within a program.
type Audit struct {
	ID               uuid.UUID  `json:"id"`
	ProgramID        *uuid.UUID `json:"program_id,omitempty"`
	Code             string     `json:"code"`
	Scope            string     `json:"scope,omitempty"`
	Status           Status     `json:"status"`
	LeadAuditorID    *uuid.UUID `json:"lead_auditor_id,omitempty"`
	ChecklistFormID  *uuid.UUID `json:"checklist_form_id,omitempty"`
	ChecklistVersion *int       `json:"checklist_version,omitempty"`
	FinalReport      string     `json:"final_report,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	Active           bool       `json:"active"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Start moves the audit from planned to in progress. A lead auditor must be
// assigned first.
func (a *Audit) Start(now time.Time) error {
	if a.Status != StatusPlanned {
		return errors.NewInvalidStateError("cannot start an audit in state " + string(a.Status))
	}
	if a.LeadAuditorID == nil {
		return errors.NewPreconditionError("LEAD_AUDITOR_REQUIRED", "a lead auditor must be assigned before starting")
	}
	a.Status = StatusInProgress
	a.StartedAt = &now
	a.UpdatedAt = now
	return nil
}

// Complete moves the audit from in progress to completed. Completion only
// marks fieldwork done; open findings do not block it.
func (a *Audit) Complete(now time.Time) error {
	if a.Status != StatusInProgress {
		return errors.NewInvalidStateError("only audits in progress can be completed")
	}
	a.Status = StatusCompleted
	a.EndedAt = &now
	a.UpdatedAt = now
	return nil
}

// MarkClosed finalizes the audit after the closure gate has passed. The end
// time is stamped only if absent.
func (a *Audit) MarkClosed(now time.Time) {
	a.Status = StatusClosed
	if a.EndedAt == nil {
		a.EndedAt = &now
	}
	a.UpdatedAt = now
}

// StateHistory is one immutable row recording a state transition of a
// tracked entity. History is observational only; it never gates a
// transition.
type StateHistory struct {
	ID         uuid.UUID `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	PrevState  *string   `json:"prev_state,omitempty"`
	NewState   string    `json:"new_state"`
	ActorID    uuid.UUID `json:"actor_id"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
