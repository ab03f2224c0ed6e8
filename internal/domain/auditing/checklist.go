package auditing

import (
	"time"

	"github.com/google/uuid"
)

// ConclusionFieldName is the checklist field that must carry a non-empty
// answer before an audit can close.
const ConclusionFieldName = "conclusion_auditoria"

// ChecklistField is a dynamic-form field definition on an audit checklist.
// Field definitions are external data; this core only reads them.
type ChecklistField struct {
	ID               uuid.UUID `json:"id"`
	FormID           uuid.UUID `json:"form_id"`
	Name             string    `json:"name"`
	Label            string    `json:"label,omitempty"`
	Required         bool      `json:"required"`
	EvidenceRequired bool      `json:"evidence_required"`
	Position         int       `json:"position"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

// ChecklistAnswer is an answer recorded against an audit for one checklist
// field.
type ChecklistAnswer struct {
	ID          uuid.UUID  `json:"id"`
	FieldID     uuid.UUID  `json:"field_id"`
	AuditID     uuid.UUID  `json:"audit_id"`
	Value       string     `json:"value"`
	EvidenceRef string     `json:"evidence_ref,omitempty"`
	AnsweredBy  *uuid.UUID `json:"answered_by,omitempty"`
	AnsweredAt  time.Time  `json:"answered_at"`
	Active      bool       `json:"active"`
}

// HasValue reports whether the answer carries a non-empty value.
func (a *ChecklistAnswer) HasValue() bool {
	return a != nil && a.Value != ""
}

// HasEvidence reports whether the answer carries an attached evidence
// reference.
func (a *ChecklistAnswer) HasEvidence() bool {
	return a != nil && a.EvidenceRef != ""
}
