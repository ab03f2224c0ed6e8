package auditlifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/qmscore/quality-compliance-backend/internal/domain/auditing"
	"github.com/qmscore/quality-compliance-backend/internal/domain/quality"
)

// Service drives an audit through its linear lifecycle and manages the
// findings recorded against it. Closure is gated on the checklist, the
// final report and the resolution of every finding and linked
// non-conformity.
type Service interface {
	// StartAudit moves a planned audit into execution. The first audit
	// started under an approved program promotes the program to
	// in-execution.
	StartAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error)

	// CompleteAudit marks fieldwork done. A default final report is
	// synthesized when none was written.
	CompleteAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error)

	// CloseAudit runs the closure gate and finalizes the audit.
	CloseAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error)

	// CreateFinding records a finding against an audit. An NC-typed
	// finding that already carries a non-conformity link gets a draft
	// corrective action created for it.
	CreateFinding(ctx context.Context, req CreateFindingRequest, actorID uuid.UUID) (*auditing.Finding, error)

	// GenerateNonConformity creates and links a non-conformity for an
	// NC-typed finding that does not have one yet.
	GenerateNonConformity(ctx context.Context, findingID, actorID uuid.UUID) (*quality.NonConformity, error)

	// VerifyFinding closes a finding after verification. A linked
	// non-conformity must already be closed.
	VerifyFinding(ctx context.Context, findingID, actorID uuid.UUID, result string) (*auditing.Finding, error)
}

// CreateFindingRequest carries the data for a new audit finding.
type CreateFindingRequest struct {
	AuditID         uuid.UUID  `json:"audit_id" validate:"required"`
	Code            string     `json:"code" validate:"required,max=50"`
	Description     string     `json:"description" validate:"required"`
	Type            string     `json:"type" validate:"required,oneof=observacion no_conformidad_menor no_conformidad_mayor"`
	NonConformityID *uuid.UUID `json:"non_conformity_id,omitempty"`
	ProcessID       *uuid.UUID `json:"process_id,omitempty"`
	StageID         *uuid.UUID `json:"stage_id,omitempty"`
	Evidence        string     `json:"evidence,omitempty"`
}

// AuditRepository persists audits.
type AuditRepository interface {
	GetByID(ctx context.Context, auditID uuid.UUID) (*auditing.Audit, error)
	Update(ctx context.Context, audit *auditing.Audit) error
}

// ProgramRepository persists audit programs.
type ProgramRepository interface {
	GetByID(ctx context.Context, programID uuid.UUID) (*auditing.Program, error)
	Update(ctx context.Context, program *auditing.Program) error
}

// FindingRepository persists audit findings.
type FindingRepository interface {
	GetByID(ctx context.Context, findingID uuid.UUID) (*auditing.Finding, error)
	ListByAudit(ctx context.Context, auditID uuid.UUID) ([]*auditing.Finding, error)
	CountByAudit(ctx context.Context, auditID uuid.UUID) (int, error)
	Save(ctx context.Context, finding *auditing.Finding) error
	Update(ctx context.Context, finding *auditing.Finding) error
}

// NonConformityRepository persists non-conformities.
type NonConformityRepository interface {
	GetByID(ctx context.Context, ncID uuid.UUID) (*quality.NonConformity, error)
	Save(ctx context.Context, nc *quality.NonConformity) error
	// NextSequence returns the next global non-conformity sequence number.
	NextSequence(ctx context.Context) (int, error)
}

// ActionRepository reads corrective actions linked to non-conformities.
type ActionRepository interface {
	CountByNonConformity(ctx context.Context, ncID uuid.UUID) (int, error)
	Save(ctx context.Context, action *quality.CorrectiveAction) error
}

// ChecklistRepository reads checklist field definitions and the answers an
// audit has recorded against them.
type ChecklistRepository interface {
	ListFields(ctx context.Context, formID uuid.UUID, version int) ([]*auditing.ChecklistField, error)
	ListAnswers(ctx context.Context, auditID uuid.UUID) ([]*auditing.ChecklistAnswer, error)
}

// ProcessRepository checks process references on findings.
type ProcessRepository interface {
	Exists(ctx context.Context, processID uuid.UUID) (bool, error)
}

// HistoryRepository appends state-transition history rows.
type HistoryRepository interface {
	Append(ctx context.Context, entry *auditing.StateHistory) error
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
