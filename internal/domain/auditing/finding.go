package auditing

import (
	"time"

	"github.com/google/uuid"
)

// FindingType classifies an audit finding.
type FindingType string

const (
	FindingObservation FindingType = "observacion"
	FindingMinorNC     FindingType = "no_conformidad_menor"
	FindingMajorNC     FindingType = "no_conformidad_mayor"
)

// IsNonConformity reports whether the finding type may carry a linked
// non-conformity.
func (t FindingType) IsNonConformity() bool {
	return t == FindingMinorNC || t == FindingMajorNC
}

// FindingStatus of a finding.
type FindingStatus string

const (
	FindingStatusOpen   FindingStatus = "abierto"
	FindingStatusClosed FindingStatus = "cerrado"
)

// Finding is an observation recorded during an audit, possibly classified
// as a non-conformity. An NC-typed finding links to at most one
// non-conformity, created on demand and never duplicated.
type Finding struct {
	ID                 uuid.UUID     `json:"id"`
	AuditID            uuid.UUID     `json:"audit_id"`
	Code               string        `json:"code"`
	Description        string        `json:"description"`
	Type               FindingType   `json:"type"`
	NonConformityID    *uuid.UUID    `json:"non_conformity_id,omitempty"`
	ProcessID          *uuid.UUID    `json:"process_id,omitempty"`
	StageID            *uuid.UUID    `json:"stage_id,omitempty"`
	Evidence           string        `json:"evidence,omitempty"`
	Status             FindingStatus `json:"status"`
	VerifiedBy         *uuid.UUID    `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time    `json:"verified_at,omitempty"`
	VerificationResult string        `json:"verification_result,omitempty"`
	Active             bool          `json:"active"`
	CreatedBy          uuid.UUID     `json:"created_by"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}
