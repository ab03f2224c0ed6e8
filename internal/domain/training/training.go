package training

import (
	"time"

	"github.com/google/uuid"
)

// Status of a training.
type Status string

const (
	StatusPlanned    Status = "planificada"
	StatusInProgress Status = "en_curso"
	StatusClosed     Status = "cerrada"
)

// Training is a capacity-building activity that can remediate competency
// gaps.
type Training struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Active      bool       `json:"active"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Attendance records a person's participation and evaluation outcome in a
// training.
type Attendance struct {
	ID         uuid.UUID `json:"id"`
	TrainingID uuid.UUID `json:"training_id"`
	PersonID   uuid.UUID `json:"person_id"`
	Attended   bool      `json:"attended"`
	Passed     bool      `json:"passed"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Qualified reports whether the attendance closes gaps: the person must
// have both attended and passed the evaluation.
func (a *Attendance) Qualified() bool {
	return a.Attended && a.Passed
}
