package auditing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrailAction is a change-trail action verb. The set is fixed; anything
// else normalizes to UPDATE.
type TrailAction string

const (
	ActionCreate TrailAction = "CREATE"
	ActionUpdate TrailAction = "UPDATE"
	ActionDelete TrailAction = "DELETE"
	ActionClose  TrailAction = "CERRAR"
	ActionVerify TrailAction = "VERIFICAR"
)

var knownActions = map[TrailAction]struct{}{
	ActionCreate: {},
	ActionUpdate: {},
	ActionDelete: {},
	ActionClose:  {},
	ActionVerify: {},
}

// NormalizeAction uppercases and trims the action, mapping unknown verbs
// to UPDATE.
func NormalizeAction(action string) TrailAction {
	a := TrailAction(strings.ToUpper(strings.TrimSpace(action)))
	if _, ok := knownActions[a]; ok {
		return a
	}
	return ActionUpdate
}

// TrailEntry is one append-only change-trail record for a tracked entity.
type TrailEntry struct {
	ID       uuid.UUID              `json:"id"`
	Table    string                 `json:"table"`
	RecordID uuid.UUID              `json:"record_id"`
	Action   TrailAction            `json:"action"`
	ActorID  *uuid.UUID             `json:"actor_id,omitempty"`
	Changes  map[string]interface{} `json:"changes,omitempty"`
	At       time.Time              `json:"at"`
}

// NewTrailEntry builds a trail entry with a normalized action.
func NewTrailEntry(table string, recordID uuid.UUID, action string, actorID *uuid.UUID, changes map[string]interface{}) *TrailEntry {
	return &TrailEntry{
		ID:       uuid.New(),
		Table:    table,
		RecordID: recordID,
		Action:   NormalizeAction(action),
		ActorID:  actorID,
		Changes:  changes,
		At:       time.Now().UTC(),
	}
}
