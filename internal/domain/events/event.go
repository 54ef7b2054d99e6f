// internal/domain/events/event.go
package events

import "encoding/json"

// Channel is the change-feed channel name every committed change is
// published on.
const Channel = "shopfloor_changes"

// Actions carried by change notifications.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Watched entity kinds that trigger QR regeneration on insert.
const (
	EntityEmployee  = "employees"
	EntityLine      = "lines"
	EntityProcess   = "processes"
	EntityOperation = "operations"
)

// ChangeEvent describes one committed change. Events are idempotent hints to
// refetch; no ordering is guaranteed across transactions.
type ChangeEvent struct {
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
	LineID int64  `json:"line_id,omitempty"`
}

// Parse decodes a raw notification payload.
func Parse(payload string) (*ChangeEvent, error) {
	var evt ChangeEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// IsWatchedInsert reports whether the event should trigger QR regeneration.
func (e *ChangeEvent) IsWatchedInsert() bool {
	if e.Action != ActionInsert {
		return false
	}
	switch e.Entity {
	case EntityEmployee, EntityLine, EntityProcess, EntityOperation:
		return true
	}
	return false
}
