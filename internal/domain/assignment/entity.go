// internal/domain/assignment/entity.go
package assignment

import (
	"time"

	"shopfloor-service/internal/domain/factory"
)

// ProcessAssignment relates a (line, process) instance on a working day to
// the employee currently performing it. QuantityCompleted counts output for
// the current assignee only and resets whenever the assignee changes.
type ProcessAssignment struct {
	ID                int64     `json:"id" db:"id"`
	LineID            int64     `json:"line_id" db:"line_id"`
	ProcessID         int64     `json:"process_id" db:"process_id"`
	WorkDate          time.Time `json:"work_date" db:"work_date"`
	EmployeeID        int64     `json:"employee_id" db:"employee_id"`
	QuantityCompleted int       `json:"quantity_completed" db:"quantity_completed"`
	MaterialsAtLink   int       `json:"materials_at_link" db:"materials_at_link"`
	AssignedAt        time.Time `json:"assigned_at" db:"assigned_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// ScanInput is one scan-to-assign request after QR payload resolution.
type ScanInput struct {
	LineID            int64
	ProcessID         int64
	EmployeeID        int64
	MaterialsAtLink   int
	QuantityCompleted *int
	ConfirmChange     bool
}

// Outcome discriminates the resolver's decision. Conflicts are designed
// control flow, not errors: the client re-invokes with the missing input.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeConfirmRequired  Outcome = "confirm_change"
	OutcomeQuantityRequired Outcome = "quantity_required"
)

// ScanResult is the resolver's structured decision.
type ScanResult struct {
	Outcome  Outcome           `json:"outcome"`
	Employee *factory.Employee `json:"employee,omitempty"`
}
