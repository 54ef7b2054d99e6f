// internal/domain/factory/entity.go
package factory

import (
	"database/sql"
	"time"
)

// Employee is a shop-floor worker identified by a badge QR code.
type Employee struct {
	ID         int64          `json:"id" db:"id"`
	BadgeNo    string         `json:"badge_no" db:"badge_no"`
	FullName   string         `json:"full_name" db:"full_name"`
	Department sql.NullString `json:"department,omitempty" db:"department"`
	Active     bool           `json:"active" db:"active"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// Line is a production line on the floor.
type Line struct {
	ID        int64          `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Area      sql.NullString `json:"area,omitempty" db:"area"`
	Active    bool           `json:"active" db:"active"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Process is a station within a line where one operation is performed.
type Process struct {
	ID          int64          `json:"id" db:"id"`
	LineID      int64          `json:"line_id" db:"line_id"`
	Name        string         `json:"name" db:"name"`
	Sequence    int            `json:"sequence" db:"sequence"`
	OperationID sql.NullInt64  `json:"operation_id,omitempty" db:"operation_id"`
	Machine     sql.NullString `json:"machine,omitempty" db:"machine"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// Operation is a catalogued manufacturing step assignable to processes.
type Operation struct {
	ID          int64           `json:"id" db:"id"`
	Code        string          `json:"code" db:"code"`
	Description string          `json:"description" db:"description"`
	StdMinutes  sql.NullFloat64 `json:"std_minutes,omitempty" db:"std_minutes"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
