// internal/repository/postgres/assignment_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfloor-service/internal/domain/assignment"
	"shopfloor-service/internal/domain/events"
	xerrors "shopfloor-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssignmentRepository persists the process→employee bindings, one active row
// per (line, process, work date).
type AssignmentRepository struct {
	db *pgxpool.Pool
}

func NewAssignmentRepository(db *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// GetForUpdate loads the current assignment row with an exclusive row lock,
// serializing concurrent scan resolutions for the same (line, process, day).
func (r *AssignmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, lineID, processID int64, workDate time.Time) (*assignment.ProcessAssignment, error) {
	query := `
		SELECT id, line_id, process_id, work_date, employee_id,
		       quantity_completed, materials_at_link, assigned_at, updated_at
		FROM process_assignments
		WHERE line_id = $1 AND process_id = $2 AND work_date = $3
		FOR UPDATE
	`
	var a assignment.ProcessAssignment
	err := tx.QueryRow(ctx, query, lineID, processID, workDate).Scan(
		&a.ID, &a.LineID, &a.ProcessID, &a.WorkDate, &a.EmployeeID,
		&a.QuantityCompleted, &a.MaterialsAtLink, &a.AssignedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock assignment row: %w", err)
	}
	return &a, nil
}

// Create inserts a new assignment with a zero quantity counter.
func (r *AssignmentRepository) Create(ctx context.Context, tx pgx.Tx, a *assignment.ProcessAssignment) error {
	query := `
		INSERT INTO process_assignments
			(line_id, process_id, work_date, employee_id, quantity_completed, materials_at_link)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING id, quantity_completed, assigned_at, updated_at
	`
	err := tx.QueryRow(ctx, query, a.LineID, a.ProcessID, a.WorkDate, a.EmployeeID, a.MaterialsAtLink).
		Scan(&a.ID, &a.QuantityCompleted, &a.AssignedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return notify(ctx, tx, events.ChangeEvent{Entity: "assignments", Action: events.ActionInsert, ID: a.ID, LineID: a.LineID})
}

// UpdateMaterials refreshes the materials-at-link count on a confirmed re-scan.
func (r *AssignmentRepository) UpdateMaterials(ctx context.Context, tx pgx.Tx, id int64, materials int) error {
	_, err := tx.Exec(ctx, `
		UPDATE process_assignments
		SET materials_at_link = $2, updated_at = NOW()
		WHERE id = $1
	`, id, materials)
	if err != nil {
		return fmt.Errorf("failed to update materials: %w", err)
	}
	return nil
}

// SwitchAssignee rebinds the row to the new employee and resets the running
// counter. The outgoing assignee's close-out quantity is recorded separately
// against hourly output. Must be called with the row already locked in this
// transaction.
func (r *AssignmentRepository) SwitchAssignee(ctx context.Context, tx pgx.Tx, id, newEmployeeID int64) error {
	ct, err := tx.Exec(ctx, `
		UPDATE process_assignments
		SET employee_id = $2, quantity_completed = 0, assigned_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, newEmployeeID)
	if err != nil {
		return fmt.Errorf("failed to switch assignee: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return notify(ctx, tx, events.ChangeEvent{Entity: "assignments", Action: events.ActionUpdate, ID: id})
}

// AddQuantityForAssignee accumulates completed output on the running counter,
// but only while the given employee still holds the process. The counter feeds
// the close-out delta on a later assignee switch.
func (r *AssignmentRepository) AddQuantityForAssignee(ctx context.Context, tx pgx.Tx, lineID, processID int64, workDate time.Time, employeeID int64, delta int) error {
	_, err := tx.Exec(ctx, `
		UPDATE process_assignments
		SET quantity_completed = quantity_completed + $5, updated_at = NOW()
		WHERE line_id = $1 AND process_id = $2 AND work_date = $3 AND employee_id = $4
	`, lineID, processID, workDate, employeeID, delta)
	if err != nil {
		return fmt.Errorf("failed to add quantity: %w", err)
	}
	return nil
}

// ListByLine returns the day's assignments for one line.
func (r *AssignmentRepository) ListByLine(ctx context.Context, lineID int64, workDate time.Time) ([]*assignment.ProcessAssignment, error) {
	query := `
		SELECT id, line_id, process_id, work_date, employee_id,
		       quantity_completed, materials_at_link, assigned_at, updated_at
		FROM process_assignments
		WHERE line_id = $1 AND work_date = $2
		ORDER BY process_id
	`
	rows, err := r.db.Query(ctx, query, lineID, workDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []*assignment.ProcessAssignment
	for rows.Next() {
		var a assignment.ProcessAssignment
		if err := rows.Scan(&a.ID, &a.LineID, &a.ProcessID, &a.WorkDate, &a.EmployeeID,
			&a.QuantityCompleted, &a.MaterialsAtLink, &a.AssignedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
