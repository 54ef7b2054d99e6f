// internal/repository/postgres/factory_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"shopfloor-service/internal/domain/events"
	"shopfloor-service/internal/domain/factory"
	xerrors "shopfloor-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FactoryRepository persists the master data the floor runs on: employees,
// lines, processes and operations. Inserts notify the change feed so
// dashboards refresh and QR artifacts regenerate.
type FactoryRepository struct {
	db *pgxpool.Pool
}

func NewFactoryRepository(db *pgxpool.Pool) *FactoryRepository {
	return &FactoryRepository{db: db}
}

// notify publishes a change event on the shared feed channel. Errors are
// returned so callers inside a transaction can surface them; the payload is
// only delivered after commit.
func notify(ctx context.Context, tx pgx.Tx, evt events.ChangeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, events.Channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify change feed: %w", err)
	}
	return nil
}

// ========== Employees ==========

func (r *FactoryRepository) CreateEmployee(ctx context.Context, tx pgx.Tx, e *factory.Employee) error {
	query := `
		INSERT INTO employees (badge_no, full_name, department, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, active, created_at, updated_at
	`
	err := tx.QueryRow(ctx, query, e.BadgeNo, e.FullName, e.Department).Scan(
		&e.ID, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return notify(ctx, tx, events.ChangeEvent{Entity: events.EntityEmployee, Action: events.ActionInsert, ID: e.ID})
}

func (r *FactoryRepository) FindEmployeeByID(ctx context.Context, id int64) (*factory.Employee, error) {
	query := `
		SELECT id, badge_no, full_name, department, active, created_at, updated_at
		FROM employees
		WHERE id = $1
	`
	var e factory.Employee
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.BadgeNo, &e.FullName, &e.Department, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return &e, nil
}

func (r *FactoryRepository) ListEmployees(ctx context.Context) ([]*factory.Employee, error) {
	query := `
		SELECT id, badge_no, full_name, department, active, created_at, updated_at
		FROM employees
		WHERE active = TRUE
		ORDER BY full_name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var out []*factory.Employee
	for rows.Next() {
		var e factory.Employee
		if err := rows.Scan(&e.ID, &e.BadgeNo, &e.FullName, &e.Department, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ========== Lines ==========

func (r *FactoryRepository) CreateLine(ctx context.Context, tx pgx.Tx, l *factory.Line) error {
	query := `
		INSERT INTO lines (name, area, active)
		VALUES ($1, $2, TRUE)
		RETURNING id, active, created_at
	`
	err := tx.QueryRow(ctx, query, l.Name, l.Area).Scan(&l.ID, &l.Active, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create line: %w", err)
	}
	return notify(ctx, tx, events.ChangeEvent{Entity: events.EntityLine, Action: events.ActionInsert, ID: l.ID})
}

func (r *FactoryRepository) ListLines(ctx context.Context) ([]*factory.Line, error) {
	query := `
		SELECT id, name, area, active, created_at
		FROM lines
		WHERE active = TRUE
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	defer rows.Close()

	var out []*factory.Line
	for rows.Next() {
		var l factory.Line
		if err := rows.Scan(&l.ID, &l.Name, &l.Area, &l.Active, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ========== Processes ==========

func (r *FactoryRepository) CreateProcess(ctx context.Context, tx pgx.Tx, p *factory.Process) error {
	query := `
		INSERT INTO processes (line_id, name, sequence, operation_id, machine)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := tx.QueryRow(ctx, query, p.LineID, p.Name, p.Sequence, p.OperationID, p.Machine).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create process: %w", err)
	}
	return notify(ctx, tx, events.ChangeEvent{Entity: events.EntityProcess, Action: events.ActionInsert, ID: p.ID, LineID: p.LineID})
}

func (r *FactoryRepository) ListProcessesByLine(ctx context.Context, lineID int64) ([]*factory.Process, error) {
	query := `
		SELECT id, line_id, name, sequence, operation_id, machine, created_at
		FROM processes
		WHERE line_id = $1
		ORDER BY sequence
	`
	rows, err := r.db.Query(ctx, query, lineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	defer rows.Close()

	var out []*factory.Process
	for rows.Next() {
		var p factory.Process
		if err := rows.Scan(&p.ID, &p.LineID, &p.Name, &p.Sequence, &p.OperationID, &p.Machine, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan process: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ========== Operations ==========

func (r *FactoryRepository) CreateOperation(ctx context.Context, tx pgx.Tx, o *factory.Operation) error {
	query := `
		INSERT INTO operations (code, description, std_minutes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := tx.QueryRow(ctx, query, o.Code, o.Description, o.StdMinutes).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}
	return notify(ctx, tx, events.ChangeEvent{Entity: events.EntityOperation, Action: events.ActionInsert, ID: o.ID})
}

func (r *FactoryRepository) ListOperations(ctx context.Context) ([]*factory.Operation, error) {
	query := `
		SELECT id, code, description, std_minutes, created_at
		FROM operations
		ORDER BY code
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var out []*factory.Operation
	for rows.Next() {
		var o factory.Operation
		if err := rows.Scan(&o.ID, &o.Code, &o.Description, &o.StdMinutes, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
