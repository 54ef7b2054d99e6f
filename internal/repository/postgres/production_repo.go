// internal/repository/postgres/production_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductionRepository records attendance and hourly output, and feeds the
// per-line dashboard summary.
type ProductionRepository struct {
	db *pgxpool.Pool
}

func NewProductionRepository(db *pgxpool.Pool) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// RecordAttendance marks the employee present on the line for the day.
// Idempotent: a second scan on the same day is a no-op.
func (r *ProductionRepository) RecordAttendance(ctx context.Context, tx pgx.Tx, lineID, employeeID int64, workDate time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO attendance (line_id, employee_id, work_date, present)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (line_id, employee_id, work_date) DO NOTHING
	`, lineID, employeeID, workDate)
	if err != nil {
		return fmt.Errorf("failed to record attendance: %w", err)
	}
	return nil
}

// UpsertHourlyOutput accumulates output for one employee on one process in
// the given hour bucket.
func (r *ProductionRepository) UpsertHourlyOutput(ctx context.Context, tx pgx.Tx, lineID, processID, employeeID int64, workDate time.Time, hour, quantity int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO hourly_output (line_id, process_id, employee_id, work_date, hour, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (line_id, process_id, employee_id, work_date, hour)
		DO UPDATE SET quantity = hourly_output.quantity + EXCLUDED.quantity
	`, lineID, processID, employeeID, workDate, hour, quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert hourly output: %w", err)
	}
	return nil
}

const scanSavepoint = "scan_side_effects"

// RecordScanSideEffects marks attendance and any walk-up output for a scan
// under a savepoint. On failure only the side effects are abandoned; the
// surrounding assignment transaction stays committable.
func (r *ProductionRepository) RecordScanSideEffects(ctx context.Context, tx pgx.Tx, lineID, processID, employeeID int64, workDate time.Time, hour, quantity int) error {
	if err := Savepoint(ctx, tx, scanSavepoint); err != nil {
		return err
	}

	err := r.RecordAttendance(ctx, tx, lineID, employeeID, workDate)
	if err == nil && quantity > 0 {
		err = r.UpsertHourlyOutput(ctx, tx, lineID, processID, employeeID, workDate, hour, quantity)
	}

	if err != nil {
		if rbErr := RollbackToSavepoint(ctx, tx, scanSavepoint); rbErr != nil {
			return fmt.Errorf("failed to roll back scan side effects: %w", rbErr)
		}
		return err
	}

	return ReleaseSavepoint(ctx, tx, scanSavepoint)
}

// LineDailySummary is one row of the management dashboard.
type LineDailySummary struct {
	LineID        int64  `json:"line_id"`
	LineName      string `json:"line_name"`
	HeadCount     int    `json:"head_count"`
	TotalQuantity int    `json:"total_quantity"`
}

// DailySummary aggregates attendance head count and total output per line.
func (r *ProductionRepository) DailySummary(ctx context.Context, workDate time.Time) ([]*LineDailySummary, error) {
	query := `
		SELECT l.id, l.name,
		       COALESCE(att.head_count, 0),
		       COALESCE(out.total_qty, 0)
		FROM lines l
		LEFT JOIN (
			SELECT line_id, COUNT(*) AS head_count
			FROM attendance
			WHERE work_date = $1 AND present = TRUE
			GROUP BY line_id
		) att ON att.line_id = l.id
		LEFT JOIN (
			SELECT line_id, SUM(quantity) AS total_qty
			FROM hourly_output
			WHERE work_date = $1
			GROUP BY line_id
		) out ON out.line_id = l.id
		WHERE l.active = TRUE
		ORDER BY l.name
	`
	rows, err := r.db.Query(ctx, query, workDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	defer rows.Close()

	var out []*LineDailySummary
	for rows.Next() {
		var s LineDailySummary
		if err := rows.Scan(&s.LineID, &s.LineName, &s.HeadCount, &s.TotalQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
