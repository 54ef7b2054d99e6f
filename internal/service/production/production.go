// internal/service/production/production.go
package production

import (
	"context"
	"fmt"
	"time"

	"shopfloor-service/internal/pkg/session"
	"shopfloor-service/internal/repository/postgres"
	auditsvc "shopfloor-service/internal/service/audit"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Service covers attendance, hourly output and the dashboard summary.
type Service struct {
	db          *postgres.DB
	repo        *postgres.ProductionRepository
	assignments *postgres.AssignmentRepository
	audit       *auditsvc.Writer
	logger      *zap.Logger
}

func NewService(db *postgres.DB, repo *postgres.ProductionRepository, assignments *postgres.AssignmentRepository, audit *auditsvc.Writer, logger *zap.Logger) *Service {
	return &Service{db: db, repo: repo, assignments: assignments, audit: audit, logger: logger}
}

// RecordOutput accumulates quantity for an employee on a process in the
// given hour bucket.
func (s *Service) RecordOutput(ctx context.Context, identity *session.Identity, lineID, processID, employeeID int64, hour, quantity int, ip string) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if hour < 0 || hour > 23 {
		return fmt.Errorf("hour must be in [0, 23]")
	}

	workDate := today()
	err := s.db.WithRetry(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.UpsertHourlyOutput(ctx, tx, lineID, processID, employeeID, workDate, hour, quantity); err != nil {
			return err
		}
		// Keep the assignment's running counter in step; it feeds the
		// close-out delta when the process changes hands.
		if err := s.assignments.AddQuantityForAssignee(ctx, tx, lineID, processID, workDate, employeeID, quantity); err != nil {
			return err
		}
		return s.audit.RecordWithTx(ctx, tx, identity, "record_output", "hourly_output", processID,
			map[string]int{"hour": hour, "quantity": quantity}, ip)
	})
	if err != nil {
		s.logger.Error("failed to record output",
			zap.Int64("line_id", lineID),
			zap.Int64("process_id", processID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// RecordAttendance marks an employee present on a line for today.
func (s *Service) RecordAttendance(ctx context.Context, identity *session.Identity, lineID, employeeID int64, ip string) error {
	workDate := today()
	return s.db.WithRetry(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.RecordAttendance(ctx, tx, lineID, employeeID, workDate); err != nil {
			return err
		}
		return s.audit.RecordWithTx(ctx, tx, identity, "record_attendance", "attendance", employeeID,
			map[string]int64{"line_id": lineID}, ip)
	})
}

// DailySummary returns today's per-line dashboard rows.
func (s *Service) DailySummary(ctx context.Context) ([]*postgres.LineDailySummary, error) {
	return s.repo.DailySummary(ctx, today())
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
