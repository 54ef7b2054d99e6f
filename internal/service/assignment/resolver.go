// internal/service/assignment/resolver.go
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfloor-service/internal/domain/assignment"
	"shopfloor-service/internal/domain/factory"
	xerrors "shopfloor-service/internal/pkg/errors"
	"shopfloor-service/internal/pkg/session"
	"shopfloor-service/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// errScanAborted forces a rollback for conflict outcomes without surfacing
// an error to the caller. Conflicts are control flow, not failures.
var errScanAborted = errors.New("scan decision aborted")

// Runner executes a unit of work transactionally with conflict retry.
type Runner interface {
	WithRetry(ctx context.Context, fn postgres.TxFunc) error
}

// Store is the assignment persistence the resolver decides over.
type Store interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, lineID, processID int64, workDate time.Time) (*assignment.ProcessAssignment, error)
	Create(ctx context.Context, tx pgx.Tx, a *assignment.ProcessAssignment) error
	UpdateMaterials(ctx context.Context, tx pgx.Tx, id int64, materials int) error
	SwitchAssignee(ctx context.Context, tx pgx.Tx, id, newEmployeeID int64) error
}

// ProductionStore records the attendance/output side effects of a scan.
type ProductionStore interface {
	// RecordScanSideEffects is savepoint-guarded best effort: a failure rolls
	// back only the side effects, never the assignment decision.
	RecordScanSideEffects(ctx context.Context, tx pgx.Tx, lineID, processID, employeeID int64, workDate time.Time, hour, quantity int) error
	// UpsertHourlyOutput is strict: close-out quantities must not be dropped.
	UpsertHourlyOutput(ctx context.Context, tx pgx.Tx, lineID, processID, employeeID int64, workDate time.Time, hour, quantity int) error
}

// EmployeeStore resolves scanned employees.
type EmployeeStore interface {
	FindEmployeeByID(ctx context.Context, id int64) (*factory.Employee, error)
}

// Lister reads the line board outside the decision path.
type Lister interface {
	ListByLine(ctx context.Context, lineID int64, workDate time.Time) ([]*assignment.ProcessAssignment, error)
}

// AuditRecorder writes audit entries inside the decision's transaction.
type AuditRecorder interface {
	RecordWithTx(ctx context.Context, tx pgx.Tx, identity *session.Identity, action, entity string, entityID int64, detail interface{}, ip string) error
}

// Service is the scan-to-assign state machine. States are unassigned and
// assigned(employee, runningQty); reassignment away from a different
// employee requires explicit confirmation plus a close-out quantity.
type Service struct {
	db         Runner
	store      Store
	lister     Lister
	production ProductionStore
	employees  EmployeeStore
	audit      AuditRecorder
	logger     *zap.Logger

	// injectable clock for tests
	now func() time.Time
}

func NewService(db Runner, store Store, lister Lister, production ProductionStore, employees EmployeeStore, audit AuditRecorder, logger *zap.Logger) *Service {
	return &Service{
		db:         db,
		store:      store,
		lister:     lister,
		production: production,
		employees:  employees,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

// ResolveScan decides one scan-to-assign request. The (line, process, day)
// row is locked for the whole decision so concurrent scans serialize.
func (s *Service) ResolveScan(ctx context.Context, identity *session.Identity, in assignment.ScanInput, ip string) (*assignment.ScanResult, error) {
	emp, err := s.employees.FindEmployeeByID(ctx, in.EmployeeID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrInvalidQRCode
		}
		return nil, err
	}
	if !emp.Active {
		return nil, fmt.Errorf("employee %s is not active", emp.BadgeNo)
	}

	now := s.now()
	workDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	hour := now.Hour()

	var result *assignment.ScanResult

	err = s.db.WithRetry(ctx, func(ctx context.Context, tx pgx.Tx) error {
		cur, err := s.store.GetForUpdate(ctx, tx, in.LineID, in.ProcessID, workDate)
		if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
			return err
		}

		switch {
		case cur == nil:
			// unassigned -> assigned(employee)
			a := &assignment.ProcessAssignment{
				LineID:          in.LineID,
				ProcessID:       in.ProcessID,
				WorkDate:        workDate,
				EmployeeID:      in.EmployeeID,
				MaterialsAtLink: in.MaterialsAtLink,
			}
			if err := s.store.Create(ctx, tx, a); err != nil {
				return err
			}
			s.recordSideEffects(ctx, tx, in, workDate, hour)
			if err := s.audit.RecordWithTx(ctx, tx, identity, "assign", "assignments", a.ID,
				map[string]int64{"employee_id": in.EmployeeID, "process_id": in.ProcessID}, ip); err != nil {
				return err
			}
			result = &assignment.ScanResult{Outcome: assignment.OutcomeSuccess, Employee: emp}
			return nil

		case cur.EmployeeID == in.EmployeeID:
			// assigned(e) -> assigned(e): confirming re-scan
			if in.MaterialsAtLink > 0 {
				if err := s.store.UpdateMaterials(ctx, tx, cur.ID, in.MaterialsAtLink); err != nil {
					return err
				}
			}
			s.recordSideEffects(ctx, tx, in, workDate, hour)
			result = &assignment.ScanResult{Outcome: assignment.OutcomeSuccess, Employee: emp}
			return nil

		case !in.ConfirmChange:
			// A different employee holds the process; ask before switching.
			result = &assignment.ScanResult{Outcome: assignment.OutcomeConfirmRequired}
			return errScanAborted

		case in.QuantityCompleted == nil:
			// Output accounting is assignee-scoped: the switch needs the
			// outgoing assignee's final count.
			result = &assignment.ScanResult{Outcome: assignment.OutcomeQuantityRequired}
			return errScanAborted

		default:
			// assigned(e1) -> assigned(e2) with close-out of e1
			closeOut := *in.QuantityCompleted
			if delta := closeOut - cur.QuantityCompleted; delta > 0 {
				if err := s.production.UpsertHourlyOutput(ctx, tx, cur.LineID, cur.ProcessID, cur.EmployeeID, workDate, hour, delta); err != nil {
					return err
				}
			}
			if err := s.store.SwitchAssignee(ctx, tx, cur.ID, in.EmployeeID); err != nil {
				return err
			}
			s.recordSideEffects(ctx, tx, in, workDate, hour)
			if err := s.audit.RecordWithTx(ctx, tx, identity, "reassign", "assignments", cur.ID,
				map[string]int64{
					"from_employee_id": cur.EmployeeID,
					"to_employee_id":   in.EmployeeID,
					"close_out_qty":    int64(closeOut),
				}, ip); err != nil {
				return err
			}
			result = &assignment.ScanResult{Outcome: assignment.OutcomeSuccess, Employee: emp}
			return nil
		}
	})

	if err != nil && !errors.Is(err, errScanAborted) {
		return nil, err
	}
	return result, nil
}

// ListToday returns today's assignments for a line.
func (s *Service) ListToday(ctx context.Context, lineID int64) ([]*assignment.ProcessAssignment, error) {
	now := s.now()
	workDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.lister.ListByLine(ctx, lineID, workDate)
}

// recordSideEffects marks attendance (and any walk-up quantity) for the
// scanned employee. Failures roll back to a savepoint inside the store and
// are logged here; they never abort the assignment decision.
func (s *Service) recordSideEffects(ctx context.Context, tx pgx.Tx, in assignment.ScanInput, workDate time.Time, hour int) {
	if err := s.production.RecordScanSideEffects(ctx, tx, in.LineID, in.ProcessID, in.EmployeeID, workDate, hour, 0); err != nil {
		s.logger.Warn("scan side effects dropped",
			zap.Int64("line_id", in.LineID),
			zap.Int64("process_id", in.ProcessID),
			zap.Int64("employee_id", in.EmployeeID),
			zap.Error(err),
		)
	}
}
