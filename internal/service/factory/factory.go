// internal/service/factory/factory.go
package factory

import (
	"context"
	"database/sql"

	factorydomain "shopfloor-service/internal/domain/factory"
	"shopfloor-service/internal/pkg/session"
	"shopfloor-service/internal/repository/postgres"
	auditsvc "shopfloor-service/internal/service/audit"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Service manages floor master data. Creates run transactionally and notify
// the change feed, which in turn regenerates QR artifacts.
type Service struct {
	db     *postgres.DB
	repo   *postgres.FactoryRepository
	audit  *auditsvc.Writer
	logger *zap.Logger
}

func NewService(db *postgres.DB, repo *postgres.FactoryRepository, audit *auditsvc.Writer, logger *zap.Logger) *Service {
	return &Service{db: db, repo: repo, audit: audit, logger: logger}
}

func (s *Service) CreateEmployee(ctx context.Context, identity *session.Identity, req *factorydomain.CreateEmployeeRequest, ip string) (*factorydomain.Employee, error) {
	e := &factorydomain.Employee{
		BadgeNo:    req.BadgeNo,
		FullName:   req.FullName,
		Department: nullString(req.Department),
	}
	err := s.db.WithRetry(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.CreateEmployee(ctx, tx, e); err != nil {
			return err
		}
		return s.audit.RecordWithTx(ctx, tx, identity, "create", "employees", e.ID, req, ip)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]*factorydomain.Employee, error) {
	return s.repo.ListEmployees(ctx)
}

func (s *Service) CreateLine(ctx context.Context, identity *session.Identity, req *factorydomain.CreateLineRequest, ip string) (*factorydomain.Line, error) {
	l := &factorydomain.Line{Name: req.Name, Area: nullString(req.Area)}
	err := s.db.WithRetry(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.CreateLine(ctx, tx, l); err != nil {
			return err
		}
		return s.audit.RecordWithTx(ctx, tx, identity, "create", "lines", l.ID, req, ip)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) ListLines(ctx context.Context) ([]*factorydomain.Line, error) {
	return s.repo.ListLines(ctx)
}

func (s *Service) CreateProcess(ctx context.Context, identity *session.Identity, req *factorydomain.CreateProcessRequest, ip string) (*factorydomain.Process, error) {
	p := &factorydomain.Process{
		LineID:   req.LineID,
		Name:     req.Name,
		Sequence: req.Sequence,
		Machine:  nullString(req.Machine),
	}
	if req.OperationID > 0 {
		p.OperationID = sql.NullInt64{Int64: req.OperationID, Valid: true}
	}
	err := s.db.WithRetry(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.CreateProcess(ctx, tx, p); err != nil {
			return err
		}
		return s.audit.RecordWithTx(ctx, tx, identity, "create", "processes", p.ID, req, ip)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListProcessesByLine(ctx context.Context, lineID int64) ([]*factorydomain.Process, error) {
	return s.repo.ListProcessesByLine(ctx, lineID)
}

func (s *Service) CreateOperation(ctx context.Context, identity *session.Identity, req *factorydomain.CreateOperationRequest, ip string) (*factorydomain.Operation, error) {
	o := &factorydomain.Operation{Code: req.Code, Description: req.Description}
	if req.StdMinutes > 0 {
		o.StdMinutes = sql.NullFloat64{Float64: req.StdMinutes, Valid: true}
	}
	err := s.db.WithRetry(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.CreateOperation(ctx, tx, o); err != nil {
			return err
		}
		return s.audit.RecordWithTx(ctx, tx, identity, "create", "operations", o.ID, req, ip)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListOperations(ctx context.Context) ([]*factorydomain.Operation, error) {
	return s.repo.ListOperations(ctx)
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
