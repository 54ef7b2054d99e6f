// internal/service/audit/audit.go
package audit

import (
	"context"
	"encoding/json"

	auditdomain "shopfloor-service/internal/domain/audit"
	"shopfloor-service/internal/pkg/session"
	"shopfloor-service/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Writer records audit entries for state-changing operations.
type Writer struct {
	repo   *postgres.AuditRepository
	logger *zap.Logger
}

func NewWriter(repo *postgres.AuditRepository, logger *zap.Logger) *Writer {
	return &Writer{repo: repo, logger: logger}
}

func newEntry(identity *session.Identity, action, entity string, entityID int64, detail interface{}, ip string) *auditdomain.Entry {
	e := &auditdomain.Entry{
		ID:        ulid.Make().String(),
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		IPAddress: ip,
	}
	if identity != nil {
		e.ActorID = identity.UserID
		e.Actor = identity.Username
	}
	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			e.Detail = b
		}
	}
	return e
}

// RecordWithTx writes the entry inside tx so it commits with the operation.
func (w *Writer) RecordWithTx(ctx context.Context, tx pgx.Tx, identity *session.Identity, action, entity string, entityID int64, detail interface{}, ip string) error {
	return w.repo.CreateWithTx(ctx, tx, newEntry(identity, action, entity, entityID, detail, ip))
}

// Record writes the entry outside any transaction. Errors are logged, not
// returned; audit must not fail the operation it describes.
func (w *Writer) Record(ctx context.Context, identity *session.Identity, action, entity string, entityID int64, detail interface{}, ip string) {
	if err := w.repo.Create(ctx, newEntry(identity, action, entity, entityID, detail, ip)); err != nil {
		w.logger.Error("failed to write audit entry",
			zap.String("action", action),
			zap.String("entity", entity),
			zap.Error(err),
		)
	}
}
