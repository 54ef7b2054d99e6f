// internal/repository/postgres/audit_repo.go
package postgres

import (
	"context"
	"fmt"

	"shopfloor-service/internal/domain/audit"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateWithTx writes an audit entry inside the caller's transaction so the
// entry commits or rolls back with the operation it describes.
func (r *AuditRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, e *audit.Entry) error {
	query := `
		INSERT INTO audit_log (id, actor_id, actor, action, entity, entity_id, detail, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query,
		e.ID, e.ActorID, e.Actor, e.Action, e.Entity, e.EntityID, e.Detail, e.IPAddress,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// Create writes an audit entry on its own connection, outside any transaction.
func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	query := `
		INSERT INTO audit_log (id, actor_id, actor, action, entity, entity_id, detail, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		e.ID, e.ActorID, e.Actor, e.Action, e.Entity, e.EntityID, e.Detail, e.IPAddress,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}
