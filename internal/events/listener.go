// internal/events/listener.go
package events

import (
	"context"
	"sync/atomic"

	domain "shopfloor-service/internal/domain/events"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Regenerator produces a derived artifact (a fresh QR payload) for a newly
// inserted entity. Failures are logged and never reach the broadcast path.
type Regenerator interface {
	Regenerate(ctx context.Context, entity string, id int64) error
}

// Listener consumes the database change feed and hands every parsed event to
// the broadcaster. The upstream subscription is not re-established on error;
// restarting the process (or calling Start again from a supervisor) is the
// recovery path.
type Listener struct {
	pool        *pgxpool.Pool
	broadcaster *Broadcaster
	regen       Regenerator
	logger      *zap.Logger

	started atomic.Bool
}

func NewListener(pool *pgxpool.Pool, b *Broadcaster, regen Regenerator, logger *zap.Logger) *Listener {
	return &Listener{
		pool:        pool,
		broadcaster: b,
		regen:       regen,
		logger:      logger,
	}
}

// Start subscribes to the change feed and processes notifications until ctx
// ends or the connection fails. Idempotent: a second call while running is a
// no-op.
func (l *Listener) Start(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer l.started.Store(false)

		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			l.logger.Error("change feed: failed to acquire connection", zap.Error(err))
			return
		}
		defer conn.Release()

		if _, err := conn.Exec(ctx, "LISTEN "+domain.Channel); err != nil {
			l.logger.Error("change feed: LISTEN failed", zap.Error(err))
			return
		}
		l.logger.Info("change feed subscribed", zap.String("channel", domain.Channel))

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("change feed: lost upstream connection", zap.Error(err))
				return
			}
			l.HandleNotification(ctx, n.Payload)
		}
	}()
}

// HandleNotification parses one raw payload, fires the derived regeneration
// for watched inserts, and broadcasts the event regardless of the derived
// action's outcome.
func (l *Listener) HandleNotification(ctx context.Context, payload string) {
	evt, err := domain.Parse(payload)
	if err != nil {
		l.logger.Warn("change feed: unparseable payload", zap.String("payload", payload), zap.Error(err))
		return
	}

	if evt.IsWatchedInsert() && l.regen != nil {
		// Fire and forget: the regeneration result is only ever awaited for
		// logging. It cannot block or fail the broadcast.
		go func(entity string, id int64) {
			if err := l.regen.Regenerate(context.WithoutCancel(ctx), entity, id); err != nil {
				l.logger.Error("qr regeneration failed",
					zap.String("entity", entity),
					zap.Int64("id", id),
					zap.Error(err),
				)
			}
		}(evt.Entity, evt.ID)
	}

	l.broadcaster.Broadcast(EventDataChange, evt)
}
