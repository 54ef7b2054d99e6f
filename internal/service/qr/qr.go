// internal/service/qr/qr.go
package qr

import (
	"context"
	"fmt"
	"time"

	"shopfloor-service/internal/domain/events"
	"shopfloor-service/internal/pkg/qrtoken"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheTTL = 30 * 24 * time.Hour

// Service mints signed QR payloads for floor entities and caches the latest
// payload per entity. Triggered by insert events off the change feed and by
// explicit handler requests.
type Service struct {
	codec  *qrtoken.Codec
	cache  *redis.Client // optional
	logger *zap.Logger
}

func NewService(codec *qrtoken.Codec, cache *redis.Client, logger *zap.Logger) *Service {
	return &Service{codec: codec, cache: cache, logger: logger}
}

func kindForEntity(entity string) (qrtoken.Kind, bool) {
	switch entity {
	case events.EntityEmployee:
		return qrtoken.KindEmployee, true
	case events.EntityLine:
		return qrtoken.KindLine, true
	case events.EntityProcess:
		return qrtoken.KindProcess, true
	case events.EntityOperation:
		return qrtoken.KindOperation, true
	}
	return "", false
}

// Regenerate mints a fresh payload for the entity and caches it. Implements
// the change-feed derived action.
func (s *Service) Regenerate(ctx context.Context, entity string, id int64) error {
	kind, ok := kindForEntity(entity)
	if !ok {
		return fmt.Errorf("no qr artifact for entity %q", entity)
	}

	payload, err := s.codec.Mint(kind, id)
	if err != nil {
		return err
	}

	if s.cache != nil {
		key := cacheKey(kind, id)
		if err := s.cache.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
			return fmt.Errorf("failed to cache qr payload: %w", err)
		}
	}

	s.logger.Info("qr payload regenerated", zap.String("entity", entity), zap.Int64("id", id))
	return nil
}

// Payload returns the current payload for an entity, minting on cache miss.
func (s *Service) Payload(ctx context.Context, kind qrtoken.Kind, id int64) (string, error) {
	if s.cache != nil {
		val, err := s.cache.Get(ctx, cacheKey(kind, id)).Result()
		if err == nil {
			return val, nil
		}
		if err != redis.Nil {
			s.logger.Warn("qr cache read failed, minting fresh", zap.Error(err))
		}
	}
	return s.codec.Mint(kind, id)
}

// Verify decodes and validates a scanned payload.
func (s *Service) Verify(raw string) (*qrtoken.Payload, error) {
	return s.codec.Verify(raw)
}

func cacheKey(kind qrtoken.Kind, id int64) string {
	return fmt.Sprintf("qr:%s:%d", kind, id)
}
