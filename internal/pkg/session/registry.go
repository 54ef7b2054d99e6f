// internal/pkg/session/registry.go
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	xerrors "shopfloor-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Registry is the process-local session store. All state is in memory and
// guarded by a single RWMutex; critical sections are map reads/writes only.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[int64]map[string]struct{}

	cfg    Config
	logger *zap.Logger

	// injectable clock for tests
	now func() time.Time
}

func NewRegistry(cfg Config, logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byUser:   make(map[int64]map[string]struct{}),
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a new session for the user. When the user's session count
// exceeds MaxPerUser the session with the smallest CreatedAt is evicted.
func (r *Registry) Create(userID int64, username, role, ip, userAgent string) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	if len(userAgent) > maxUserAgentLen {
		userAgent = userAgent[:maxUserAgentLen]
	}

	now := r.now()
	s := &Session{
		ID:           token,
		UserID:       userID,
		Username:     username,
		Role:         role,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(r.cfg.MaxAge),
		IPAddress:    ip,
		UserAgent:    userAgent,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[token] = s
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][token] = struct{}{}

	if len(r.byUser[userID]) > r.cfg.MaxPerUser {
		evicted := r.evictOldestLocked(userID)
		if evicted != "" && r.logger != nil {
			r.logger.Info("evicted oldest session for user",
				zap.Int64("user_id", userID),
				zap.Int("max_sessions", r.cfg.MaxPerUser),
			)
		}
	}

	return s, nil
}

// Validate looks the token up and checks expiry and idle timeout. It never
// mutates state; callers wanting the sliding window must call Touch.
func (r *Registry) Validate(token string) (*Session, error) {
	// Touch and Renew mutate session fields under the write lock, so the
	// validity checks and the copy must stay inside the read lock.
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[token]
	if !ok {
		return nil, xerrors.ErrSessionExpired
	}

	now := r.now()
	if now.After(s.ExpiresAt) {
		return nil, xerrors.ErrSessionExpired
	}
	if now.Sub(s.LastActivity) > r.cfg.IdleTimeout {
		return nil, xerrors.ErrSessionIdle
	}

	copied := *s
	return &copied, nil
}

// Touch records activity on a still-present session.
func (r *Registry) Touch(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[token]; ok {
		s.LastActivity = r.now()
	}
}

// NeedsRenewal reports whether the session is close enough to expiry that the
// caller should Renew it.
func (r *Registry) NeedsRenewal(s *Session) bool {
	return s.ExpiresAt.Sub(r.now()) < r.cfg.RenewalThreshold
}

// Renew pushes the expiry out by a full MaxAge and records activity.
func (r *Registry) Renew(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[token]; ok {
		now := r.now()
		s.ExpiresAt = now.Add(r.cfg.MaxAge)
		s.LastActivity = now
	}
}

// Destroy removes a single session from both mappings.
func (r *Registry) Destroy(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyLocked(token)
}

// DestroyAllForUser removes every session belonging to the user.
func (r *Registry) DestroyAllForUser(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens := r.byUser[userID]
	count := len(tokens)
	for token := range tokens {
		delete(r.sessions, token)
	}
	delete(r.byUser, userID)
	return count
}

// SweepExpired destroys every session failing validation and returns the
// number removed. Run on a fixed interval via Run.
func (r *Registry) SweepExpired() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, s := range r.sessions {
		if now.After(s.ExpiresAt) || now.Sub(s.LastActivity) > r.cfg.IdleTimeout {
			r.destroyLocked(token)
			removed++
		}
	}
	return removed
}

// Count returns the number of live sessions (including not-yet-swept stale ones).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CountForUser returns the number of sessions held by one user.
func (r *Registry) CountForUser(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// Run sweeps expired sessions on the configured interval until ctx ends.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.SweepExpired(); n > 0 && r.logger != nil {
				r.logger.Debug("swept expired sessions", zap.Int("removed", n))
			}
		}
	}
}

func (r *Registry) destroyLocked(token string) {
	s, ok := r.sessions[token]
	if !ok {
		return
	}
	delete(r.sessions, token)
	if tokens, ok := r.byUser[s.UserID]; ok {
		delete(tokens, token)
		if len(tokens) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
}

func (r *Registry) evictOldestLocked(userID int64) string {
	var oldest *Session
	for token := range r.byUser[userID] {
		s := r.sessions[token]
		if s == nil {
			continue
		}
		if oldest == nil || s.CreatedAt.Before(oldest.CreatedAt) {
			oldest = s
		}
	}
	if oldest == nil {
		return ""
	}
	r.destroyLocked(oldest.ID)
	return oldest.ID
}

// generateToken returns a 256-bit random token, hex encoded.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
