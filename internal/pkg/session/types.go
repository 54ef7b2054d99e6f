// internal/pkg/session/types.go
package session

import "time"

// Session binds an opaque token to an authenticated identity. Sessions live
// only in this process; horizontal scaling needs an external shared store.
type Session struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

// Identity is the minimal resolved identity attached to a request context.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Config carries the registry tunables. Zero values fall back to defaults.
type Config struct {
	MaxAge           time.Duration
	IdleTimeout      time.Duration
	RenewalThreshold time.Duration
	MaxPerUser       int
	SweepInterval    time.Duration
}

const (
	DefaultMaxAge           = 8 * time.Hour
	DefaultIdleTimeout      = 30 * time.Minute
	DefaultRenewalThreshold = time.Hour
	DefaultMaxPerUser       = 5
	DefaultSweepInterval    = 5 * time.Minute

	maxUserAgentLen = 200
)

func (c Config) withDefaults() Config {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.RenewalThreshold <= 0 {
		c.RenewalThreshold = DefaultRenewalThreshold
	}
	if c.MaxPerUser <= 0 {
		c.MaxPerUser = DefaultMaxPerUser
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}
