// internal/middleware/session_middleware.go
package middleware

import (
	"shopfloor-service/internal/pkg/response"
	"shopfloor-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie carries the opaque session token.
	SessionCookie = "shopfloor_session"
	// SessionHeader is the header fallback for non-browser clients.
	SessionHeader = "X-Session-Token"

	cookieMaxAge = 8 * 60 * 60
)

type SessionMiddleware struct {
	registry *session.Registry
}

func NewSessionMiddleware(registry *session.Registry) *SessionMiddleware {
	return &SessionMiddleware{registry: registry}
}

// Resolve attaches the session identity to the request context when a valid
// token is supplied. Requests without a token, or with a stale one, proceed
// unauthenticated; stale tokens are destroyed and cleared client-side.
func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		sess, err := m.registry.Validate(token)
		if err != nil {
			m.registry.Destroy(token)
			clearSessionCookie(c)
			c.Next()
			return
		}

		m.registry.Touch(token)
		if m.registry.NeedsRenewal(sess) {
			m.registry.Renew(token)
		}

		c.Set("identity", &session.Identity{
			UserID:   sess.UserID,
			Username: sess.Username,
			Role:     sess.Role,
		})
		c.Set("session_token", token)
		c.Next()
	}
}

// RequireAuth rejects requests that did not resolve an identity.
// MUST be used after Resolve().
func (m *SessionMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetIdentity(c); !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose role is not in the list.
// MUST be used after RequireAuth().
func (m *SessionMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
	}
}

// SetSessionCookie installs the session token on the client.
func SetSessionCookie(c *gin.Context, token string) {
	c.SetCookie(SessionCookie, token, cookieMaxAge, "/", "", false, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}

// ClearSessionCookie removes the token cookie, e.g. on logout.
func ClearSessionCookie(c *gin.Context) {
	clearSessionCookie(c)
}

// GetIdentity returns the resolved identity, if any.
func GetIdentity(c *gin.Context) (*session.Identity, bool) {
	v, exists := c.Get("identity")
	if !exists {
		return nil, false
	}
	identity, ok := v.(*session.Identity)
	return identity, ok
}

// MustGetIdentity gets the identity from context or panics. Only for
// handlers mounted behind RequireAuth.
func MustGetIdentity(c *gin.Context) *session.Identity {
	identity, ok := GetIdentity(c)
	if !ok {
		panic("identity not found in context")
	}
	return identity
}

// GetSessionToken returns the raw token for the current request.
func GetSessionToken(c *gin.Context) string {
	v, _ := c.Get("session_token")
	token, _ := v.(string)
	return token
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Request.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return c.GetHeader(SessionHeader)
}
