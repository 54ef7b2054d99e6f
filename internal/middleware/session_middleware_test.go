package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopfloor-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *session.Registry, *SessionMiddleware) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := session.NewRegistry(session.Config{}, nil)
	m := NewSessionMiddleware(registry)

	r := gin.New()
	r.Use(m.Resolve())
	return r, registry, m
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResolveWithoutToken(t *testing.T) {
	r, _, _ := newTestRouter(t)
	r.GET("/probe", func(c *gin.Context) {
		if _, ok := GetIdentity(c); ok {
			t.Error("anonymous request resolved an identity")
		}
		c.Status(http.StatusOK)
	})

	if w := doRequest(r, ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestResolveWithValidToken(t *testing.T) {
	r, registry, _ := newTestRouter(t)
	sess, _ := registry.Create(7, "wanjiru", "supervisor", "10.0.0.1", "")

	r.GET("/probe", func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			t.Fatal("identity missing")
		}
		if identity.UserID != 7 || identity.Role != "supervisor" {
			t.Errorf("identity = %+v", identity)
		}
		if GetSessionToken(c) != sess.ID {
			t.Error("session token not attached")
		}
		c.Status(http.StatusOK)
	})

	if w := doRequest(r, sess.ID); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestResolveDestroysStaleToken(t *testing.T) {
	r, registry, _ := newTestRouter(t)
	r.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(r, "deadbeef")
	if w.Code != http.StatusOK {
		t.Fatalf("stale token must not block the request, status = %d", w.Code)
	}
	cleared := false
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == SessionCookie && cookie.Value == "" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("stale session cookie not cleared")
	}
	if registry.Count() != 0 {
		t.Errorf("Count = %d", registry.Count())
	}
}

func TestRequireAuth(t *testing.T) {
	r, registry, m := newTestRouter(t)
	r.GET("/probe", m.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := doRequest(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}

	sess, _ := registry.Create(1, "u", "admin", "", "")
	if w := doRequest(r, sess.ID); w.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	r, registry, m := newTestRouter(t)
	r.POST("/probe", m.RequireAuth(), m.RequireRole("admin", "engineer"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	supervisor, _ := registry.Create(1, "s", "supervisor", "", "")
	engineer, _ := registry.Create(2, "e", "engineer", "", "")

	post := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/probe", strings.NewReader("{}"))
		req.Header.Set(SessionHeader, token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := post(supervisor.ID); code != http.StatusForbidden {
		t.Errorf("supervisor status = %d, want 403", code)
	}
	if code := post(engineer.ID); code != http.StatusCreated {
		t.Errorf("engineer status = %d, want 201", code)
	}
}
