// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"shopfloor-service/internal/domain/user"
	"shopfloor-service/internal/middleware"
	"shopfloor-service/internal/pkg/response"
	authUsecase "shopfloor-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		var limited *authUsecase.RateLimitedError
		if errors.As(err, &limited) {
			h.logger.Warn("login throttled", zap.String("ip", req.IPAddress))
			response.RateLimited(c, limited.ResetAt)
			return
		}
		h.logger.Error("login failed",
			zap.String("username", req.Username),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.Error(c, http.StatusUnauthorized, "login failed", err)
		return
	}

	h.logger.Info("user logged in",
		zap.Int64("user_id", loginResp.UserID),
		zap.String("username", loginResp.Username),
	)

	middleware.SetSessionCookie(c, loginResp.Token)
	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// Logout destroys the current session (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)
	token := middleware.GetSessionToken(c)

	h.authService.Logout(c.Request.Context(), identity, token, c.ClientIP())
	middleware.ClearSessionCookie(c)

	response.Success(c, http.StatusOK, "logged out", nil)
}

// LogoutAll destroys every session the user holds
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	n := h.authService.LogoutAll(c.Request.Context(), identity, c.ClientIP())
	middleware.ClearSessionCookie(c)

	response.Success(c, http.StatusOK, "logged out everywhere", gin.H{"sessions_destroyed": n})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.MustGetIdentity(c)

	u, err := h.authService.Me(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load profile", err)
		return
	}
	response.Success(c, http.StatusOK, "profile", u)
}
