package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-liveqa/internal/usecase"
)

// AuthHandler exposes the stub login and logout endpoints. Sessions exist so
// rate limiting can key on a stable user identity; there is no real
// credential verification behind them.
type AuthHandler struct {
	auth       *usecase.AuthService
	cookieName string
	secure     bool
}

// NewAuthHandler constructs an auth handler. secure controls the cookie's
// Secure attribute and should be true in production.
func NewAuthHandler(auth *usecase.AuthService, cookieName string, secure bool) *AuthHandler {
	if cookieName == "" {
		cookieName = "sid"
	}
	return &AuthHandler{auth: auth, cookieName: cookieName, secure: secure}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	_ = c.ShouldBindJSON(&req)

	sid, ttl, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Invalid credentials"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to create session"))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, sid, int(ttl.Seconds()), "/", "", h.secure, true)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if sid, err := c.Cookie(h.cookieName); err == nil && sid != "" {
		if err := h.auth.Logout(c.Request.Context(), sid); err != nil {
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to end session"))
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
