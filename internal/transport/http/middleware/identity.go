package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
)

const (
	// UserIDHeader lets a trusted upstream (or test harness) assert identity
	// directly. It takes priority over the session cookie.
	UserIDHeader = "X-User-ID"

	resolveTimeout = 2 * time.Second
)

// SessionResolver maps a sid cookie to a stored login session.
type SessionResolver interface {
	Resolve(ctx context.Context, sid string) (domain.Session, error)
}

// Identity resolves the requesting user and stores the id on the gin context
// for rate-limit scoping. Resolution is best-effort: anonymous requests pass
// through and fall back to the IP-derived identity.
func Identity(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	if cookieName == "" {
		cookieName = "sid"
	}

	return func(c *gin.Context) {
		if uid := c.GetHeader(UserIDHeader); uid != "" {
			setAuthenticatedUser(c, uid)
			c.Next()
			return
		}

		if resolver != nil {
			if sid, err := c.Cookie(cookieName); err == nil && sid != "" {
				ctx, cancel := context.WithTimeout(c.Request.Context(), resolveTimeout)
				session, resolveErr := resolver.Resolve(ctx, sid)
				cancel()
				if resolveErr == nil && session.UserID != "" {
					setAuthenticatedUser(c, session.UserID)
				}
			}
		}

		c.Next()
	}
}

func setAuthenticatedUser(c *gin.Context, userID string) {
	c.Set(UserIDKey, userID)
	if reqCtx := GetRequestContext(c); reqCtx != nil {
		reqCtx.UserID = userID
	}
}

// GetAuthenticatedUserID retrieves the user ID from context (helper for handlers)
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok {
		return id, true
	}

	return "", false
}
