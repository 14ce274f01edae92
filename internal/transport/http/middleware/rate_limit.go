package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/core/port"
)

// IdentifierFunc extracts the identity a rate-limit rule is scoped by.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identity.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces sliding-window admission control against a shared
// marker store.
//
// Semantics per check: record a marker first (every call, rejected ones
// included, so abusive identities keep their window alive), purge expired
// markers, then count. The call is admitted iff the count is within the
// limit. Store failures fail closed: an unreachable limiter store rejects the
// write rather than amplifying it.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// RuleResult reports the outcome of one admission check.
type RuleResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
	Identifier string
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// RequestIdentity derives the rate-limit identity for a request: the
// authenticated user id when present, else the first hop of X-Forwarded-For,
// else a shared "unknown" bucket. The fallback bucket is intentionally coarse.
func RequestIdentity() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		if uid, ok := GetAuthenticatedUserID(c); ok && uid != "" {
			return "u:" + uid, true
		}

		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
			if ip != "" {
				return "ip:" + ip, true
			}
		}

		return "ip:unknown", true
	}
}

// RateLimit returns a Gin middleware enforcing the provided rule.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rule.Identifier == nil {
		rule.Identifier = RequestIdentity()
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		if rl.store == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		identifier, ok := rule.Identifier(c)
		if !ok || identifier == "" {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", rule.Name, identifier)
		now := rl.now()

		res, err := rl.Allow(c.Request.Context(), rule, key, now)
		if err != nil {
			rl.logger.Warn("rate limit store unavailable, failing closed",
				zap.String("rule", rule.Name),
				zap.String("identifier", identifier),
				zap.Error(err),
			)
			rl.respondRateLimited(c, RuleResult{
				Limit:      rule.Limit,
				Identifier: identifier,
				Reset:      now.Add(rule.Window),
				RetryAfter: rule.Window,
			})
			return
		}

		res.Identifier = identifier
		rl.applyHeaders(c, res)

		if !res.Allowed {
			rl.respondRateLimited(c, res)
			return
		}

		c.Next()
	}
}

// Allow performs one sliding-window admission check against the marker key.
func (rl *RateLimiter) Allow(ctx context.Context, rule RateLimitRule, key string, now time.Time) (RuleResult, error) {
	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return RuleResult{}, err
	}

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return RuleResult{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return RuleResult{}, err
	}

	result := RuleResult{
		Limit:   rule.Limit,
		Reset:   now.Add(rule.Window),
		Allowed: count <= rule.Limit,
	}

	oldest, hasAttempts, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return RuleResult{}, err
	}
	if hasAttempts {
		result.Reset = oldest.Add(rule.Window)
	}

	result.Remaining = rule.Limit - count
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	result.RetryAfter = result.Reset.Sub(now)
	if result.RetryAfter < 0 {
		result.RetryAfter = 0
	}

	return result, nil
}

func (rl *RateLimiter) applyHeaders(c *gin.Context, res RuleResult) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
}

func (rl *RateLimiter) respondRateLimited(c *gin.Context, res RuleResult) {
	retrySeconds := int(math.Ceil(res.RetryAfter.Seconds()))
	if retrySeconds < 1 {
		retrySeconds = 1
	}

	c.Writer.Header().Set("Retry-After", strconv.Itoa(retrySeconds))

	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"ok":                false,
		"error":             "Rate limit exceeded. Please slow down.",
		"retryAfterSeconds": retrySeconds,
	})
}
