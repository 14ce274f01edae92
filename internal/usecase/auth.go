package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/core/port"
	"github.com/arklim/social-platform-liveqa/internal/infra/logger"
	"github.com/arklim/social-platform-liveqa/internal/repository"
)

// ErrInvalidCredentials rejects logins with missing credentials.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService implements the stub login flow: any non-empty email/password
// pair is accepted and bound to a Redis-backed session referenced by the sid
// cookie. Authentication strength is explicitly out of scope; the session
// only exists so rate limiting can key on a stable user identity.
type AuthService struct {
	sessions   port.SessionRepository
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(sessions port.SessionRepository, sessionTTL time.Duration, log *zap.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthService{
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     log,
		now:        time.Now,
	}
}

// Login validates the stub credentials and persists a fresh session.
// Returns the session id for the cookie along with its TTL.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, time.Duration, error) {
	if email == "" || password == "" {
		return "", 0, ErrInvalidCredentials
	}

	sid := uuid.NewString()
	session := domain.Session{
		UserID:    "u1",
		Email:     email,
		CreatedAt: s.now().UTC(),
	}

	if err := s.sessions.Save(ctx, sid, session, s.sessionTTL); err != nil {
		return "", 0, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("user_id", session.UserID),
		zap.String("email", logger.MaskEmail(email)),
	)

	return sid, s.sessionTTL, nil
}

// Logout removes the session record. Unknown sids are a no-op.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Resolve maps a sid cookie to the stored session.
func (s *AuthService) Resolve(ctx context.Context, sid string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Session{}, repository.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}
