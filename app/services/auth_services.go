package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/pkg/auth"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/ratelimit"
	"github.com/shashiranjanraj/faultline/pkg/session"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ThrottledError is returned when an email has used up its login attempts.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many login attempts, retry in %s", e.RetryAfter)
}

func (e *ThrottledError) Unwrap() error { return ErrRateLimited }

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      models.UserView `json:"user"`
}

// AuthService signs users in with a server-side session and a JWT that
// names it.
type AuthService struct {
	users    *repositories.UserRepository
	sessions session.Store
	issuer   *auth.Issuer
	attempts *ratelimit.Limiter
	now      func() time.Time
}

func NewAuthService(users *repositories.UserRepository, sessions session.Store, issuer *auth.Issuer, attempts *ratelimit.Limiter) *AuthService {
	return &AuthService{users: users, sessions: sessions, issuer: issuer, attempts: attempts, now: time.Now}
}

// WithClock replaces the time source used for session expiry.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	key := strings.ToLower(strings.TrimSpace(in.Email))
	if ok, wait := s.attempts.Allow(key); !ok {
		return LoginResult{}, &ThrottledError{RetryAfter: wait}
	}

	u, err := s.users.FindByEmail(ctx, key)
	if err != nil {
		return LoginResult{}, err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, in.Password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	s.attempts.Forget(key)

	sess := session.New(u.ID, string(u.Role), s.now(), s.issuer.TTL())
	sess.IP = in.IP
	sess.UserAgent = in.UserAgent
	if err := s.sessions.Put(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("store session: %w", err)
	}

	token, exp, err := s.issuer.Issue(u.ID, string(u.Role), sess.ID)
	if err != nil {
		return LoginResult{}, err
	}

	touched, err := s.users.Touch(ctx, u.ID)
	if err != nil {
		logger.WithCtx(ctx).Warn("last login not recorded", "user_id", u.ID, "error", err)
		touched = *u
	}

	return LoginResult{Token: token, ExpiresAt: exp, User: touched.View()}, nil
}

// Current resolves token to its session and user. An expired session is
// deleted on the spot.
func (s *AuthService) Current(ctx context.Context, token string) (session.Session, models.User, error) {
	sess, err := s.resolve(ctx, token)
	if err != nil {
		return session.Session{}, models.User{}, err
	}
	u, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return session.Session{}, models.User{}, err
	}
	if u == nil {
		return session.Session{}, models.User{}, fmt.Errorf("%w: user %d no longer exists", ErrUnauthorized, sess.UserID)
	}
	return sess, *u, nil
}

// Logout deletes the session behind token. An expired token still logs
// its session out.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil && !errors.Is(err, auth.ErrTokenExpired) {
		return err
	}
	return s.sessions.Delete(ctx, claims.SessionID)
}

func (s *AuthService) parse(token string) (*auth.Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no token", ErrUnauthorized)
	}
	claims, err := s.issuer.Parse(token)
	if errors.Is(err, auth.ErrTokenExpired) {
		return claims, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

func (s *AuthService) resolve(ctx context.Context, token string) (session.Session, error) {
	claims, err := s.parse(token)
	if errors.Is(err, auth.ErrTokenExpired) {
		s.expire(ctx, claims.SessionID)
		return session.Session{}, fmt.Errorf("%w: session %s", ErrSessionExpired, claims.SessionID)
	}
	if err != nil {
		return session.Session{}, err
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return session.Session{}, fmt.Errorf("%w: session %s", ErrUnauthorized, claims.SessionID)
	}
	if err != nil {
		return session.Session{}, err
	}

	if sess.Expired(s.now()) {
		s.expire(ctx, sess.ID)
		return session.Session{}, fmt.Errorf("%w: session %s", ErrSessionExpired, sess.ID)
	}
	return sess, nil
}

func (s *AuthService) expire(ctx context.Context, id string) {
	if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, session.ErrNotFound) {
		logger.WithCtx(ctx).Warn("expired session not deleted", "session_id", id, "error", err)
	}
}
