package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/infra/logger"
	"github.com/mdurant/safelease-ai/internal/infra/security"
	"github.com/mdurant/safelease-ai/internal/repository"
)

// AuthService authenticates users and manages the token pair lifecycle.
type AuthService struct {
	users    port.UserRepository
	sessions port.SessionRepository
	issuer   *security.TokenIssuer
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an auth service.
func NewAuthService(users port.UserRepository, sessions port.SessionRepository, issuer *security.TokenIssuer, log *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// LoginInput carries the credentials and client context of a login attempt.
type LoginInput struct {
	Email     string
	Password  string
	DeviceID  string
	IP        string
	UserAgent string
}

// LoginResult bundles the authenticated user with its fresh token pair.
type LoginResult struct {
	User      domain.User
	SessionID string
	Tokens    security.TokenPair
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are deliberately indistinguishable; the password check still runs
// against a decoy hash on unknown emails to keep timing flat.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_, _ = security.VerifyPassword(input.Password, decoyHash)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.log.Info("login rejected",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("reason", "password mismatch"),
		)
		return LoginResult{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return LoginResult{}, ErrAccountDisabled
	}

	result, err := s.IssueTokens(ctx, *user, DeviceMeta{
		DeviceID:  input.DeviceID,
		IP:        input.IP,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info("login succeeded",
		zap.String("user_id", user.ID),
		zap.String("session_id", result.SessionID),
	)

	return result, nil
}

// DeviceMeta describes the client a token pair is issued to.
type DeviceMeta struct {
	DeviceID  string
	IP        string
	UserAgent string
}

// IssueTokens mints an RS256 access/refresh pair for user and records one
// session keyed by the refresh jti. Each call opens a new session; concurrent
// logins from several devices coexist.
func (s *AuthService) IssueTokens(ctx context.Context, user domain.User, meta DeviceMeta) (LoginResult, error) {
	sessionID := uuid.NewString()
	pair, err := s.issuer.IssuePair(user.ID, user.Email, user.RoleOrEmpty(), sessionID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue tokens: %w", err)
	}

	now := s.now().UTC()
	session := domain.Session{
		ID:             sessionID,
		UserID:         user.ID,
		DeviceID:       strings.TrimSpace(meta.DeviceID),
		UserAgent:      strings.TrimSpace(meta.UserAgent),
		RefreshTokenID: pair.RefreshJTI,
		LastActiveAt:   now,
		CreatedAt:      now,
	}
	if ip := strings.TrimSpace(meta.IP); ip != "" {
		session.IP = &ip
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	return LoginResult{User: user, SessionID: sessionID, Tokens: pair}, nil
}

// Refresh exchanges a live refresh token for a fresh pair. The session row is
// the source of truth for revocation: a signed, unexpired refresh token whose
// session is gone is refused. On success the session is re-keyed to the new
// refresh jti, so the old token cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (security.TokenPair, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return security.TokenPair{}, ErrTokenExpired
		}
		return security.TokenPair{}, ErrTokenInvalid
	}

	session, err := s.sessions.GetByRefreshTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return security.TokenPair{}, ErrSessionRevoked
		}
		return security.TokenPair{}, fmt.Errorf("lookup session: %w", err)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return security.TokenPair{}, ErrSessionRevoked
		}
		return security.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return security.TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.issuer.IssuePair(user.ID, user.Email, user.RoleOrEmpty(), session.ID)
	if err != nil {
		return security.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.sessions.RotateRefreshToken(ctx, session.ID, pair.RefreshJTI, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return security.TokenPair{}, ErrSessionRevoked
		}
		return security.TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return pair, nil
}

// ParseAccessToken validates an access token and returns its claims.
func (s *AuthService) ParseAccessToken(raw string) (*security.AccessClaims, error) {
	claims, err := s.issuer.ParseAccess(raw)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Authenticate validates an access token and resolves it to a live account.
// The signature alone is not enough: a token minted before an account was
// deactivated stays cryptographically valid for its whole lifetime, so the
// account state is checked on every request. Used by the authentication
// middleware.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*security.AccessClaims, error) {
	claims, err := s.ParseAccessToken(raw)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return claims, nil
}

// CurrentUser loads the account behind a validated access token.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return *user, nil
}

// decoyHash is a valid argon2id encoding of a random throwaway password. It
// keeps the unknown-email path doing the same work as the wrong-password
// path.
const decoyHash = "argon2id$v=19$m=65536,t=3,p=4$c2FsdHNhbHRzYWx0c2FsdA$XZNvZFexHIot+9fZBXUtBpPBuUnYEmnbbdE1BU1GE2M"
