package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/infra/security"
)

func newTestTokenIssuer(t *testing.T) *security.TokenIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return security.NewTokenIssuer(&security.StaticKeyProvider{KID: "test-key", Key: key}, security.TokenIssuerConfig{
		Issuer:     "safelease-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 168 * time.Hour,
	})
}

func newAuthFixture(t *testing.T) (*AuthService, *mockUserRepository, *mockSessionRepository) {
	t.Helper()

	users := &mockUserRepository{}
	sessions := &mockSessionRepository{}
	svc := NewAuthService(users, sessions, newTestTokenIssuer(t), zap.NewNop()).WithClock(fixedClock)
	return svc, users, sessions
}

func activeUser(t *testing.T, password string) *domain.User {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	role := domain.RoleViewer
	return &domain.User{
		ID:           "user-1",
		Email:        "john@example.com",
		PasswordHash: hash,
		RoleCode:     &role,
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, users, sessions := newAuthFixture(t)
	users.getByEmailResult = activeUser(t, strongTestPassword)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:     "john@example.com",
		Password:  strongTestPassword,
		DeviceID:  "device-1",
		IP:        "203.0.113.9",
		UserAgent: "safelease-cli/1.0",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if result.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	if sessions.createCalls != 1 {
		t.Fatalf("expected one session row, got %d", sessions.createCalls)
	}
	session := sessions.createdSession
	if session.ID != result.SessionID {
		t.Fatalf("session id mismatch: %s vs %s", session.ID, result.SessionID)
	}
	if session.RefreshTokenID != result.Tokens.RefreshJTI {
		t.Fatal("session must be keyed by the refresh jti")
	}
	if session.IP == nil || *session.IP != "203.0.113.9" {
		t.Fatalf("client ip not recorded: %+v", session.IP)
	}

	claims, err := svc.ParseAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.SessionID != result.SessionID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestIssueTokensOpensSessionPerCall(t *testing.T) {
	svc, _, sessions := newAuthFixture(t)
	user := activeUser(t, strongTestPassword)

	first, err := svc.IssueTokens(context.Background(), *user, DeviceMeta{DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	second, err := svc.IssueTokens(context.Background(), *user, DeviceMeta{DeviceID: "device-2"})
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	if sessions.createCalls != 2 {
		t.Fatalf("expected one session row per call, got %d", sessions.createCalls)
	}
	if first.SessionID == second.SessionID {
		t.Fatal("each issuance must open its own session")
	}
	if first.Tokens.RefreshJTI == second.Tokens.RefreshJTI {
		t.Fatal("refresh jtis must be unique per issuance")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, sessions := newAuthFixture(t)
	users.getByEmailResult = activeUser(t, strongTestPassword)

	_, err := svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: "not-it"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if sessions.createCalls != 0 {
		t.Fatal("failed login must not open a session")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "whatever"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like wrong password, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	user := activeUser(t, strongTestPassword)
	user.IsActive = false
	users.getByEmailResult = user

	_, err := svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: strongTestPassword})
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, users, sessions := newAuthFixture(t)
	users.getByEmailResult = activeUser(t, strongTestPassword)
	users.getByIDResult = users.getByEmailResult

	login, err := svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	sessions.getByRefreshResult = &sessions.createdSession

	pair, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if sessions.getByRefreshLastID != login.Tokens.RefreshJTI {
		t.Fatal("refresh must look the session up by the presented jti")
	}
	if sessions.rotateCalls != 1 {
		t.Fatalf("expected one rotation, got %d", sessions.rotateCalls)
	}
	if sessions.rotatedSess != login.SessionID {
		t.Fatalf("rotated the wrong session: %s", sessions.rotatedSess)
	}
	if sessions.rotatedJTI != pair.RefreshJTI {
		t.Fatal("session must be re-keyed to the new refresh jti")
	}
	if pair.RefreshJTI == login.Tokens.RefreshJTI {
		t.Fatal("refresh must mint a new jti")
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.SessionID != login.SessionID {
		t.Fatal("rotated pair must stay bound to the original session")
	}
}

func TestRefreshRevokedSession(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	users.getByEmailResult = activeUser(t, strongTestPassword)

	login, err := svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// session row was deleted out from under the still-valid token
	_, err = svc.Refresh(context.Background(), login.Tokens.RefreshToken)
	if !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	users.getByEmailResult = activeUser(t, strongTestPassword)

	login, err := svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), login.Tokens.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestRefreshDisabledAccount(t *testing.T) {
	svc, users, sessions := newAuthFixture(t)
	users.getByEmailResult = activeUser(t, strongTestPassword)

	login, err := svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	disabled := *users.getByEmailResult
	disabled.IsActive = false
	users.getByIDResult = &disabled
	sessions.getByRefreshResult = &sessions.createdSession

	if _, err := svc.Refresh(context.Background(), login.Tokens.RefreshToken); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestParseAccessTokenGarbage(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	if _, err := svc.ParseAccessToken("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthenticateResolvesAccount(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	user := activeUser(t, strongTestPassword)
	users.getByIDResult = user

	result, err := svc.IssueTokens(context.Background(), *user, DeviceMeta{})
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	claims, err := svc.Authenticate(context.Background(), result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthenticateRejectsDeactivatedAccount(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	user := activeUser(t, strongTestPassword)

	result, err := svc.IssueTokens(context.Background(), *user, DeviceMeta{})
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	// the token stays cryptographically valid after the account is shut off
	disabled := *user
	disabled.IsActive = false
	users.getByIDResult = &disabled

	if _, err := svc.Authenticate(context.Background(), result.Tokens.AccessToken); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestAuthenticateDeletedAccount(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	user := activeUser(t, strongTestPassword)

	result, err := svc.IssueTokens(context.Background(), *user, DeviceMeta{})
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	users.getByIDResult = nil

	if _, err := svc.Authenticate(context.Background(), result.Tokens.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
