package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenUseAccess marks a short-lived token accepted by resource routes.
	TokenUseAccess = "access"
	// TokenUseRefresh marks a long-lived token accepted only by the refresh
	// operation.
	TokenUseRefresh = "refresh"
)

var (
	ErrTokenInvalid  = errors.New("jwt: token invalid")
	ErrTokenExpired  = errors.New("jwt: token expired")
	ErrWrongTokenUse = errors.New("jwt: wrong token use")
)

// AccessClaims is the claim set carried by both access and refresh tokens.
// TokenUse distinguishes the two so a refresh token can never pass an access
// check.
type AccessClaims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sid,omitempty"`
	TokenUse  string `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures token lifetimes and the issuer claim.
type TokenIssuerConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenIssuer signs and parses RS256 token pairs. Every signed token carries
// the signing kid in its header so verification keys can rotate.
type TokenIssuer struct {
	provider KeyProvider
	cfg      TokenIssuerConfig
	now      func() time.Time
}

// NewTokenIssuer builds an issuer over the supplied key provider.
func NewTokenIssuer(provider KeyProvider, cfg TokenIssuerConfig) *TokenIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 168 * time.Hour
	}
	return &TokenIssuer{provider: provider, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source. Intended for tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// TokenPair bundles a freshly issued access and refresh token. RefreshJTI is
// the jti of the refresh token, used to key the session row.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	RefreshJTI   string
	AccessTTL    time.Duration
}

// IssuePair signs an access and refresh token for the user. Both carry the
// session id so callers can tell which session a presented token belongs to.
func (t *TokenIssuer) IssuePair(userID, email, role, sessionID string) (TokenPair, error) {
	access, _, err := t.sign(userID, email, role, sessionID, TokenUseAccess, t.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, refreshJTI, err := t.sign(userID, email, role, sessionID, TokenUseRefresh, t.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshJTI:   refreshJTI,
		AccessTTL:    t.cfg.AccessTTL,
	}, nil
}

func (t *TokenIssuer) sign(userID, email, role, sessionID, tokenUse string, ttl time.Duration) (string, string, error) {
	kid, key, err := t.provider.SigningKey()
	if err != nil {
		return "", "", fmt.Errorf("jwt: get signing key: %w", err)
	}

	now := t.now().UTC()
	jti := uuid.NewString()

	claims := &AccessClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		SessionID: sessionID,
		TokenUse:  tokenUse,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, jti, nil
}

// ParseAccess validates an access token and returns its claims.
func (t *TokenIssuer) ParseAccess(raw string) (*AccessClaims, error) {
	return t.parse(raw, TokenUseAccess)
}

// ParseRefresh validates a refresh token and returns its claims.
func (t *TokenIssuer) ParseRefresh(raw string) (*AccessClaims, error) {
	return t.parse(raw, TokenUseRefresh)
}

func (t *TokenIssuer) parse(raw, expectedUse string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %s", ErrTokenInvalid, tok.Method.Alg())
		}

		kid, _ := tok.Header["kid"].(string)
		kid = strings.TrimSpace(kid)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrTokenInvalid)
		}

		return t.provider.VerificationKey(kid)
	}, jwt.WithTimeFunc(func() time.Time { return t.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenUse != expectedUse {
		return nil, ErrWrongTokenUse
	}

	return claims, nil
}
