package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/petshop/erp/internal/infrastructure/config"
)

// TokenType tells access tokens from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingTenantID    = errors.New("missing tenant_id in claims")
	ErrMissingUserID      = errors.New("missing user_id in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// Claims is the payload of both token kinds. Refresh tokens leave Name and Role
// empty; they are reloaded from the user on refresh.
type Claims struct {
	jwt.RegisteredClaims
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name,omitempty"`
	Role         string    `json:"role,omitempty"`
	TokenType    TokenType `json:"token_type"`
	RefreshCount int       `json:"refresh_count,omitempty"`
}

// TokenPair is returned on login and refresh
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// tokenKind signs and checks one kind of token
type tokenKind struct {
	typ    TokenType
	secret []byte
	ttl    time.Duration
}

// JWTService issues and validates HS256 tokens
type JWTService struct {
	access          tokenKind
	refresh         tokenKind
	issuer          string
	maxRefreshCount int
	parser          *jwt.Parser
}

// NewJWTService builds the service from config. The refresh secret falls back to
// the access secret; the type claim keeps the two kinds apart either way.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.Secret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer), jwt.WithAudience(cfg.Issuer))
	}

	return &JWTService{
		access:          tokenKind{typ: TokenTypeAccess, secret: []byte(cfg.Secret), ttl: cfg.AccessTokenExpiration},
		refresh:         tokenKind{typ: TokenTypeRefresh, secret: []byte(refreshSecret), ttl: cfg.RefreshTokenExpiration},
		issuer:          cfg.Issuer,
		maxRefreshCount: cfg.MaxRefreshCount,
		parser:          jwt.NewParser(opts...),
	}
}

// GenerateTokenInput identifies the user a pair is issued to
type GenerateTokenInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Name     string
	Role     string
}

// GenerateTokenPair issues a fresh pair on login
func (s *JWTService) GenerateTokenPair(input GenerateTokenInput) (*TokenPair, error) {
	return s.issue(input, 0)
}

// RefreshTokenPair issues a new pair from a valid refresh token. name and role are
// reloaded by the caller so that role changes take effect on refresh.
func (s *JWTService) RefreshTokenPair(refreshToken, name, role string) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if s.maxRefreshCount > 0 && claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}

	tenantID, err := claims.GetTenantUUID()
	if err != nil {
		return nil, ErrInvalidClaims
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrInvalidClaims
	}
	return s.issue(GenerateTokenInput{
		TenantID: tenantID,
		UserID:   userID,
		Name:     name,
		Role:     role,
	}, claims.RefreshCount+1)
}

func (s *JWTService) issue(input GenerateTokenInput, refreshCount int) (*TokenPair, error) {
	now := time.Now()
	pair := &TokenPair{
		AccessTokenExpiresAt:  now.Add(s.access.ttl),
		RefreshTokenExpiresAt: now.Add(s.refresh.ttl),
		TokenType:             "Bearer",
	}

	var err error
	pair.AccessToken, err = s.sign(s.access, now, Claims{
		TenantID: input.TenantID.String(),
		UserID:   input.UserID.String(),
		Name:     input.Name,
		Role:     input.Role,
	})
	if err != nil {
		return nil, err
	}
	pair.RefreshToken, err = s.sign(s.refresh, now, Claims{
		TenantID:     input.TenantID.String(),
		UserID:       input.UserID.String(),
		RefreshCount: refreshCount,
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *JWTService) sign(kind tokenKind, now time.Time, claims Claims) (string, error) {
	claims.TokenType = kind.typ
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(kind.ttl)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if s.issuer != "" {
		claims.Audience = jwt.ClaimStrings{s.issuer}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(kind.secret)
}

func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	return s.validate(s.access, token)
}

func (s *JWTService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.validate(s.refresh, token)
}

func (s *JWTService) validate(kind tokenKind, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return kind.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	}

	switch {
	case claims.TokenType != kind.typ:
		return nil, ErrInvalidTokenType
	case claims.TenantID == "":
		return nil, ErrMissingTenantID
	case claims.UserID == "":
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// AccessTTL is the lifetime of access tokens
func (s *JWTService) AccessTTL() time.Duration {
	return s.access.ttl
}

func (c *Claims) GetTenantUUID() (uuid.UUID, error) {
	return uuid.Parse(c.TenantID)
}

func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// HasRole reports whether the claims carry one of roles
func (c *Claims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// GetRemainingTTL is zero for expired tokens
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

func (c *Claims) issuedAt() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
