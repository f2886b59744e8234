package identity

import (
	"context"
	"errors"
	"time"

	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/auth"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
)

var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles authentication operations
type AuthService struct {
	tenantRepo identity.TenantRepository
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	revoked    auth.RevocationStore
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	revoked auth.RevocationStore,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		jwtService: jwtService,
		revoked:    revoked,
		logger:     logger,
	}
}

// Login authenticates a user of the tenant named by slug and returns tokens
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	t, err := s.tenantRepo.FindBySlug(tenant.WithSystemScope(ctx, "login tenant lookup"), req.TenantSlug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("login for unknown tenant", zap.String("tenant", req.TenantSlug))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !t.IsActive() {
		s.logger.Warn("login for suspended tenant", zap.String("tenant_id", t.ID.String()))
		return nil, shared.NewDomainError("TENANT_SUSPENDED", "Tenant is suspended")
	}

	tctx := tenant.ContextWithTenant(ctx, t.ID)
	user, err := s.userRepo.FindByEmail(tctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("login for unknown user", zap.String("tenant_id", t.ID.String()))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, errInvalidCredentials
	}
	if !user.Active {
		s.logger.Warn("login attempt for deactivated account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: t.ID,
		UserID:   user.ID,
		Name:     user.Name,
		Role:     string(user.Role),
	})
	if err != nil {
		s.logger.Error("failed to generate token pair", zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens", err)
	}

	user.RecordLogin(time.Now())
	if err := s.userRepo.Save(tctx, user); err != nil {
		// the login still succeeds
		s.logger.Error("failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.logger.Info("user logged in",
		zap.String("tenant_id", t.ID.String()),
		zap.String("user_id", user.ID.String()),
	)
	return &LoginResponse{
		TokenResponse: toTokenResponse(pair),
		User:          ToUserResponse(user),
	}, nil
}

// Refresh exchanges a refresh token for a new pair, reloading the user's role
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_TOKEN", "Invalid refresh token", err)
	}
	tenantID, err := claims.GetTenantUUID()
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_TOKEN", "Invalid refresh token", err)
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_TOKEN", "Invalid refresh token", err)
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
		}
	}

	user, err := s.userRepo.FindByID(tenant.ContextWithTenant(ctx, tenantID), userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_TOKEN", "Invalid refresh token")
		}
		return nil, err
	}
	if !user.Active {
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	pair, err := s.jwtService.RefreshTokenPair(req.RefreshToken, user.Name, string(user.Role))
	if err != nil {
		if errors.Is(err, auth.ErrMaxRefreshExceeded) {
			return nil, shared.WrapDomainError("REFRESH_LIMIT", "Session expired, please log in again", err)
		}
		return nil, shared.WrapDomainError("INVALID_TOKEN", "Invalid refresh token", err)
	}

	resp := toTokenResponse(pair)
	return &resp, nil
}

// Logout revokes the current access token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if s.revoked == nil || input.TokenJTI == "" {
		return nil
	}
	if err := s.revoked.RevokeToken(ctx, input.TokenJTI, input.RemainingTTL); err != nil {
		s.logger.Error("failed to revoke token", zap.String("user_id", input.UserID.String()), zap.Error(err))
		return err
	}
	s.logger.Info("user logged out", zap.String("user_id", input.UserID.String()))
	return nil
}

func toTokenResponse(pair *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}
