package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// UserService manages the staff of the context tenant
type UserService struct {
	userRepo  identity.UserRepository
	revoked   auth.RevocationStore
	revokeTTL time.Duration
	logger    *zap.Logger
}

// NewUserService creates a new UserService. revokeTTL is how long the tokens of a
// deactivated user stay revoked and should match the refresh token lifetime.
func NewUserService(
	userRepo identity.UserRepository,
	revoked auth.RevocationStore,
	revokeTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:  userRepo,
		revoked:   revoked,
		revokeTTL: revokeTTL,
		logger:    logger,
	}
}

// Create adds a user to the tenant
func (s *UserService) Create(ctx context.Context, tenantID uuid.UUID, req CreateUserRequest) (*UserResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "Email is already in use")
	}

	user, err := identity.NewUser(tenantID, req.Name, req.Email, req.Password, identity.Role(req.Role))
	if err != nil {
		return nil, err
	}
	if req.CommissionRate != nil {
		if err := user.SetCommissionRate(req.CommissionRate); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "Email is already in use")
		}
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	resp := ToUserResponse(user)
	return &resp, nil
}

// GetByID returns a user
func (s *UserService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// List returns a page of users
func (s *UserService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[UserResponse], error) {
	filter = filter.Normalize()
	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]UserResponse, len(users))
	for i := range users {
		items[i] = ToUserResponse(&users[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// SetCommissionRate overrides the commission rate of a user
func (s *UserService) SetCommissionRate(ctx context.Context, tenantID, id uuid.UUID, req SetCommissionRateRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	if err := user.SetCommissionRate(req.Rate); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// Deactivate blocks a user and revokes their issued tokens
func (s *UserService) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.BelongsTo(tenantID) {
		return shared.ErrNotFound
	}
	if err := user.Deactivate(); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}

	if s.revoked != nil {
		if err := s.revoked.RevokeUser(ctx, user.ID.String(), s.revokeTTL); err != nil {
			s.logger.Error("failed to revoke tokens of deactivated user",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
	}
	s.logger.Info("user deactivated", zap.String("user_id", user.ID.String()))
	return nil
}
