package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/auth"
	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "banho-e-tosa-42"

func newTestJWT() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "petshop-test",
		MaxRefreshCount:        5,
	})
}

func newTestTenant(t *testing.T) *identity.Tenant {
	t.Helper()
	tn, err := identity.NewTenant("Pet Feliz", "pet-feliz")
	require.NoError(t, err)
	tn.MarkPersisted()
	return tn
}

func newTestUser(t *testing.T, tenantID uuid.UUID, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(tenantID, "Marina", "marina@petfeliz.com.br", testPassword, role)
	require.NoError(t, err)
	u.MarkPersisted()
	return u
}

func systemScoped() any {
	return mock.MatchedBy(func(ctx context.Context) bool { return tenant.IsSystemScope(ctx) })
}

func scopedTo(id uuid.UUID) any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		got, ok, err := tenant.FromContext(ctx)
		return err == nil && ok && got == id && !tenant.IsSystemScope(ctx)
	})
}

func TestTenantService_Create(t *testing.T) {
	tenants := new(MockTenantRepository)
	users := new(MockUserRepository)
	svc := NewTenantService(tenants, users, passthroughTransactor{}, zap.NewNop())

	tenants.On("ExistsBySlug", systemScoped(), "pet-feliz").Return(false, nil)
	var saved *identity.Tenant
	tenants.On("Save", systemScoped(), mock.AnythingOfType("*identity.Tenant")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*identity.Tenant) }).
		Return(nil)
	users.On("Save", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	lat, lng := -23.5505, -46.6333
	resp, err := svc.Create(context.Background(), CreateTenantRequest{
		Name:          "Pet Feliz",
		Slug:          "pet-feliz",
		Latitude:      &lat,
		Longitude:     &lng,
		AdminName:     "Carla",
		AdminEmail:    "carla@petfeliz.com.br",
		AdminPassword: testPassword,
	})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, saved.ID, resp.Tenant.ID)
	assert.Equal(t, saved.ID, resp.Admin.TenantID)
	assert.Equal(t, "admin", resp.Admin.Role)
	assert.Equal(t, lat, resp.Tenant.Latitude)

	// the admin is saved under the new tenant, outside system scope
	users.AssertCalled(t, "Save", scopedTo(saved.ID), mock.AnythingOfType("*identity.User"))
	tenants.AssertExpectations(t)
}

func TestTenantService_CreateSlugTaken(t *testing.T) {
	tenants := new(MockTenantRepository)
	users := new(MockUserRepository)
	svc := NewTenantService(tenants, users, passthroughTransactor{}, zap.NewNop())

	tenants.On("ExistsBySlug", mock.Anything, "pet-feliz").Return(true, nil)

	_, err := svc.Create(context.Background(), CreateTenantRequest{
		Name: "Pet Feliz", Slug: "pet-feliz",
		AdminName: "Carla", AdminEmail: "carla@petfeliz.com.br", AdminPassword: testPassword,
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "SLUG_TAKEN", domainErr.Code)
	tenants.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTenantService_Suspend(t *testing.T) {
	tenants := new(MockTenantRepository)
	svc := NewTenantService(tenants, new(MockUserRepository), passthroughTransactor{}, zap.NewNop())
	tn := newTestTenant(t)

	tenants.On("FindByID", systemScoped(), tn.ID).Return(tn, nil)
	tenants.On("Save", systemScoped(), tn).Return(nil)

	require.NoError(t, svc.Suspend(context.Background(), tn.ID))
	assert.False(t, tn.IsActive())

	err := svc.Suspend(context.Background(), tn.ID)
	assert.Error(t, err, "suspending twice is rejected")
}

func TestAuthService_Login(t *testing.T) {
	tn := newTestTenant(t)
	user := newTestUser(t, tn.ID, identity.RoleSeller)
	jwtSvc := newTestJWT()

	tenants := new(MockTenantRepository)
	users := new(MockUserRepository)
	svc := NewAuthService(tenants, users, jwtSvc, auth.NewMemoryRevocationStore(), zap.NewNop())

	tenants.On("FindBySlug", systemScoped(), "pet-feliz").Return(tn, nil)
	users.On("FindByEmail", scopedTo(tn.ID), "marina@petfeliz.com.br").Return(user, nil)
	users.On("Save", scopedTo(tn.ID), user).Return(nil)

	resp, err := svc.Login(context.Background(), LoginRequest{
		TenantSlug: "pet-feliz",
		Email:      "marina@petfeliz.com.br",
		Password:   testPassword,
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotNil(t, resp.User.LastLoginAt)

	claims, err := jwtSvc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tn.ID.String(), claims.TenantID)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "seller", claims.Role)
	users.AssertExpectations(t)
}

func TestAuthService_LoginFailures(t *testing.T) {
	tn := newTestTenant(t)
	user := newTestUser(t, tn.ID, identity.RoleSeller)

	tests := []struct {
		name     string
		setup    func(tenants *MockTenantRepository, users *MockUserRepository)
		password string
		code     string
	}{
		{
			name: "unknown tenant",
			setup: func(tenants *MockTenantRepository, _ *MockUserRepository) {
				tenants.On("FindBySlug", mock.Anything, "pet-feliz").Return(nil, shared.ErrNotFound)
			},
			password: testPassword,
			code:     "INVALID_CREDENTIALS",
		},
		{
			name: "unknown email",
			setup: func(tenants *MockTenantRepository, users *MockUserRepository) {
				tenants.On("FindBySlug", mock.Anything, "pet-feliz").Return(tn, nil)
				users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
			},
			password: testPassword,
			code:     "INVALID_CREDENTIALS",
		},
		{
			name: "wrong password",
			setup: func(tenants *MockTenantRepository, users *MockUserRepository) {
				tenants.On("FindBySlug", mock.Anything, "pet-feliz").Return(tn, nil)
				users.On("FindByEmail", mock.Anything, mock.Anything).Return(user, nil)
			},
			password: "not-the-password",
			code:     "INVALID_CREDENTIALS",
		},
		{
			name: "suspended tenant",
			setup: func(tenants *MockTenantRepository, _ *MockUserRepository) {
				suspended := newTestTenant(t)
				require.NoError(t, suspended.Suspend())
				tenants.On("FindBySlug", mock.Anything, "pet-feliz").Return(suspended, nil)
			},
			password: testPassword,
			code:     "TENANT_SUSPENDED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := new(MockTenantRepository)
			users := new(MockUserRepository)
			tt.setup(tenants, users)
			svc := NewAuthService(tenants, users, newTestJWT(), nil, zap.NewNop())

			_, err := svc.Login(context.Background(), LoginRequest{
				TenantSlug: "pet-feliz",
				Email:      "marina@petfeliz.com.br",
				Password:   tt.password,
			})

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_RefreshReloadsRole(t *testing.T) {
	tn := newTestTenant(t)
	user := newTestUser(t, tn.ID, identity.RoleSeller)
	jwtSvc := newTestJWT()

	pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{
		TenantID: tn.ID, UserID: user.ID, Name: user.Name, Role: string(user.Role),
	})
	require.NoError(t, err)

	user.Role = identity.RoleManager
	users := new(MockUserRepository)
	users.On("FindByID", scopedTo(tn.ID), user.ID).Return(user, nil)
	svc := NewAuthService(new(MockTenantRepository), users, jwtSvc, auth.NewMemoryRevocationStore(), zap.NewNop())

	resp, err := svc.Refresh(context.Background(), RefreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)

	claims, err := jwtSvc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "manager", claims.Role)
}

func TestAuthService_RefreshRejectsDeactivatedUser(t *testing.T) {
	tn := newTestTenant(t)
	user := newTestUser(t, tn.ID, identity.RoleSeller)
	require.NoError(t, user.Deactivate())
	jwtSvc := newTestJWT()

	pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{TenantID: tn.ID, UserID: user.ID})
	require.NoError(t, err)

	users := new(MockUserRepository)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	svc := NewAuthService(new(MockTenantRepository), users, jwtSvc, nil, zap.NewNop())

	_, err = svc.Refresh(context.Background(), RefreshRequest{RefreshToken: pair.RefreshToken})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", domainErr.Code)
}

func TestAuthService_Logout(t *testing.T) {
	jwtSvc := newTestJWT()
	userID := uuid.New()
	revocations := auth.NewMemoryRevocationStore()
	svc := NewAuthService(new(MockTenantRepository), new(MockUserRepository), jwtSvc, revocations, zap.NewNop())
	ctx := context.Background()

	issue := func() *auth.Claims {
		pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{TenantID: uuid.New(), UserID: userID})
		require.NoError(t, err)
		claims, err := jwtSvc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		return claims
	}
	current, other := issue(), issue()

	require.NoError(t, svc.Logout(ctx, LogoutInput{
		UserID:       userID,
		TokenJTI:     current.ID,
		RemainingTTL: current.GetRemainingTTL(),
	}))

	revoked, err := revocations.IsRevoked(ctx, current)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = revocations.IsRevoked(ctx, other)
	require.NoError(t, err)
	assert.False(t, revoked, "logout ends only the presented session")
}

func TestUserService_Create(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenant.ContextWithTenant(context.Background(), tenantID)
	users := new(MockUserRepository)
	svc := NewUserService(users, nil, time.Hour, zap.NewNop())

	users.On("ExistsByEmail", ctx, "joao@petfeliz.com.br").Return(false, nil)
	users.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

	rate := decimalPtr(t, "0.05")
	resp, err := svc.Create(ctx, tenantID, CreateUserRequest{
		Name:           "João",
		Email:          "joao@petfeliz.com.br",
		Password:       testPassword,
		Role:           "seller",
		CommissionRate: rate,
	})

	require.NoError(t, err)
	assert.Equal(t, tenantID, resp.TenantID)
	assert.Equal(t, "seller", resp.Role)
	require.NotNil(t, resp.CommissionRate)
	assert.True(t, rate.Equal(*resp.CommissionRate))
}

func TestUserService_CreateEmailTaken(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewUserService(users, nil, time.Hour, zap.NewNop())
	users.On("ExistsByEmail", mock.Anything, "joao@petfeliz.com.br").Return(true, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateUserRequest{
		Name: "João", Email: "joao@petfeliz.com.br", Password: testPassword, Role: "seller",
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EMAIL_TAKEN", domainErr.Code)
}

func TestUserService_DeactivateRevokesTokens(t *testing.T) {
	tenantID := uuid.New()
	user := newTestUser(t, tenantID, identity.RoleDriver)
	jwtSvc := newTestJWT()
	pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{TenantID: tenantID, UserID: user.ID})
	require.NoError(t, err)

	users := new(MockUserRepository)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	users.On("Save", mock.Anything, user).Return(nil)
	revocations := auth.NewMemoryRevocationStore()
	svc := NewUserService(users, revocations, time.Hour, zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), tenantID, user.ID))
	assert.False(t, user.Active)

	claims, err := jwtSvc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	revoked, err := revocations.IsRevoked(context.Background(), claims)
	require.NoError(t, err)
	assert.True(t, revoked)

	t.Run("refresh is refused before the user is loaded", func(t *testing.T) {
		authSvc := NewAuthService(new(MockTenantRepository), new(MockUserRepository), jwtSvc, revocations, zap.NewNop())

		_, err := authSvc.Refresh(context.Background(), RefreshRequest{RefreshToken: pair.RefreshToken})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_REVOKED", domainErr.Code)
	})
}

func TestUserService_OtherTenantIsNotFound(t *testing.T) {
	user := newTestUser(t, uuid.New(), identity.RoleSeller)
	users := new(MockUserRepository)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	svc := NewUserService(users, nil, time.Hour, zap.NewNop())

	_, err := svc.GetByID(context.Background(), uuid.New(), user.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func decimalPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return &d
}
