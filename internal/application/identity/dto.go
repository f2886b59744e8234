package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// CreateTenantRequest onboards a pet shop together with its first admin
type CreateTenantRequest struct {
	Name            string   `json:"name" binding:"required,min=1,max=200"`
	Slug            string   `json:"slug" binding:"required,min=2,max=63"`
	Document        string   `json:"document" binding:"omitempty,max=20"`
	WhatsAppPhoneID string   `json:"whatsapp_phone_id" binding:"omitempty,max=64"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	AdminName       string   `json:"admin_name" binding:"required,min=1,max=200"`
	AdminEmail      string   `json:"admin_email" binding:"required,email"`
	AdminPassword   string   `json:"admin_password" binding:"required,min=8"`
}

// TenantResponse is the API view of a tenant
type TenantResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Status          string    `json:"status"`
	Document        string    `json:"document,omitempty"`
	WhatsAppPhoneID string    `json:"whatsapp_phone_id,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateTenantResponse returns the tenant and its admin
type CreateTenantResponse struct {
	Tenant TenantResponse `json:"tenant"`
	Admin  UserResponse   `json:"admin"`
}

// CreateUserRequest adds a staff member to the context tenant
type CreateUserRequest struct {
	Name           string           `json:"name" binding:"required,min=1,max=200"`
	Email          string           `json:"email" binding:"required,email"`
	Password       string           `json:"password" binding:"required,min=8"`
	Role           string           `json:"role" binding:"required,oneof=admin manager seller driver"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
}

// SetCommissionRateRequest overrides a seller's commission rate; nil restores the default
type SetCommissionRateRequest struct {
	Rate *decimal.Decimal `json:"rate"`
}

// UserResponse is the API view of a user
type UserResponse struct {
	ID             uuid.UUID        `json:"id"`
	TenantID       uuid.UUID        `json:"tenant_id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Role           string           `json:"role"`
	Active         bool             `json:"active"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
	LastLoginAt    *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// LoginRequest authenticates a user of the shop identified by TenantSlug
type LoginRequest struct {
	TenantSlug string `json:"tenant" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
}

// TokenResponse carries an issued token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	TokenResponse
	User UserResponse `json:"user"`
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutInput revokes the access token identified by TokenJTI
type LogoutInput struct {
	UserID       uuid.UUID
	TokenJTI     string
	RemainingTTL time.Duration
}

// ToTenantResponse converts a domain tenant
func ToTenantResponse(t *identity.Tenant) TenantResponse {
	return TenantResponse{
		ID:              t.ID,
		Name:            t.Name,
		Slug:            t.Slug,
		Status:          string(t.Status),
		Document:        t.Document,
		WhatsAppPhoneID: t.WhatsAppPhoneID,
		Latitude:        t.ShopLocation.Lat,
		Longitude:       t.ShopLocation.Lng,
		CreatedAt:       t.CreatedAt,
	}
}

// ToUserResponse converts a domain user
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		TenantID:       u.TenantID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		Active:         u.Active,
		CommissionRate: u.CommissionRate,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
	}
}

// UpdateTenantSettingsRequest changes the delivery origin or WhatsApp number of a tenant
type UpdateTenantSettingsRequest struct {
	WhatsAppPhoneID *string  `json:"whatsapp_phone_id" binding:"omitempty,max=64"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}
