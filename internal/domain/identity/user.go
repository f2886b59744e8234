package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Role is the single role a user holds inside a tenant
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSeller  Role = "seller"
	RoleDriver  Role = "driver"
)

const (
	AggregateTypeUser = "User"
	bcryptCost        = 12
	minPasswordLength = 8
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSeller, RoleDriver:
		return true
	}
	return false
}

// CanManage reports whether the role may administer users and financials
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleManager
}

// User is a staff member of a tenant
type User struct {
	shared.TenantAggregateRoot
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	Active         bool
	CommissionRate *decimal.Decimal // nil means the tenant default applies
	LastLoginAt    *time.Time
}

// NewUser creates an active user with a hashed password
func NewUser(tenantID uuid.UUID, name, email, password string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "User name is required")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+string(role))
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		Role:                role,
		Active:              true,
	}
	u.AddDomainEvent(&UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, u.ID, tenantID),
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
	})
	return u, nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the password hash
func (u *User) SetPassword(password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.IncrementVersion()
	return nil
}

// SetCommissionRate overrides the default commission rate; nil restores the default
func (u *User) SetCommissionRate(rate *decimal.Decimal) error {
	if rate != nil && (rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1))) {
		return shared.NewDomainError("INVALID_COMMISSION_RATE", "Commission rate must be between 0 and 1")
	}
	u.CommissionRate = rate
	u.IncrementVersion()
	return nil
}

// EffectiveCommissionRate returns the user's rate or the given default
func (u *User) EffectiveCommissionRate(def decimal.Decimal) decimal.Decimal {
	if u.CommissionRate != nil {
		return *u.CommissionRate
	}
	return def
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.Touch()
}

// Deactivate prevents further logins
func (u *User) Deactivate() error {
	if !u.Active {
		return shared.NewDomainError("INVALID_STATE", "User is already inactive")
	}
	u.Active = false
	u.IncrementVersion()
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", shared.NewDomainError("INVALID_EMAIL", "Invalid email address")
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password must have at least 8 characters")
	}
	if len(password) > 72 {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.WrapDomainError("PASSWORD_HASH_ERROR", "Failed to hash password", err)
	}
	return string(hash), nil
}
