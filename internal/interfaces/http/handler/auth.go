package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	identityapp "github.com/petshop/erp/internal/application/identity"
	"github.com/petshop/erp/internal/interfaces/http/middleware"
)

// AuthService is the slice of identityapp.AuthService the handler uses
type AuthService interface {
	Login(ctx context.Context, req identityapp.LoginRequest) (*identityapp.LoginResponse, error)
	Refresh(ctx context.Context, req identityapp.RefreshRequest) (*identityapp.TokenResponse, error)
	Logout(ctx context.Context, input identityapp.LogoutInput) error
}

// AuthHandler handles login, token refresh and logout
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req identityapp.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req identityapp.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.authService.Refresh(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Logout handles POST /auth/logout and revokes the presented access token
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	err := h.authService.Logout(c.Request.Context(), identityapp.LogoutInput{
		UserID:       userID,
		TokenJTI:     claims.ID,
		RemainingTTL: claims.GetRemainingTTL(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	h.Success(c, gin.H{
		"user_id":   claims.UserID,
		"tenant_id": claims.TenantID,
		"name":      claims.Name,
		"role":      claims.Role,
	})
}
