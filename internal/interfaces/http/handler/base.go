// Package handler adapts HTTP requests to the application services.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"github.com/petshop/erp/internal/interfaces/http/dto"
	"github.com/petshop/erp/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Page sends a page of results with its pagination meta
func Page[T any](c *gin.Context, page *shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// BindError answers a failed bind with field details when available
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleBindError(c, err)
}

// HandleError maps domain errors to their status; anything else is a 500
// whose cause is logged but not returned.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("request failed", zap.String("code", domainErr.Code), zap.Error(err))
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.GetGinLogger(c).Error("unexpected error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// tenantID returns the tenant bound by the tenant middleware
func (h *BaseHandler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetTenantID(c)
	if !ok {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeTenantMissing, "Tenant identification required")
	}
	return id, ok
}

// userID returns the authenticated user
func (h *BaseHandler) userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.GetJWTUserID(c))
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses a UUID path parameter
func (h *BaseHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
