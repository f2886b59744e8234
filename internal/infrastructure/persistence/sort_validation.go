package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"name":          true,
	"email":         true,
	"role":          true,
	"last_login_at": true,
}

// ClientSortFields contains allowed sort fields for clients
var ClientSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"phone":      true,
	"source":     true,
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"sku":        true,
	"name":       true,
	"category":   true,
	"price":      true,
	"stock":      true,
}

// StockMovementSortFields contains allowed sort fields for stock movements
var StockMovementSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"type":       true,
	"quantity":   true,
}

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"number":       true,
	"total":        true,
	"status":       true,
	"completed_at": true,
}

// TitleSortFields contains allowed sort fields for payables and receivables
var TitleSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"due_date":    true,
	"amount":      true,
	"paid_amount": true,
	"status":      true,
}

// CommissionSortFields contains allowed sort fields for commissions
var CommissionSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"accrued_at": true,
	"amount":     true,
	"status":     true,
}

// RouteSortFields contains allowed sort fields for delivery routes
var RouteSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"date":        true,
	"distance_km": true,
	"status":      true,
}

// ConversationSortFields contains allowed sort fields for conversations
var ConversationSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"last_message_at": true,
	"unread":          true,
}
