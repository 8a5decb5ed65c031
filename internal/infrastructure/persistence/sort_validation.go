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

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not in the
// whitelist. Caller-supplied sort fields are never interpolated raw.
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

// StockBatchSortFields contains allowed sort fields for stock batches
var StockBatchSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"sku":                true,
	"category":           true,
	"batch_number":       true,
	"quantity_received":  true,
	"quantity_remaining": true,
	"unit_cost":          true,
	"received_at":        true,
	"expiration_date":    true,
	"location":           true,
	"is_available":       true,
}

// KegAssetSortFields contains allowed sort fields for keg assets
var KegAssetSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"serial_number":  true,
	"current_state":  true,
	"current_holder": true,
	"size_liters":    true,
	"cycle_count":    true,
	"last_filled_at": true,
	"is_active":      true,
}
