// query.go validates and normalizes contact list query parameters.
package validation

import (
	"strconv"
	"strings"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/db/models"
)

// Sortable contact fields, as exposed in the API. The repository maps these
// to column names; anything outside this list is rejected before it gets near
// a query string.
var contactSortFields = map[string]bool{
	"name":      true,
	"email":     true,
	"createdAt": true,
	"updatedAt": true,
}

// ListQuery is a normalized, validated contact list request.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	SortBy    string
	SortOrder string
}

// Offset returns the row offset for the current page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ListQueryParams holds the raw query string values as received.
type ListQueryParams struct {
	Page      string
	Limit     string
	Search    string
	Status    string
	SortBy    string
	SortOrder string
}

// ValidateListQuery parses and validates raw list parameters. Absent values
// fall back to defaults: page 1, the configured default page size, sort by
// createdAt descending. Limit is clamped to maxLimit rather than rejected.
func ValidateListQuery(p ListQueryParams, defaultLimit, maxLimit int) (ListQuery, []apperror.FieldError) {
	var fields []apperror.FieldError

	q := ListQuery{
		Page:      1,
		Limit:     defaultLimit,
		Search:    strings.TrimSpace(p.Search),
		SortBy:    "createdAt",
		SortOrder: "desc",
	}

	if p.Page != "" {
		n, err := strconv.Atoi(p.Page)
		if err != nil || n < 1 {
			fields = append(fields, apperror.FieldError{
				Field:   "page",
				Message: "page must be a positive integer",
			})
		} else {
			q.Page = n
		}
	}

	if p.Limit != "" {
		n, err := strconv.Atoi(p.Limit)
		if err != nil || n < 1 {
			fields = append(fields, apperror.FieldError{
				Field:   "limit",
				Message: "limit must be a positive integer",
			})
		} else {
			if n > maxLimit {
				n = maxLimit
			}
			q.Limit = n
		}
	}

	if p.Status != "" {
		if !models.IsValidContactStatus(p.Status) {
			fields = append(fields, apperror.FieldError{
				Field:   "status",
				Message: "status must be one of: active, inactive, archived",
			})
		} else {
			q.Status = p.Status
		}
	}

	if p.SortBy != "" {
		if !contactSortFields[p.SortBy] {
			fields = append(fields, apperror.FieldError{
				Field:   "sortBy",
				Message: "sortBy must be one of: name, email, createdAt, updatedAt",
			})
		} else {
			q.SortBy = p.SortBy
		}
	}

	if p.SortOrder != "" {
		order := strings.ToLower(p.SortOrder)
		if order != "asc" && order != "desc" {
			fields = append(fields, apperror.FieldError{
				Field:   "sortOrder",
				Message: "sortOrder must be asc or desc",
			})
		} else {
			q.SortOrder = order
		}
	}

	return q, fields
}
