// Package models - organization.go defines the Organization model representing a tenant
// boundary. Every user and contact row is partitioned by organization ID.
package models

import (
	"strings"
	"time"
	"unicode"
)

// Organization statuses. Only active organizations may authenticate.
const (
	OrgStatusActive    = "active"
	OrgStatusSuspended = "suspended"
	OrgStatusInactive  = "inactive"
)

// OrganizationSettings holds per-tenant limits and feature flags, stored as JSONB.
type OrganizationSettings struct {
	MaxUsers    int                  `json:"maxUsers"`
	MaxContacts int                  `json:"maxContacts"`
	Features    OrganizationFeatures `json:"features"`
}

// OrganizationFeatures holds per-tenant feature toggles.
type OrganizationFeatures struct {
	AuditLogs     bool `json:"auditLogs"`
	AdvancedNotes bool `json:"advancedNotes"`
}

// DefaultOrganizationSettings returns the settings assigned to a newly
// provisioned organization.
func DefaultOrganizationSettings() OrganizationSettings {
	return OrganizationSettings{
		MaxUsers:    50,
		MaxContacts: 10000,
		Features: OrganizationFeatures{
			AuditLogs:     true,
			AdvancedNotes: true,
		},
	}
}

// Organization represents a tenant in the system
type Organization struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Slug      string               `json:"slug"`
	Status    string               `json:"status"`
	Settings  OrganizationSettings `json:"settings"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Slugify derives a URL-safe slug from an organization name: lowercase,
// non-alphanumerics stripped, whitespace runs collapsed to single hyphens.
// The slug is regenerated explicitly by the service whenever the name is set
// or changed, never by a persistence-layer hook.
func Slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	for _, r := range lower {
		switch {
		case unicode.IsLower(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), "-")
	for strings.Contains(collapsed, "--") {
		collapsed = strings.ReplaceAll(collapsed, "--", "-")
	}
	return strings.Trim(collapsed, "-")
}
