// Package models - audit_log.go defines the AuditLog model: one immutable ledger
// entry per state change, capturing actor, before/after field diff, and request
// metadata. Entries reference entities by ID only (a weak reference), so
// archiving a contact never orphans or rewrites its trail. The application has
// no code path that updates or deletes an audit row.
package models

import "time"

// Audit entity types.
const (
	AuditEntityContact = "contact"
	AuditEntityNote    = "note"
	AuditEntityUser    = "user"
)

// Audit actions. Restore is in the enum for trail compatibility even though
// archiving is terminal and no restore operation is exposed.
const (
	AuditActionCreate  = "create"
	AuditActionUpdate  = "update"
	AuditActionDelete  = "delete"
	AuditActionRestore = "restore"
)

// AuditChanges holds the partial field diff of a mutation. Old and New contain
// only the fields whose value actually changed; for creates Old is empty, for
// deletes New records the terminal state.
type AuditChanges struct {
	Old map[string]interface{} `json:"old,omitempty"`
	New map[string]interface{} `json:"new,omitempty"`
}

// AuditMetadata carries request-level context captured alongside a mutation.
type AuditMetadata struct {
	IPAddress   string `json:"ipAddress,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`
	Description string `json:"description,omitempty"`
}

// AuditLog represents one audit trail entry.
type AuditLog struct {
	ID              string        `json:"id"`
	OrganizationID  string        `json:"organizationId"`
	EntityType      string        `json:"entityType"`
	EntityID        string        `json:"entityId"`
	Action          string        `json:"action"`
	Changes         AuditChanges  `json:"changes"`
	PerformedBy     string        `json:"performedBy"`
	PerformedByName string        `json:"performedByName"`
	Metadata        AuditMetadata `json:"metadata"`
	Timestamp       time.Time     `json:"timestamp"`
}
