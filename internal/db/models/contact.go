// Package models - contact.go defines the Contact model and its embedded Note
// sequence. Notes share the contact's lifecycle and are stored as a JSONB
// array: append-only, insertion-ordered, never edited or removed.
package models

import "time"

// Contact statuses. Archived is the soft-delete terminal state: archived
// contacts are excluded from normal reads and searches but retained so their
// audit history stays resolvable.
const (
	ContactStatusActive   = "active"
	ContactStatusInactive = "inactive"
	ContactStatusArchived = "archived"
)

// Note types.
const (
	NoteTypeCall    = "call"
	NoteTypeMeeting = "meeting"
	NoteTypeEmail   = "email"
	NoteTypeGeneral = "general"
)

// MaxNoteLength is the maximum note content length in characters.
const MaxNoteLength = 2000

// Note is one entry in a contact's append-only note sequence.
type Note struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	AddedBy     string    `json:"addedBy"`
	AddedByName string    `json:"addedByName"`
	AddedAt     time.Time `json:"addedAt"`
	IsPrivate   bool      `json:"isPrivate"`
}

// Contact represents one contact record owned by an organization.
// OrganizationID is the tenant partition key and never changes.
type Contact struct {
	ID                 string    `json:"id"`
	OrganizationID     string    `json:"organizationId"`
	Name               string    `json:"name"`
	Email              *string   `json:"email,omitempty"`
	Phone              *string   `json:"phone,omitempty"`
	Status             string    `json:"status"`
	Notes              []Note    `json:"notes"`
	CreatedBy          string    `json:"createdBy"`
	CreatedByName      string    `json:"createdByName"`
	LastModifiedBy     *string   `json:"lastModifiedBy,omitempty"`
	LastModifiedByName *string   `json:"lastModifiedByName,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// NoteCount returns the number of notes on the contact.
func (c *Contact) NoteCount() int {
	return len(c.Notes)
}

// ContactSummary is the listing view of a contact: the note sequence is
// replaced by its count to keep list payloads small.
type ContactSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Status    string    `json:"status"`
	NoteCount int       `json:"noteCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsValidNoteType reports whether t is one of the allowed note types.
func IsValidNoteType(t string) bool {
	switch t {
	case NoteTypeCall, NoteTypeMeeting, NoteTypeEmail, NoteTypeGeneral:
		return true
	}
	return false
}

// IsValidContactStatus reports whether s is one of the allowed contact statuses.
func IsValidContactStatus(s string) bool {
	switch s {
	case ContactStatusActive, ContactStatusInactive, ContactStatusArchived:
		return true
	}
	return false
}
