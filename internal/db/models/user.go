// Package models - user.go defines the User model for authenticated accounts.
// The password hash is never serialized outward; it is excluded from JSON and
// only loaded by queries that need to verify credentials.
package models

import "time"

// User represents an account bound to one organization. OrganizationID is
// immutable after creation — users never move between tenants.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordHash   string    `json:"-"`
	OrganizationID string    `json:"organizationId"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserProfile is the outward view of a user joined with their organization,
// returned by the auth endpoints.
type UserProfile struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	OrganizationID   string    `json:"organizationId"`
	OrganizationName string    `json:"organizationName"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
}
