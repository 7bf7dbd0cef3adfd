// Package repositories implements the data access layer (repository pattern) for contactvault.
// Each repository type encapsulates all database queries for a domain entity.
// Services never issue SQL directly — all database access goes through this layer,
// which makes query logic testable in isolation and keeps organization scoping
// rules in one place.
//
// Repositories run against an sqlx.ExtContext, which both *sqlx.DB and *sqlx.Tx
// satisfy. WithTx rebinds a repository to a transaction so a service can make a
// mutation and its audit record commit or roll back together.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/contactvault/contactvault/internal/db/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation. Services use this to convert the store-level duplicate guard
// (partial unique indexes on contacts) into a Conflict result.
func IsUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// OrganizationRepository handles organization database operations
type OrganizationRepository struct {
	ext sqlx.ExtContext
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{ext: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *OrganizationRepository) WithTx(tx *sqlx.Tx) *OrganizationRepository {
	return &OrganizationRepository{ext: tx}
}

// Create creates a new organization. ID, timestamps, and slug must already be
// set by the caller for slug; ID and timestamps are assigned here.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	org.ID = uuid.New().String()
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt

	settingsJSON, err := json.Marshal(org.Settings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO organizations (id, name, slug, status, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.ext.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Slug,
		org.Status,
		settingsJSON,
		org.CreatedAt,
		org.UpdatedAt,
	)

	return err
}

const orgColumns = `id, name, slug, status, settings, created_at, updated_at`

func scanOrganization(row *sqlx.Row) (*models.Organization, error) {
	org := &models.Organization{}
	var settingsJSON []byte

	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.Status,
		&settingsJSON,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &org.Settings); err != nil {
			return nil, err
		}
	}

	return org, nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, orgID string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrganization(r.ext.QueryRowxContext(ctx, query, orgID))
}

// GetByName retrieves an organization by exact name. Registration trims the
// name first; no case normalization is applied.
func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE name = $1`
	return scanOrganization(r.ext.QueryRowxContext(ctx, query, name))
}
