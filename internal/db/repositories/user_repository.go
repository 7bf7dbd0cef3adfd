// user_repository.go implements UserRepository, providing database queries for
// account lookup and creation. Lookups used for login load the password hash;
// everything else leaves it out of the query entirely.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/contactvault/contactvault/internal/db/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	ext sqlx.ExtContext
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{ext: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx *sqlx.Tx) *UserRepository {
	return &UserRepository{ext: tx}
}

// Create creates a new user. The password hash must already be computed.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	query := `
		INSERT INTO users (id, username, email, name, password_hash, organization_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.ext.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.OrganizationID,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return err
}

// GetByID retrieves a user by ID. The password hash is not loaded.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, email, name, organization_id, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.ext.QueryRowxContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.OrganizationID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// FindByLogin retrieves a user whose username or email matches the given
// identifier, including the password hash for credential verification.
func (r *UserRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	query := `
		SELECT id, username, email, name, password_hash, organization_id, is_active, created_at, updated_at
		FROM users
		WHERE username = $1 OR email = $1
	`

	user := &models.User{}
	err := r.ext.QueryRowxContext(ctx, query, usernameOrEmail).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.OrganizationID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// FindTaken reports which of username or email is already registered.
// Returns "username", "email", or "" when both are free.
func (r *UserRepository) FindTaken(ctx context.Context, username, email string) (string, error) {
	query := `
		SELECT username, email
		FROM users
		WHERE username = $1 OR email = $2
		LIMIT 1
	`

	var takenUsername, takenEmail string
	err := r.ext.QueryRowxContext(ctx, query, username, email).Scan(&takenUsername, &takenEmail)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if takenEmail == email {
		return "email", nil
	}
	return "username", nil
}
