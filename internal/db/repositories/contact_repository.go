// contact_repository.go implements ContactRepository. Every query takes the
// caller's organization ID and filters on it — a contact belonging to another
// organization is indistinguishable from one that does not exist. Normal reads
// also exclude archived contacts; only the audit-history path may see them.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/contactvault/contactvault/internal/db/models"
)

// Sort keys accepted by List. The API boundary rejects anything else; the map
// here is the only place query input meets SQL identifiers.
var contactSortColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// ContactListFilter describes a contact listing query.
type ContactListFilter struct {
	Search    string
	Status    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// ContactUpdate carries the fields of a partial update. Nil means "not
// provided"; provided fields replace the stored value.
type ContactUpdate struct {
	Name  *string
	Email *string
	Phone *string
}

// ContactRepository handles contact database operations
type ContactRepository struct {
	ext sqlx.ExtContext
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{ext: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ContactRepository) WithTx(tx *sqlx.Tx) *ContactRepository {
	return &ContactRepository{ext: tx}
}

const contactColumns = `id, organization_id, name, email, phone, status, notes,
	created_by, created_by_name, last_modified_by, last_modified_by_name,
	created_at, updated_at`

func scanContact(row *sqlx.Row) (*models.Contact, error) {
	contact := &models.Contact{}
	var notesJSON []byte

	err := row.Scan(
		&contact.ID,
		&contact.OrganizationID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.Status,
		&notesJSON,
		&contact.CreatedBy,
		&contact.CreatedByName,
		&contact.LastModifiedBy,
		&contact.LastModifiedByName,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	contact.Notes = []models.Note{}
	if len(notesJSON) > 0 {
		if err := json.Unmarshal(notesJSON, &contact.Notes); err != nil {
			return nil, err
		}
	}

	return contact, nil
}

// FindByID retrieves a non-archived contact scoped to the organization.
// Returns nil for archived contacts, other organizations' contacts, and
// missing IDs alike.
func (r *ContactRepository) FindByID(ctx context.Context, orgID, contactID string) (*models.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE id = $1 AND organization_id = $2 AND status <> 'archived'
	`
	return scanContact(r.ext.QueryRowxContext(ctx, query, contactID, orgID))
}

// FindByIDAnyStatus retrieves a contact regardless of archive status. Used by
// the audit-history path, where an archived contact's trail stays readable.
func (r *ContactRepository) FindByIDAnyStatus(ctx context.Context, orgID, contactID string) (*models.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE id = $1 AND organization_id = $2
	`
	return scanContact(r.ext.QueryRowxContext(ctx, query, contactID, orgID))
}

// List returns one page of contact summaries plus the total matching count.
// Search is a case-insensitive substring match OR'd across name, email, and
// phone. The sort key falls back to created_at if it is not in the allow-list.
func (r *ContactRepository) List(ctx context.Context, orgID string, filter ContactListFilter) ([]*models.ContactSummary, int, error) {
	where := `WHERE organization_id = $1`
	args := []interface{}{orgID}
	paramIndex := 2

	if filter.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, paramIndex)
		args = append(args, filter.Status)
		paramIndex++
	} else {
		where += ` AND status <> 'archived'`
	}

	if filter.Search != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)`,
			paramIndex, paramIndex, paramIndex)
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		paramIndex++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM contacts ` + where
	if err := sqlx.GetContext(ctx, r.ext, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := contactSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, name, email, phone, status, jsonb_array_length(notes) AS note_count, created_at, updated_at
		FROM contacts
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, sortColumn, direction, paramIndex, paramIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contacts := make([]*models.ContactSummary, 0)
	for rows.Next() {
		c := &models.ContactSummary{}
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Email,
			&c.Phone,
			&c.Status,
			&c.NoteCount,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, c)
	}

	return contacts, total, rows.Err()
}

// Create inserts a new contact with status active and an empty note sequence.
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	contact.ID = uuid.New().String()
	contact.Status = models.ContactStatusActive
	contact.Notes = []models.Note{}
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = contact.CreatedAt

	query := `
		INSERT INTO contacts (id, organization_id, name, email, phone, status, notes,
			created_by, created_by_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, '[]'::jsonb, $7, $8, $9, $10)
	`

	_, err := r.ext.ExecContext(ctx, query,
		contact.ID,
		contact.OrganizationID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Status,
		contact.CreatedBy,
		contact.CreatedByName,
		contact.CreatedAt,
		contact.UpdatedAt,
	)

	return err
}

// Update merges the provided fields into a non-archived contact and stamps the
// modifier. Returns the updated contact, or nil when no matching contact exists.
func (r *ContactRepository) Update(ctx context.Context, orgID, contactID string, fields ContactUpdate, modifierID, modifierName string) (*models.Contact, error) {
	set := []string{}
	args := []interface{}{contactID, orgID}
	paramIndex := 3

	if fields.Name != nil {
		set = append(set, fmt.Sprintf("name = $%d", paramIndex))
		args = append(args, *fields.Name)
		paramIndex++
	}
	if fields.Email != nil {
		set = append(set, fmt.Sprintf("email = $%d", paramIndex))
		args = append(args, nullIfEmpty(*fields.Email))
		paramIndex++
	}
	if fields.Phone != nil {
		set = append(set, fmt.Sprintf("phone = $%d", paramIndex))
		args = append(args, nullIfEmpty(*fields.Phone))
		paramIndex++
	}

	set = append(set,
		fmt.Sprintf("last_modified_by = $%d", paramIndex),
		fmt.Sprintf("last_modified_by_name = $%d", paramIndex+1),
		fmt.Sprintf("updated_at = $%d", paramIndex+2),
	)
	args = append(args, modifierID, modifierName, time.Now())

	query := `
		UPDATE contacts
		SET ` + strings.Join(set, ", ") + `
		WHERE id = $1 AND organization_id = $2 AND status <> 'archived'
		RETURNING ` + contactColumns

	return scanContact(r.ext.QueryRowxContext(ctx, query, args...))
}

// Archive soft-deletes a contact by setting its status to archived. Returns
// false when the contact is missing, already archived, or in another
// organization — archived is terminal, so a second archive finds nothing.
func (r *ContactRepository) Archive(ctx context.Context, orgID, contactID, modifierID, modifierName string) (bool, error) {
	query := `
		UPDATE contacts
		SET status = 'archived', last_modified_by = $3, last_modified_by_name = $4, updated_at = $5
		WHERE id = $1 AND organization_id = $2 AND status <> 'archived'
	`

	result, err := r.ext.ExecContext(ctx, query, contactID, orgID, modifierID, modifierName, time.Now())
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AppendNote atomically appends one note to the contact's note sequence and
// stamps the modifier, in a single UPDATE. Returns the updated contact, or nil
// when no matching non-archived contact exists.
func (r *ContactRepository) AppendNote(ctx context.Context, orgID, contactID string, note models.Note) (*models.Contact, error) {
	noteJSON, err := json.Marshal(note)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE contacts
		SET notes = notes || $3::jsonb,
			last_modified_by = $4, last_modified_by_name = $5, updated_at = $6
		WHERE id = $1 AND organization_id = $2 AND status <> 'archived'
		RETURNING ` + contactColumns

	return scanContact(r.ext.QueryRowxContext(ctx, query,
		contactID, orgID, noteJSON, note.AddedBy, note.AddedByName, time.Now()))
}

// CountByEmail counts non-archived contacts in the organization with the given
// email, excluding excludeID when non-empty (the contact being updated).
func (r *ContactRepository) CountByEmail(ctx context.Context, orgID, email, excludeID string) (int, error) {
	return r.countByField(ctx, "email", orgID, email, excludeID)
}

// CountByPhone counts non-archived contacts in the organization with the given
// phone, excluding excludeID when non-empty.
func (r *ContactRepository) CountByPhone(ctx context.Context, orgID, phone, excludeID string) (int, error) {
	return r.countByField(ctx, "phone", orgID, phone, excludeID)
}

func (r *ContactRepository) countByField(ctx context.Context, column, orgID, value, excludeID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM contacts
		WHERE organization_id = $1 AND %s = $2 AND status <> 'archived'
	`, column)
	args := []interface{}{orgID, value}

	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}

	var count int
	err := sqlx.GetContext(ctx, r.ext, &count, query, args...)
	return count, err
}

// escapeLike escapes LIKE metacharacters in user-supplied search text so a
// search for "100%" matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// nullIfEmpty maps an empty string to SQL NULL so clearing an optional field
// stores NULL rather than an empty value that would trip the unique index.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
