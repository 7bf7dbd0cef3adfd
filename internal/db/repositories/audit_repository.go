// audit_repository.go implements AuditRepository, the append-only ledger of
// state changes. Entries are inserted and read; no update or delete statement
// exists in this file, and no other code touches the audit_logs table.
package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/contactvault/contactvault/internal/db/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	ext sqlx.ExtContext
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{ext: db}
}

// WithTx returns a copy of the repository bound to the given transaction, so
// the audit insert commits or rolls back together with the mutation it records.
func (r *AuditRepository) WithTx(tx *sqlx.Tx) *AuditRepository {
	return &AuditRepository{ext: tx}
}

// Create writes one immutable audit log entry.
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	log.ID = uuid.New().String()
	log.Timestamp = time.Now()

	changesJSON, err := json.Marshal(log.Changes)
	if err != nil {
		return err
	}
	metadataJSON, err := json.Marshal(log.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (id, organization_id, entity_type, entity_id, action,
			changes, performed_by, performed_by_name, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.ext.ExecContext(ctx, query,
		log.ID,
		log.OrganizationID,
		log.EntityType,
		log.EntityID,
		log.Action,
		changesJSON,
		log.PerformedBy,
		log.PerformedByName,
		metadataJSON,
		log.Timestamp,
	)

	return err
}

// auditMatchContact matches entries for the contact itself plus entries for
// notes created under it (note audit entries carry the parent contact ID in
// changes.new.contactId).
const auditMatchContact = `
	organization_id = $1
	AND (
		(entity_id = $2 AND entity_type = 'contact')
		OR (entity_type = 'note' AND changes -> 'new' ->> 'contactId' = $2)
	)
`

// ListForContact retrieves one reverse-chronological page of audit entries for
// a contact, including entries for notes added to it, plus the total count.
func (r *AuditRepository) ListForContact(ctx context.Context, orgID, contactID string, limit, offset int) ([]*models.AuditLog, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM audit_logs WHERE ` + auditMatchContact
	if err := sqlx.GetContext(ctx, r.ext, &total, countQuery, orgID, contactID); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, organization_id, entity_type, entity_id, action, changes,
			performed_by, performed_by_name, metadata, timestamp
		FROM audit_logs
		WHERE ` + auditMatchContact + `
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.ext.QueryxContext(ctx, query, orgID, contactID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log := &models.AuditLog{}
		var changesJSON, metadataJSON []byte

		err := rows.Scan(
			&log.ID,
			&log.OrganizationID,
			&log.EntityType,
			&log.EntityID,
			&log.Action,
			&changesJSON,
			&log.PerformedBy,
			&log.PerformedByName,
			&metadataJSON,
			&log.Timestamp,
		)
		if err != nil {
			return nil, 0, err
		}

		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &log.Changes); err != nil {
				return nil, 0, err
			}
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
				return nil, 0, err
			}
		}

		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}
