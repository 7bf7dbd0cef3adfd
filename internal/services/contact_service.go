// contact_service.go implements the contact workflows. Every mutation runs as
// Validated -> Loaded -> DuplicateChecked -> Persisted -> Audited inside one
// database transaction, so a contact change and its audit record commit or
// roll back together. External audit shipping happens after commit and is
// best-effort: a failed delivery never fails the request.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/audit"
	"github.com/contactvault/contactvault/internal/db/models"
	"github.com/contactvault/contactvault/internal/db/repositories"
	"github.com/contactvault/contactvault/internal/safego"
	"github.com/contactvault/contactvault/internal/telemetry"
	"github.com/contactvault/contactvault/internal/tenant"
	"github.com/contactvault/contactvault/internal/validation"
)

// ContactService handles contact CRUD, notes, and audit history.
type ContactService struct {
	db          *sqlx.DB
	contactRepo *repositories.ContactRepository
	auditRepo   *repositories.AuditRepository
	shippers    []audit.Shipper
}

// NewContactService creates a new ContactService. Shippers may be empty.
func NewContactService(db *sqlx.DB, contactRepo *repositories.ContactRepository, auditRepo *repositories.AuditRepository, shippers []audit.Shipper) *ContactService {
	return &ContactService{
		db:          db,
		contactRepo: contactRepo,
		auditRepo:   auditRepo,
		shippers:    shippers,
	}
}

// Pagination describes one page of a listing result.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func paginate(page, limit, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ArchiveResult is returned by Archive.
type ArchiveResult struct {
	DeletedID string    `json:"deletedId"`
	DeletedAt time.Time `json:"deletedAt"`
}

// NoteResult is the subset of the contact returned after appending a note.
type NoteResult struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Notes     []models.Note `json:"notes"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Create validates and inserts a new contact and records its audit entry.
// Email and phone duplicates within the organization are rejected with
// Conflict; the partial unique indexes are the authoritative guard behind the
// advisory pre-check.
func (s *ContactService) Create(ctx context.Context, tc tenant.Context, in validation.CreateContactInput, meta models.AuditMetadata) (*models.Contact, error) {
	if fields := validation.ValidateCreateContact(&in); len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}

	if err := s.checkDuplicates(ctx, tc.OrganizationID, in.Email, in.Phone, ""); err != nil {
		return nil, err
	}
	if meta.Description == "" {
		meta.Description = "Contact created"
	}

	contact := &models.Contact{
		OrganizationID: tc.OrganizationID,
		Name:           in.Name,
		Email:          optional(in.Email),
		Phone:          optional(in.Phone),
		CreatedBy:      tc.UserID,
		CreatedByName:  tc.UserName,
	}

	var entry *models.AuditLog
	err := s.inTx(ctx, func(contacts *repositories.ContactRepository, audits *repositories.AuditRepository) error {
		if err := contacts.Create(ctx, contact); err != nil {
			if repositories.IsUniqueViolation(err) {
				return apperror.New(apperror.Conflict, "a contact with this email or phone already exists")
			}
			return apperror.Wrap(apperror.Internal, "failed to create contact", err)
		}

		entry = &models.AuditLog{
			OrganizationID: tc.OrganizationID,
			EntityType:     models.AuditEntityContact,
			EntityID:       contact.ID,
			Action:         models.AuditActionCreate,
			Changes: models.AuditChanges{
				New: map[string]interface{}{
					"name":   contact.Name,
					"email":  derefOrNil(contact.Email),
					"phone":  derefOrNil(contact.Phone),
					"status": contact.Status,
				},
			},
			PerformedBy:     tc.UserID,
			PerformedByName: tc.UserName,
			Metadata:        meta,
		}
		if err := audits.Create(ctx, entry); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to record audit entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit("create", entry)
	slog.Info("contact created", "contact_id", contact.ID, "organization_id", tc.OrganizationID)
	return contact, nil
}

// Get returns a non-archived contact scoped to the caller's organization.
func (s *ContactService) Get(ctx context.Context, tc tenant.Context, contactID string) (*models.Contact, error) {
	contact, err := s.contactRepo.FindByID(ctx, tc.OrganizationID, contactID)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load contact", err)
	}
	if contact == nil {
		return nil, apperror.New(apperror.NotFound, "contact not found")
	}
	return contact, nil
}

// Update applies a partial update and records an audit entry holding exactly
// the fields whose value changed. An update that changes nothing writes no
// audit entry.
func (s *ContactService) Update(ctx context.Context, tc tenant.Context, contactID string, in validation.UpdateContactInput, meta models.AuditMetadata) (*models.Contact, error) {
	if fields := validation.ValidateUpdateContact(&in); len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}

	existing, err := s.contactRepo.FindByID(ctx, tc.OrganizationID, contactID)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load contact", err)
	}
	if existing == nil {
		return nil, apperror.New(apperror.NotFound, "contact not found")
	}

	email, phone := "", ""
	if in.Email != nil {
		email = *in.Email
	}
	if in.Phone != nil {
		phone = *in.Phone
	}
	if err := s.checkDuplicates(ctx, tc.OrganizationID, email, phone, contactID); err != nil {
		return nil, err
	}

	oldFields, newFields := diffContact(existing, in)
	if len(newFields) == 0 {
		// Nothing changed; skip the write and the audit entry.
		return existing, nil
	}
	if meta.Description == "" {
		meta.Description = "Contact updated"
	}

	var updated *models.Contact
	var entry *models.AuditLog
	err = s.inTx(ctx, func(contacts *repositories.ContactRepository, audits *repositories.AuditRepository) error {
		fields := repositories.ContactUpdate{Name: in.Name, Email: in.Email, Phone: in.Phone}
		var err error
		updated, err = contacts.Update(ctx, tc.OrganizationID, contactID, fields, tc.UserID, tc.UserName)
		if err != nil {
			if repositories.IsUniqueViolation(err) {
				return apperror.New(apperror.Conflict, "a contact with this email or phone already exists")
			}
			return apperror.Wrap(apperror.Internal, "failed to update contact", err)
		}
		if updated == nil {
			return apperror.New(apperror.NotFound, "contact not found")
		}

		entry = &models.AuditLog{
			OrganizationID:  tc.OrganizationID,
			EntityType:      models.AuditEntityContact,
			EntityID:        contactID,
			Action:          models.AuditActionUpdate,
			Changes:         models.AuditChanges{Old: oldFields, New: newFields},
			PerformedBy:     tc.UserID,
			PerformedByName: tc.UserName,
			Metadata:        meta,
		}
		if err := audits.Create(ctx, entry); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to record audit entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit("update", entry)
	return updated, nil
}

// Archive soft-deletes a contact. Archived is terminal: archiving an already
// archived contact returns NotFound.
func (s *ContactService) Archive(ctx context.Context, tc tenant.Context, contactID string, meta models.AuditMetadata) (*ArchiveResult, error) {
	existing, err := s.contactRepo.FindByID(ctx, tc.OrganizationID, contactID)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to load contact", err)
	}
	if existing == nil {
		return nil, apperror.New(apperror.NotFound, "contact not found")
	}

	if meta.Description == "" {
		meta.Description = "Contact deleted"
	}

	deletedAt := time.Now()
	var entry *models.AuditLog
	err = s.inTx(ctx, func(contacts *repositories.ContactRepository, audits *repositories.AuditRepository) error {
		archived, err := contacts.Archive(ctx, tc.OrganizationID, contactID, tc.UserID, tc.UserName)
		if err != nil {
			return apperror.Wrap(apperror.Internal, "failed to archive contact", err)
		}
		if !archived {
			return apperror.New(apperror.NotFound, "contact not found")
		}

		entry = &models.AuditLog{
			OrganizationID: tc.OrganizationID,
			EntityType:     models.AuditEntityContact,
			EntityID:       contactID,
			Action:         models.AuditActionDelete,
			Changes: models.AuditChanges{
				Old: map[string]interface{}{
					"name":       existing.Name,
					"email":      derefOrNil(existing.Email),
					"phone":      derefOrNil(existing.Phone),
					"status":     existing.Status,
					"notesCount": existing.NoteCount(),
				},
				New: map[string]interface{}{
					"status": models.ContactStatusArchived,
				},
			},
			PerformedBy:     tc.UserID,
			PerformedByName: tc.UserName,
			Metadata:        meta,
		}
		if err := audits.Create(ctx, entry); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to record audit entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit("archive", entry)
	slog.Info("contact archived", "contact_id", contactID, "organization_id", tc.OrganizationID)
	return &ArchiveResult{DeletedID: contactID, DeletedAt: deletedAt}, nil
}

// AddNote appends one note to a contact's note sequence. The note's audit
// entry carries the parent contact ID in changes.new so the contact's audit
// listing can find it.
func (s *ContactService) AddNote(ctx context.Context, tc tenant.Context, contactID string, in validation.AddNoteInput, meta models.AuditMetadata) (*NoteResult, error) {
	if fields := validation.ValidateAddNote(&in); len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}
	if meta.Description == "" {
		meta.Description = "Note added to contact"
	}

	note := models.Note{
		ID:          uuid.New().String(),
		Content:     in.Content,
		Type:        in.Type,
		AddedBy:     tc.UserID,
		AddedByName: tc.UserName,
		AddedAt:     time.Now(),
		IsPrivate:   in.IsPrivate,
	}

	var updated *models.Contact
	var entry *models.AuditLog
	err := s.inTx(ctx, func(contacts *repositories.ContactRepository, audits *repositories.AuditRepository) error {
		var err error
		updated, err = contacts.AppendNote(ctx, tc.OrganizationID, contactID, note)
		if err != nil {
			return apperror.Wrap(apperror.Internal, "failed to append note", err)
		}
		if updated == nil {
			return apperror.New(apperror.NotFound, "contact not found")
		}

		entry = &models.AuditLog{
			OrganizationID: tc.OrganizationID,
			EntityType:     models.AuditEntityNote,
			EntityID:       note.ID,
			Action:         models.AuditActionCreate,
			Changes: models.AuditChanges{
				New: map[string]interface{}{
					"contactId": contactID,
					"content":   note.Content,
					"type":      note.Type,
					"isPrivate": note.IsPrivate,
				},
			},
			PerformedBy:     tc.UserID,
			PerformedByName: tc.UserName,
			Metadata:        meta,
		}
		if err := audits.Create(ctx, entry); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to record audit entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit("add_note", entry)
	return &NoteResult{
		ID:        updated.ID,
		Name:      updated.Name,
		Notes:     updated.Notes,
		UpdatedAt: updated.UpdatedAt,
	}, nil
}

// List returns one page of contact summaries matching the query.
func (s *ContactService) List(ctx context.Context, tc tenant.Context, q validation.ListQuery) ([]*models.ContactSummary, Pagination, error) {
	filter := repositories.ContactListFilter{
		Search:    q.Search,
		Status:    q.Status,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Limit:     q.Limit,
		Offset:    q.Offset(),
	}

	contacts, total, err := s.contactRepo.List(ctx, tc.OrganizationID, filter)
	if err != nil {
		return nil, Pagination{}, apperror.Wrap(apperror.Internal, "failed to list contacts", err)
	}

	return contacts, paginate(q.Page, q.Limit, total), nil
}

// AuditLogs returns one reverse-chronological page of a contact's audit trail,
// including entries for its notes. The trail of an archived contact stays
// readable.
func (s *ContactService) AuditLogs(ctx context.Context, tc tenant.Context, contactID string, page, limit int) ([]*models.AuditLog, Pagination, error) {
	contact, err := s.contactRepo.FindByIDAnyStatus(ctx, tc.OrganizationID, contactID)
	if err != nil {
		return nil, Pagination{}, apperror.Wrap(apperror.Internal, "failed to load contact", err)
	}
	if contact == nil {
		return nil, Pagination{}, apperror.New(apperror.NotFound, "contact not found")
	}

	logs, total, err := s.auditRepo.ListForContact(ctx, tc.OrganizationID, contactID, limit, (page-1)*limit)
	if err != nil {
		return nil, Pagination{}, apperror.Wrap(apperror.Internal, "failed to list audit entries", err)
	}

	return logs, paginate(page, limit, total), nil
}

// inTx runs fn with transaction-bound repository copies, committing when fn
// returns nil and rolling back otherwise.
func (s *ContactService) inTx(ctx context.Context, fn func(*repositories.ContactRepository, *repositories.AuditRepository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(apperror.Internal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(s.contactRepo.WithTx(tx), s.auditRepo.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(apperror.Internal, "failed to commit transaction", err)
	}
	return nil
}

// checkDuplicates is the advisory duplicate pre-check. It exists to produce a
// friendly Conflict message before the insert; the partial unique indexes
// remain the guard that holds under concurrency.
func (s *ContactService) checkDuplicates(ctx context.Context, orgID, email, phone, excludeID string) error {
	if email != "" {
		n, err := s.contactRepo.CountByEmail(ctx, orgID, email, excludeID)
		if err != nil {
			return apperror.Wrap(apperror.Internal, "failed to check for duplicate email", err)
		}
		if n > 0 {
			return apperror.New(apperror.Conflict, "a contact with this email already exists")
		}
	}
	if phone != "" {
		n, err := s.contactRepo.CountByPhone(ctx, orgID, phone, excludeID)
		if err != nil {
			return apperror.Wrap(apperror.Internal, "failed to check for duplicate phone", err)
		}
		if n > 0 {
			return apperror.New(apperror.Conflict, "a contact with this phone already exists")
		}
	}
	return nil
}

// afterCommit updates counters and ships the committed entry to the
// configured external sinks.
func (s *ContactService) afterCommit(operation string, entry *models.AuditLog) {
	telemetry.ContactMutationsTotal.WithLabelValues(operation).Inc()
	telemetry.AuditRecordsTotal.WithLabelValues(entry.EntityType, entry.Action).Inc()

	if len(s.shippers) == 0 {
		return
	}
	shipped := *entry
	s.shipAsync(&shipped)
}

func (s *ContactService) shipAsync(entry *models.AuditLog) {
	shippers := s.shippers
	safego.Go("audit-ship", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, sh := range shippers {
			if err := sh.Ship(ctx, entry); err != nil {
				telemetry.AuditShipFailuresTotal.WithLabelValues(shipperName(sh)).Inc()
				slog.Warn("audit entry delivery failed", "entry_id", entry.ID, "error", err)
			}
		}
	})
}

func shipperName(s audit.Shipper) string {
	switch s.(type) {
	case *audit.FileShipper:
		return "file"
	case *audit.WebhookShipper:
		return "webhook"
	default:
		return "unknown"
	}
}

// diffContact computes the old/new field maps for an update. Only provided
// fields whose normalized value differs from the stored value appear.
func diffContact(existing *models.Contact, in validation.UpdateContactInput) (map[string]interface{}, map[string]interface{}) {
	oldFields := map[string]interface{}{}
	newFields := map[string]interface{}{}

	if in.Name != nil && *in.Name != existing.Name {
		oldFields["name"] = existing.Name
		newFields["name"] = *in.Name
	}
	if in.Email != nil && *in.Email != deref(existing.Email) {
		oldFields["email"] = derefOrNil(existing.Email)
		newFields["email"] = valueOrNil(*in.Email)
	}
	if in.Phone != nil && *in.Phone != deref(existing.Phone) {
		oldFields["phone"] = derefOrNil(existing.Phone)
		newFields["phone"] = valueOrNil(*in.Phone)
	}

	return oldFields, newFields
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func valueOrNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
