package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/config"
	"github.com/contactvault/contactvault/internal/db/models"
	"github.com/contactvault/contactvault/internal/services"
	"github.com/contactvault/contactvault/internal/tenant"
	"github.com/contactvault/contactvault/internal/validation"
)

// ContactHandler serves the contact CRUD, note, and audit trail endpoints.
// Every method resolves the tenant context placed by the auth middleware; a
// missing context means the route was wired without it, which is rejected
// rather than served unscoped.
type ContactHandler struct {
	contacts *services.ContactService
	cfg      config.ContactsConfig
}

// NewContactHandler creates a ContactHandler.
func NewContactHandler(contacts *services.ContactService, cfg config.ContactsConfig) *ContactHandler {
	return &ContactHandler{contacts: contacts, cfg: cfg}
}

// Create handles POST /api/v1/contacts.
func (h *ContactHandler) Create(c *gin.Context) {
	tc, ok := tenant.FromGin(c)
	if !ok {
		respondError(c, apperror.New(apperror.Unauthenticated, "authentication required"))
		return
	}

	var in validation.CreateContactInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "request body must be valid JSON")
		return
	}

	contact, err := h.contacts.Create(c.Request.Context(), tc, in, mutationMetadata(c, "Contact created via API"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, "Contact created successfully", contact)
}

// List handles GET /api/v1/contacts.
func (h *ContactHandler) List(c *gin.Context) {
	tc, ok := tenant.FromGin(c)
	if !ok {
		respondError(c, apperror.New(apperror.Unauthenticated, "authentication required"))
		return
	}

	params := validation.ListQueryParams{
		Page:      c.Query("page"),
		Limit:     c.Query("limit"),
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	q, fields := validation.ValidateListQuery(params, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	if len(fields) > 0 {
		respondError(c, apperror.Validation(fields))
		return
	}

	contacts, page, err := h.contacts.List(c.Request.Context(), tc, q)
	if err != nil {
		respondError(c, err)
		return
	}

	respondPage(c, "Contacts retrieved successfully", contacts, page)
}

// Get handles GET /api/v1/contacts/:id.
func (h *ContactHandler) Get(c *gin.Context) {
	tc, ok := tenant.FromGin(c)
	if !ok {
		respondError(c, apperror.New(apperror.Unauthenticated, "authentication required"))
		return
	}

	contact, err := h.contacts.Get(c.Request.Context(), tc, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Contact retrieved successfully", contact)
}

// Update handles PUT /api/v1/contacts/:id.
func (h *ContactHandler) Update(c *gin.Context) {
	tc, ok := tenant.FromGin(c)
	if !ok {
		respondError(c, apperror.New(apperror.Unauthenticated, "authentication required"))
		return
	}

	var in validation.UpdateContactInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "request body must be valid JSON")
		return
	}

	contact, err := h.contacts.Update(c.Request.Context(), tc, c.Param("id"), in, mutationMetadata(c, "Contact updated via API"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Contact updated successfully", contact)
}

// Archive handles DELETE /api/v1/contacts/:id.
func (h *ContactHandler) Archive(c *gin.Context) {
	tc, ok := tenant.FromGin(c)
	if !ok {
		respondError(c, apperror.New(apperror.Unauthenticated, "authentication required"))
		return
	}

	result, err := h.contacts.Archive(c.Request.Context(), tc, c.Param("id"), mutationMetadata(c, "Contact deleted via API"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Contact deleted successfully", result)
}

// AddNote handles POST /api/v1/contacts/:id/notes.
func (h *ContactHandler) AddNote(c *gin.Context) {
	tc, ok := tenant.FromGin(c)
	if !ok {
		respondError(c, apperror.New(apperror.Unauthenticated, "authentication required"))
		return
	}

	var in validation.AddNoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "request body must be valid JSON")
		return
	}

	result, err := h.contacts.AddNote(c.Request.Context(), tc, c.Param("id"), in, mutationMetadata(c, "Note added to contact via API"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, "Note added successfully", result)
}

// AuditLogs handles GET /api/v1/contacts/:id/audit-logs. Only page and limit
// apply here; entries come back newest first.
func (h *ContactHandler) AuditLogs(c *gin.Context) {
	tc, ok := tenant.FromGin(c)
	if !ok {
		respondError(c, apperror.New(apperror.Unauthenticated, "authentication required"))
		return
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), h.cfg.DefaultPageSize)
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}

	logs, pagination, err := h.contacts.AuditLogs(c.Request.Context(), tc, c.Param("id"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondPage(c, "Audit logs retrieved successfully", logs, pagination)
}

// mutationMetadata builds the audit metadata for a contact mutation,
// combining request attribution with the operation description.
func mutationMetadata(c *gin.Context, description string) models.AuditMetadata {
	meta := requestMetadata(c)
	meta.Description = description
	return meta
}

// parsePositiveInt returns raw as an int, or fallback when raw is absent or
// not a positive integer.
func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
