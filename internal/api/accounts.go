package api

import (
	"github.com/gin-gonic/gin"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/db/models"
	"github.com/contactvault/contactvault/internal/services"
	"github.com/contactvault/contactvault/internal/tenant"
	"github.com/contactvault/contactvault/internal/validation"
)

// AccountHandler serves registration, login, and profile endpoints.
type AccountHandler struct {
	auth *services.AuthService
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(auth *services.AuthService) *AccountHandler {
	return &AccountHandler{auth: auth}
}

// Register handles POST /api/v1/auth/register.
func (h *AccountHandler) Register(c *gin.Context) {
	var in validation.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "request body must be valid JSON")
		return
	}

	result, err := h.auth.Register(c.Request.Context(), in, requestMetadata(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, "Account created successfully", result)
}

// Login handles POST /api/v1/auth/login.
func (h *AccountHandler) Login(c *gin.Context) {
	var in validation.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "request body must be valid JSON")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Login successful", result)
}

// Profile handles GET /api/v1/auth/profile.
func (h *AccountHandler) Profile(c *gin.Context) {
	tc, ok := tenant.FromGin(c)
	if !ok {
		respondError(c, apperror.New(apperror.Unauthenticated, "authentication required"))
		return
	}

	profile, err := h.auth.Profile(c.Request.Context(), tc.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Profile retrieved successfully", profile)
}

// requestMetadata captures the caller's address and agent for audit entries.
func requestMetadata(c *gin.Context) models.AuditMetadata {
	return models.AuditMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
