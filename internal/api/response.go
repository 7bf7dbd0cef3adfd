// response.go defines the response envelope shared by every endpoint and the
// single place where service error kinds become HTTP status codes.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/middleware"
	"github.com/contactvault/contactvault/internal/services"
)

// Envelope is the uniform response shape. Data, Error, and Pagination are
// omitted when empty; Success and Message are always present.
type Envelope struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Data       interface{}          `json:"data,omitempty"`
	Error      *ErrorBody           `json:"error,omitempty"`
	Pagination *services.Pagination `json:"pagination,omitempty"`
}

// ErrorBody carries the stable error code and optional per-field details.
type ErrorBody struct {
	Code   string                `json:"code"`
	Fields []apperror.FieldError `json:"fields,omitempty"`
}

// respondOK writes a 200 success envelope.
func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// respondCreated writes a 201 success envelope.
func respondCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// respondPage writes a 200 success envelope with pagination.
func respondPage(c *gin.Context, message string, data interface{}, page services.Pagination) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data, Pagination: &page})
}

// statusOf maps an error kind to its HTTP status. This is the only place in
// the codebase where that mapping exists.
func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.Unauthenticated, apperror.InvalidCredentials:
		return http.StatusUnauthorized
	case apperror.AccountInactive, apperror.OrganizationInactive, apperror.TenantMismatch:
		return http.StatusForbidden
	case apperror.NotFound:
		return http.StatusNotFound
	case apperror.Conflict:
		return http.StatusConflict
	case apperror.ValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError converts a service error into the envelope. Internal errors are
// logged with the request ID and presented as a generic message so store
// details never leak outward.
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	message := "An internal error occurred"
	var fields []apperror.FieldError

	var appErr *apperror.Error
	errors.As(err, &appErr)

	if kind == apperror.Internal {
		slog.Error("request failed",
			"error", err,
			"request_id", c.GetString(middleware.RequestIDKey),
			"path", c.FullPath(),
		)
	} else if appErr != nil {
		message = appErr.Message
		fields = appErr.Fields
	}

	c.JSON(statusOf(kind), Envelope{
		Success: false,
		Message: message,
		Error:   &ErrorBody{Code: kind.String(), Fields: fields},
	})
}

// respondBadRequest rejects an unparseable request body.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Message: message,
		Error:   &ErrorBody{Code: apperror.ValidationFailed.String()},
	})
}
