// Package apperror defines the error taxonomy shared by the service layer.
//
// Services return *Error values tagged with a Kind instead of raw HTTP status
// codes so that the transport mapping lives in exactly one place (the API
// response helpers). NotFound deliberately covers three situations that must
// be indistinguishable to the caller: the entity does not exist, it is
// archived, or it belongs to another organization. Collapsing them prevents
// cross-tenant probing by ID.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// Unauthenticated means the request carried no token, or a malformed or
	// expired one.
	Unauthenticated Kind = iota
	// AccountInactive means the token was valid but the user is deactivated.
	AccountInactive
	// OrganizationInactive means the user's organization is suspended or inactive.
	OrganizationInactive
	// TenantMismatch means the token's organization claim disagrees with the
	// user's stored organization.
	TenantMismatch
	// NotFound means the entity is absent, archived, or outside the caller's
	// organization.
	NotFound
	// Conflict means a uniqueness constraint was violated.
	Conflict
	// InvalidCredentials means a login attempt failed. Missing user and wrong
	// password are reported identically.
	InvalidCredentials
	// ValidationFailed means the input was malformed.
	ValidationFailed
	// Internal means a store or infrastructure failure.
	Internal
)

// String returns the stable name of the kind, used in response envelopes and logs.
func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case AccountInactive:
		return "account_inactive"
	case OrganizationInactive:
		return "organization_inactive"
	case TenantMismatch:
		return "tenant_mismatch"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidCredentials:
		return "invalid_credentials"
	case ValidationFailed:
		return "validation_failed"
	default:
		return "internal"
	}
}

// FieldError describes a single failing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a tagged application error.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field validation messages for ValidationFailed errors.
	Fields []FieldError
	// Err is the underlying cause, retained for logging; never serialized
	// outward in production.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an *Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an *Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error that records cause for logging while presenting
// message to the caller.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Validation creates a ValidationFailed error. The envelope surfaces the first
// failing field's message plus the full list.
func Validation(fields []FieldError) *Error {
	msg := "validation failed"
	if len(fields) > 0 {
		msg = fields[0].Message
	}
	return &Error{Kind: ValidationFailed, Message: msg, Fields: fields}
}

// KindOf extracts the Kind from err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
