// contact.go validates contact and note payloads. All checks run before any
// database work so a bad payload never opens a transaction.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/contactvault/contactvault/internal/apperror"
	"github.com/contactvault/contactvault/internal/db/models"
)

// Field length limits for contact payloads
const (
	MinContactNameLength = 2
	MaxContactNameLength = 100
)

// phoneRegex accepts an optional leading + followed by at least ten digits,
// spaces, hyphens, or parentheses.
var phoneRegex = regexp.MustCompile(`^[+]?[\d\s\-()]{10,}$`)

// CreateContactInput is the payload for creating a contact. Email and phone
// are optional; empty strings are treated as absent.
type CreateContactInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UpdateContactInput is the payload for a partial contact update. Nil fields
// are left untouched; non-nil fields are validated and applied.
type UpdateContactInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// AddNoteInput is the payload for appending a note to a contact.
type AddNoteInput struct {
	Content   string `json:"content"`
	Type      string `json:"type"`
	IsPrivate bool   `json:"isPrivate"`
}

// ValidateCreateContact checks a contact creation payload and trims its text
// fields in place.
func ValidateCreateContact(in *CreateContactInput) []apperror.FieldError {
	var fields []apperror.FieldError

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	if l := utf8.RuneCountInString(in.Name); l < MinContactNameLength || l > MaxContactNameLength {
		fields = append(fields, apperror.FieldError{
			Field:   "name",
			Message: "name must be between 2 and 100 characters",
		})
	}
	if in.Email != "" && !IsValidEmail(in.Email) {
		fields = append(fields, apperror.FieldError{
			Field:   "email",
			Message: "email must be a valid email address",
		})
	}
	if in.Phone != "" && !phoneRegex.MatchString(in.Phone) {
		fields = append(fields, apperror.FieldError{
			Field:   "phone",
			Message: "phone must contain at least 10 digits and may include +, spaces, hyphens, and parentheses",
		})
	}

	return fields
}

// ValidateUpdateContact checks a partial update payload. Provided fields are
// trimmed in place; a provided empty email or phone clears the field and is
// valid.
func ValidateUpdateContact(in *UpdateContactInput) []apperror.FieldError {
	var fields []apperror.FieldError

	if in.Name != nil {
		*in.Name = strings.TrimSpace(*in.Name)
		if l := utf8.RuneCountInString(*in.Name); l < MinContactNameLength || l > MaxContactNameLength {
			fields = append(fields, apperror.FieldError{
				Field:   "name",
				Message: "name must be between 2 and 100 characters",
			})
		}
	}
	if in.Email != nil {
		*in.Email = strings.ToLower(strings.TrimSpace(*in.Email))
		if *in.Email != "" && !IsValidEmail(*in.Email) {
			fields = append(fields, apperror.FieldError{
				Field:   "email",
				Message: "email must be a valid email address",
			})
		}
	}
	if in.Phone != nil {
		*in.Phone = strings.TrimSpace(*in.Phone)
		if *in.Phone != "" && !phoneRegex.MatchString(*in.Phone) {
			fields = append(fields, apperror.FieldError{
				Field:   "phone",
				Message: "phone must contain at least 10 digits and may include +, spaces, hyphens, and parentheses",
			})
		}
	}

	if in.Name == nil && in.Email == nil && in.Phone == nil {
		fields = append(fields, apperror.FieldError{
			Field:   "body",
			Message: "at least one of name, email, or phone must be provided",
		})
	}

	return fields
}

// ValidateAddNote checks a note payload. An empty type defaults to "general".
func ValidateAddNote(in *AddNoteInput) []apperror.FieldError {
	var fields []apperror.FieldError

	in.Content = strings.TrimSpace(in.Content)
	if in.Type == "" {
		in.Type = string(models.NoteTypeGeneral)
	}

	if l := utf8.RuneCountInString(in.Content); l < 1 || l > models.MaxNoteLength {
		fields = append(fields, apperror.FieldError{
			Field:   "content",
			Message: "content must be between 1 and 2000 characters",
		})
	}
	if !models.IsValidNoteType(in.Type) {
		fields = append(fields, apperror.FieldError{
			Field:   "type",
			Message: "type must be one of: general, meeting, call, email",
		})
	}

	return fields
}
