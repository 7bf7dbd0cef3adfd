// account.go validates registration and login payloads before they reach the
// auth service.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/contactvault/contactvault/internal/apperror"
)

// Field length limits for account payloads
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinNameLength     = 2
	MaxNameLength     = 50
	MinPasswordLength = 6
	MinOrgNameLength  = 2
	MaxOrgNameLength  = 100
)

var (
	usernameRegex = regexp.MustCompile(`^[a-z0-9_]+$`)
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// RegisterInput is the normalized registration payload.
type RegisterInput struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	OrganizationName string `json:"organizationName"`
}

// LoginInput carries the login credentials. Login accepts either a username
// or an email address in the login field.
type LoginInput struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// ValidateRegister checks a registration payload and returns one FieldError
// per invalid field. It also normalizes the input in place: username and
// email are lowercased, and all text fields are trimmed.
func ValidateRegister(in *RegisterInput) []apperror.FieldError {
	var fields []apperror.FieldError

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)

	if l := utf8.RuneCountInString(in.Username); l < MinUsernameLength || l > MaxUsernameLength {
		fields = append(fields, apperror.FieldError{
			Field:   "username",
			Message: "username must be between 3 and 30 characters",
		})
	} else if !usernameRegex.MatchString(in.Username) {
		fields = append(fields, apperror.FieldError{
			Field:   "username",
			Message: "username may only contain lowercase letters, numbers, and underscores",
		})
	}

	if !IsValidEmail(in.Email) {
		fields = append(fields, apperror.FieldError{
			Field:   "email",
			Message: "email must be a valid email address",
		})
	}

	if len(in.Password) < MinPasswordLength {
		fields = append(fields, apperror.FieldError{
			Field:   "password",
			Message: "password must be at least 6 characters",
		})
	}

	if l := utf8.RuneCountInString(in.Name); l < MinNameLength || l > MaxNameLength {
		fields = append(fields, apperror.FieldError{
			Field:   "name",
			Message: "name must be between 2 and 50 characters",
		})
	}

	if l := utf8.RuneCountInString(in.OrganizationName); l < MinOrgNameLength || l > MaxOrgNameLength {
		fields = append(fields, apperror.FieldError{
			Field:   "organizationName",
			Message: "organization name must be between 2 and 100 characters",
		})
	}

	return fields
}

// ValidateLogin checks a login payload. The login field is matched against
// both usernames and email addresses downstream, so only presence is checked
// here.
func ValidateLogin(in *LoginInput) []apperror.FieldError {
	var fields []apperror.FieldError

	in.Login = strings.ToLower(strings.TrimSpace(in.Login))

	if in.Login == "" {
		fields = append(fields, apperror.FieldError{
			Field:   "login",
			Message: "login is required",
		})
	}
	if in.Password == "" {
		fields = append(fields, apperror.FieldError{
			Field:   "password",
			Message: "password is required",
		})
	}

	return fields
}

// IsValidEmail reports whether s looks like an email address. The check is
// deliberately loose; deliverability is not this service's concern.
func IsValidEmail(s string) bool {
	return s != "" && emailRegex.MatchString(s)
}
