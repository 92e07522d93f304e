package models

import (
	"fmt"
	"net/mail"
	"unicode/utf8"
)

// ValidationError reports a request field that failed validation. Handlers map
// it to a 422 response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

const (
	minUsernameLen = 8
	maxUsernameLen = 32
	minPasswordLen = 8
	maxPasswordLen = 32
	maxNameLen     = 64
	maxContentLen  = 1000
)

// ValidateUsername checks the 8-32 character bound shared by usernames in
// paths, bodies and token claims.
func ValidateUsername(field, username string) error {
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be between %d and %d characters", minUsernameLen, maxUsernameLen)}
	}
	return nil
}

func ValidatePassword(password string) error {
	if n := utf8.RuneCountInString(password); n < minPasswordLen || n > maxPasswordLen {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be between %d and %d characters", minPasswordLen, maxPasswordLen)}
	}
	return nil
}

func ValidateName(field, name string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLen {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be between 1 and %d characters", maxNameLen)}
	}
	return nil
}

func ValidateContent(content string) error {
	if n := utf8.RuneCountInString(content); n < 1 || n > maxContentLen {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("must be between 1 and %d characters", maxContentLen)}
	}
	return nil
}

// Validate checks every registration field, including the repeated password.
func (r Registration) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if err := ValidateUsername("username", r.Username); err != nil {
		return err
	}
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	if r.Password != r.PasswordRepeat {
		return &ValidationError{Field: "password_repeat", Reason: "passwords do not match"}
	}
	if err := ValidateName("first_name", r.FirstName); err != nil {
		return err
	}
	return ValidateName("last_name", r.LastName)
}
