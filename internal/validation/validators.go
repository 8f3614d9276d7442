// Package validation holds the character-set rules for user-supplied names and
// credentials.
package validation

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/isdelr/private-leagues-api/internal/models"
)

// Password length bounds, enforced by callers through PasswordLength; the
// Password predicate only checks characters. bcrypt refuses longer input.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var (
	// usernames: alphanumerics only, empty string allowed
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9]*$`)
	// passwords: alphanumerics and , . - _
	passwordRegex = regexp.MustCompile(`^[A-Za-z0-9,.\-_]*$`)
	// league and display names: word characters, dashes and whitespace
	nameRegex = regexp.MustCompile(`^[\w\-\s]+$`)
)

// Username checks that username contains only allowed characters.
func Username(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username contains invalid characters", models.ErrValidation)
	}
	return nil
}

// Password checks that a plain text password contains only allowed characters.
func Password(password string) error {
	if !passwordRegex.MatchString(password) {
		return fmt.Errorf("%w: password contains invalid characters", models.ErrValidation)
	}
	return nil
}

// PasswordLength checks the password length bounds.
func PasswordLength(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d characters", models.ErrValidation, MaxPasswordLength)
	}
	return nil
}

// Name checks a league or display name. Unlike Username it rejects the empty
// string.
func Name(name string) error {
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: name contains invalid characters", models.ErrValidation)
	}
	return nil
}

// Credentials applies the rules shared by login and registration: a non-empty
// alphanumeric username and a password of allowed characters and length.
func Credentials(username, password string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", models.ErrValidation)
	}
	if err := Username(username); err != nil {
		return err
	}
	if err := PasswordLength(password); err != nil {
		return err
	}
	return Password(password)
}

// ID checks that id has the shape of a store-generated identifier.
func ID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed id %q", models.ErrValidation, id)
	}
	return nil
}
