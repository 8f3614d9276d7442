package services

import (
	"fmt"

	"github.com/isdelr/private-leagues-api/internal/models"
)

// Specific failures. Each wraps one of the models categories so callers can
// branch on either.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", models.ErrNotFound)
	ErrUsernameTaken      = fmt.Errorf("%w: username already taken", models.ErrConflict)
	ErrInvalidUsername    = fmt.Errorf("%w: invalid username formatting", models.ErrValidation)
	ErrInvalidPassword    = fmt.Errorf("%w: invalid password formatting", models.ErrValidation)
	ErrEmptyUpdate        = fmt.Errorf("%w: no updatable fields", models.ErrValidation)
	ErrEmptyEvent         = fmt.Errorf("%w: no valid fields", models.ErrValidation)
	ErrInvalidName        = fmt.Errorf("%w: invalid name", models.ErrValidation)
	ErrUnknownUser        = fmt.Errorf("%w: user does not exist", models.ErrNotFound)
)
