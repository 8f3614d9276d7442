package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/private-leagues-api/internal/auth"
	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/isdelr/private-leagues-api/internal/validation"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, password string, profile models.Fields) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, id string, patch models.Fields) error
	DeleteUser(ctx context.Context, id string) error
}

// UserService provides business logic for user management.
type UserService struct {
	db     *sql.DB
	hasher *auth.Hasher
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, hasher *auth.Hasher) *UserService {
	return &UserService{db: db, hasher: hasher}
}

const userColumns = "id, username, password_hash, profile_json"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.ProfileJSON); err != nil {
		return models.User{}, err
	}
	if err := user.PrepareForAPI(); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, s.db, "id", id)
}

// GetUserByUsername retrieves a single user by their username, including the password hash.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, s.db, "username", username)
}

func (s *UserService) getUser(ctx context.Context, db DBTX, column, value string) (models.User, error) {
	row := db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with %s %s: %w", column, value, models.ErrNotFound)
		}
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// Register creates a new user, hashing their password. The username check
// runs before the insert; the unique index catches a concurrent duplicate.
func (s *UserService) Register(ctx context.Context, username, password string, profile models.Fields) (models.User, error) {
	if err := validation.Credentials(username, password); err != nil {
		return models.User{}, err
	}

	if _, err := s.GetUserByUsername(ctx, username); err == nil {
		return models.User{}, ErrUsernameTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		return models.User{}, err
	}

	hashedPassword, err := s.hasher.Secure(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashedPassword,
		Profile:      profile,
	}
	if err := user.PrepareForDB(); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, profile_json) VALUES (?, ?, ?, ?)",
		user.ID, user.Username, user.PasswordHash, user.ProfileJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("%w: insert user: %v", models.ErrPersistence, err)
	}

	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies a user's credentials. An unknown username and a wrong
// password both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	if err := validation.Credentials(username, password); err != nil {
		return models.User{}, err
	}

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return models.User{}, ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// UpdateUser applies a partial update to the user's profile. A new username
// must be valid and unused; a new password is validated and re-hashed. Every
// other key is merged into the profile. id and _id are ignored.
func (s *UserService) UpdateUser(ctx context.Context, id string, patch models.Fields) error {
	patch = patch.Without(models.KeyID, models.KeyMongoID)
	if len(patch) == 0 {
		return ErrEmptyUpdate
	}

	var newUsername, newHash string
	if raw, ok := patch[models.KeyUsername]; ok {
		username, isString := raw.(string)
		if !isString || username == "" || validation.Username(username) != nil {
			return ErrInvalidUsername
		}
		newUsername = username
	}
	if raw, ok := patch[models.KeyPassword]; ok {
		password, isString := raw.(string)
		if !isString || validation.Password(password) != nil || validation.PasswordLength(password) != nil {
			return ErrInvalidPassword
		}
		hashed, err := s.hasher.Secure(password)
		if err != nil {
			return err
		}
		newHash = hashed
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		user, err := s.getUser(ctx, tx, "id", id)
		if err != nil {
			return err
		}

		if newUsername != "" && newUsername != user.Username {
			other, err := s.getUser(ctx, tx, "username", newUsername)
			if err == nil && other.ID != user.ID {
				return ErrUsernameTaken
			}
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return err
			}
			user.Username = newUsername
		}
		if newHash != "" {
			user.PasswordHash = newHash
		}

		user.Profile = user.Profile.Merge(patch.Without(models.KeyUsername, models.KeyPassword))
		if err := user.PrepareForDB(); err != nil {
			return fmt.Errorf("%w: %v", models.ErrValidation, err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE users SET username = ?, password_hash = ?, profile_json = ? WHERE id = ?",
			user.Username, user.PasswordHash, user.ProfileJSON, user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
}

// DeleteUser removes a user from the database. Deleting a missing user is not
// an error. League memberships keep the dangling id.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
