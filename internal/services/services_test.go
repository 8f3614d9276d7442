package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/isdelr/private-leagues-api/internal/auth"
	"github.com/isdelr/private-leagues-api/internal/database"
	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testAppKey = "app-1"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "leagues.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newTestUserService(db *sql.DB) *UserService {
	return NewUserService(db, auth.NewHasher(bcrypt.MinCost))
}

// mustRegister creates a user and returns its id.
func mustRegister(t *testing.T, users *UserService, username string) string {
	t.Helper()
	u, err := users.Register(context.Background(), username, "secret1", nil)
	require.NoError(t, err)
	return u.ID
}

// mustCreateLeague creates a league owned by ownerID and returns its id.
func mustCreateLeague(t *testing.T, leagues *LeagueService, ownerID, name string) string {
	t.Helper()
	l, err := leagues.CreateLeague(context.Background(), testAppKey, ownerID, name, models.Fields{})
	require.NoError(t, err)
	return l.ID
}
