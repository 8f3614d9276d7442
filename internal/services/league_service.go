package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/isdelr/private-leagues-api/internal/validation"
)

// LeagueServiceProvider defines the interface for league services. Every
// operation is confined to the given Scope; operations that change a league
// or its membership additionally require the caller to be an admin.
type LeagueServiceProvider interface {
	ListLeagues(ctx context.Context, scope Scope) ([]models.League, error)
	CreateLeague(ctx context.Context, appKey, ownerID, name string, fields models.Fields) (models.League, error)
	GetLeague(ctx context.Context, scope Scope) (models.League, error)
	UpdateLeague(ctx context.Context, scope Scope, name *string, fields models.Fields) error
	DeleteLeague(ctx context.Context, scope Scope) error
	AddMember(ctx context.Context, scope Scope, role models.Role, userID string) error
	RemoveMember(ctx context.Context, scope Scope, role models.Role, userID string) error
}

// LeagueService provides business logic for league management.
type LeagueService struct {
	db  *sql.DB
	now func() time.Time
}

// NewLeagueService creates a new LeagueService.
func NewLeagueService(db *sql.DB) *LeagueService {
	return &LeagueService{db: db, now: time.Now}
}

const leagueColumns = "leagues.id, leagues.app_key, leagues.name, leagues.fields_json, leagues.created_at_ts, leagues.updated_at_ts"

// ListLeagues returns every league of the scope's app in which the user is an
// admin or a member, without events.
func (s *LeagueService) ListLeagues(ctx context.Context, scope Scope) ([]models.League, error) {
	leagues, err := s.queryLeagues(ctx, s.db, scope)
	if err != nil {
		return nil, err
	}
	for i := range leagues {
		leagues[i] = leagues[i].Summary()
	}
	return leagues, nil
}

// GetLeague returns the single league named by scope, including its events.
func (s *LeagueService) GetLeague(ctx context.Context, scope Scope) (models.League, error) {
	leagues, err := s.queryLeagues(ctx, s.db, scope)
	if err != nil {
		return models.League{}, err
	}
	if len(leagues) == 0 {
		return models.League{}, fmt.Errorf("league %s: %w", scope.LeagueID, models.ErrNotFound)
	}

	league := leagues[0]
	events, err := listEvents(ctx, s.db, league.ID)
	if err != nil {
		return models.League{}, err
	}
	league.Events = events
	return league, nil
}

// CreateLeague inserts a league owned by ownerID, who becomes its only admin.
func (s *LeagueService) CreateLeague(ctx context.Context, appKey, ownerID, name string, fields models.Fields) (models.League, error) {
	if err := validation.Name(name); err != nil {
		return models.League{}, ErrInvalidName
	}

	ts := s.now().Unix()
	league := models.League{
		ID:                 uuid.New().String(),
		AppKey:             appKey,
		Name:               name,
		Admins:             []string{ownerID},
		Users:              []string{},
		Events:             []models.Event{},
		CreatedAtTimestamp: ts,
		UpdatedAtTimestamp: ts,
		Fields:             fields.Without(models.LeagueReservedKeys...),
	}
	if err := league.PrepareForDB(); err != nil {
		return models.League{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO leagues (id, app_key, name, fields_json, created_at_ts, updated_at_ts) VALUES (?, ?, ?, ?, ?, ?)",
			league.ID, league.AppKey, league.Name, league.FieldsJSON, league.CreatedAtTimestamp, league.UpdatedAtTimestamp)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO league_members (league_id, user_id, role) VALUES (?, ?, ?)",
			league.ID, ownerID, string(models.RoleAdmin))
		return err
	})
	if err != nil {
		return models.League{}, fmt.Errorf("%w: create league: %v", models.ErrPersistence, err)
	}
	return league, nil
}

// UpdateLeague renames the league when name is non-nil and merges fields into
// its extra attributes. Reserved keys in fields are ignored.
func (s *LeagueService) UpdateLeague(ctx context.Context, scope Scope, name *string, fields models.Fields) error {
	if name != nil {
		if err := validation.Name(*name); err != nil {
			return ErrInvalidName
		}
	}
	scope = scope.AdminOnly()

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		leagues, err := s.queryLeagues(ctx, tx, scope)
		if err != nil {
			return err
		}
		if len(leagues) == 0 {
			return fmt.Errorf("league %s: %w", scope.LeagueID, models.ErrNotFound)
		}

		league := leagues[0]
		if name != nil {
			league.Name = *name
		}
		league.Fields = league.Fields.Merge(fields.Without(models.LeagueReservedKeys...))
		if err := league.PrepareForDB(); err != nil {
			return fmt.Errorf("%w: %v", models.ErrValidation, err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE leagues SET name = ?, fields_json = ?, updated_at_ts = ? WHERE id = ?",
			league.Name, league.FieldsJSON, s.now().Unix(), league.ID)
		if err != nil {
			return fmt.Errorf("failed to update league: %w", err)
		}
		return nil
	})
}

// DeleteLeague removes the league with its memberships and events.
func (s *LeagueService) DeleteLeague(ctx context.Context, scope Scope) error {
	where, args := scope.AdminOnly().predicate("leagues")
	res, err := s.db.ExecContext(ctx, "DELETE FROM leagues WHERE "+where, args...)
	if err != nil {
		return fmt.Errorf("failed to delete league: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete league: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("league %s: %w", scope.LeagueID, models.ErrNotFound)
	}
	return nil
}

// AddMember grants userID the role in the league. The user must exist.
// Granting a role the user already holds succeeds without change.
func (s *LeagueService) AddMember(ctx context.Context, scope Scope, role models.Role, userID string) error {
	scope = scope.AdminOnly()

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", userID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownUser
		}
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}

		if err := requireLeague(ctx, tx, scope); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO league_members (league_id, user_id, role) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
			scope.LeagueID, userID, string(role))
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", role, err)
		}
		return nil
	})
}

// RemoveMember revokes the role from userID. Revoking a role the user does not
// hold succeeds without change.
func (s *LeagueService) RemoveMember(ctx context.Context, scope Scope, role models.Role, userID string) error {
	scope = scope.AdminOnly()

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := requireLeague(ctx, tx, scope); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			"DELETE FROM league_members WHERE league_id = ? AND user_id = ? AND role = ?",
			scope.LeagueID, userID, string(role))
		if err != nil {
			return fmt.Errorf("failed to remove %s: %w", role, err)
		}
		return nil
	})
}

// requireLeague fails with ErrNotFound unless the scope matches a league.
func requireLeague(ctx context.Context, db DBTX, scope Scope) error {
	where, args := scope.predicate("leagues")
	var exists int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM leagues WHERE "+where, args...).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("league %s: %w", scope.LeagueID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up league: %w", err)
	}
	return nil
}

// queryLeagues loads the leagues matched by scope with their admins and users.
func (s *LeagueService) queryLeagues(ctx context.Context, db DBTX, scope Scope) ([]models.League, error) {
	where, args := scope.predicate("leagues")

	rows, err := db.QueryContext(ctx,
		"SELECT "+leagueColumns+" FROM leagues WHERE "+where+" ORDER BY leagues.created_at_ts, leagues.rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leagues: %w", err)
	}
	defer rows.Close()

	leagues := []models.League{}
	index := map[string]int{}
	for rows.Next() {
		var l models.League
		if err := rows.Scan(&l.ID, &l.AppKey, &l.Name, &l.FieldsJSON, &l.CreatedAtTimestamp, &l.UpdatedAtTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan league: %w", err)
		}
		if err := l.PrepareForAPI(); err != nil {
			return nil, err
		}
		l.Admins = []string{}
		l.Users = []string{}
		index[l.ID] = len(leagues)
		leagues = append(leagues, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leagues: %w", err)
	}
	rows.Close()

	if len(leagues) == 0 {
		return leagues, nil
	}

	memberRows, err := db.QueryContext(ctx,
		"SELECT league_id, user_id, role FROM league_members WHERE league_id IN (SELECT leagues.id FROM leagues WHERE "+where+") ORDER BY rowid",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query league members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var leagueID, userID, role string
		if err := memberRows.Scan(&leagueID, &userID, &role); err != nil {
			return nil, fmt.Errorf("failed to scan league member: %w", err)
		}
		i, ok := index[leagueID]
		if !ok {
			continue
		}
		switch models.Role(role) {
		case models.RoleAdmin:
			leagues[i].Admins = append(leagues[i].Admins, userID)
		case models.RoleUser:
			leagues[i].Users = append(leagues[i].Users, userID)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read league members: %w", err)
	}
	return leagues, nil
}
