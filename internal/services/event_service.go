package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/private-leagues-api/internal/models"
)

// EventServiceProvider defines the interface for league event services. Any
// member of the league, admin or user, may manage its events.
type EventServiceProvider interface {
	ListEvents(ctx context.Context, scope Scope) ([]models.Event, error)
	CreateEvent(ctx context.Context, scope Scope, fields models.Fields) (models.Event, error)
	GetEvent(ctx context.Context, scope Scope, eventID string) (models.Event, error)
	UpdateEvent(ctx context.Context, scope Scope, eventID string, fields models.Fields) error
	DeleteEvent(ctx context.Context, scope Scope, eventID string) error
}

// EventService handles the events stored inside leagues.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// ListEvents returns the league's events in insertion order.
func (s *EventService) ListEvents(ctx context.Context, scope Scope) ([]models.Event, error) {
	if err := requireLeague(ctx, s.db, scope); err != nil {
		return nil, err
	}
	return listEvents(ctx, s.db, scope.LeagueID)
}

// CreateEvent appends a new event to the league. The id is always generated
// here; id and _id keys in fields are dropped.
func (s *EventService) CreateEvent(ctx context.Context, scope Scope, fields models.Fields) (models.Event, error) {
	fields = fields.Without(models.KeyID, models.KeyMongoID)
	if len(fields) == 0 {
		return models.Event{}, ErrEmptyEvent
	}

	event := models.Event{ID: uuid.New().String(), Fields: fields}
	if err := event.PrepareForDB(); err != nil {
		return models.Event{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := requireLeague(ctx, tx, scope); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO league_events (id, league_id, position, fields_json)
			 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM league_events WHERE league_id = ?), ?)`,
			event.ID, scope.LeagueID, scope.LeagueID, event.FieldsJSON)
		if err != nil {
			return fmt.Errorf("%w: insert event: %v", models.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}
	return event, nil
}

// GetEvent returns a single event of the league.
func (s *EventService) GetEvent(ctx context.Context, scope Scope, eventID string) (models.Event, error) {
	if err := requireLeague(ctx, s.db, scope); err != nil {
		return models.Event{}, err
	}
	return getEvent(ctx, s.db, scope.LeagueID, eventID)
}

// UpdateEvent sets every key of fields on the event, keeping the others. An
// update that leaves the event unchanged fails with models.ErrNotModified.
func (s *EventService) UpdateEvent(ctx context.Context, scope Scope, eventID string, fields models.Fields) error {
	fields = fields.Without(models.KeyID, models.KeyMongoID)
	if len(fields) == 0 {
		return ErrEmptyEvent
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := requireLeague(ctx, tx, scope); err != nil {
			return err
		}
		event, err := getEvent(ctx, tx, scope.LeagueID, eventID)
		if err != nil {
			return err
		}

		before := event.FieldsJSON
		event.Fields = event.Fields.Merge(fields)
		if err := event.PrepareForDB(); err != nil {
			return fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		if event.FieldsJSON == before {
			return fmt.Errorf("event %s: %w", eventID, models.ErrNotModified)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE league_events SET fields_json = ? WHERE id = ? AND league_id = ?",
			event.FieldsJSON, event.ID, scope.LeagueID)
		if err != nil {
			return fmt.Errorf("failed to update event: %w", err)
		}
		return nil
	})
}

// DeleteEvent removes the event from the league. Removing an event the league
// does not hold is not an error.
func (s *EventService) DeleteEvent(ctx context.Context, scope Scope, eventID string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := requireLeague(ctx, tx, scope); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM league_events WHERE id = ? AND league_id = ?", eventID, scope.LeagueID)
		if err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	})
}

func getEvent(ctx context.Context, db DBTX, leagueID, eventID string) (models.Event, error) {
	var event models.Event
	err := db.QueryRowContext(ctx,
		"SELECT id, fields_json FROM league_events WHERE id = ? AND league_id = ?", eventID, leagueID).
		Scan(&event.ID, &event.FieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, fmt.Errorf("event %s: %w", eventID, models.ErrNotFound)
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to load event: %w", err)
	}
	if err := event.PrepareForAPI(); err != nil {
		return models.Event{}, err
	}
	return event, nil
}

func listEvents(ctx context.Context, db DBTX, leagueID string) ([]models.Event, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, fields_json FROM league_events WHERE league_id = ? ORDER BY position", leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.FieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := event.PrepareForAPI(); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}
