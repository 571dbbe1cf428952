package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eventtrail/internal/event/models"
	"eventtrail/pkg/platform/sentinel"
)

// PostgresStore persists events and their embedded change logs in PostgreSQL.
// The change log lives in a child table; every write that touches both runs
// in one transaction so a partially applied save is impossible.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (id, title, profile_ids, timezone, start_date_time, end_date_time, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Title, profileArray(e.Profiles), e.Timezone,
		e.StartDateTime, e.EndDateTime, e.Version, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	query := `
		SELECT id, title, profile_ids, timezone, start_date_time, end_date_time, version, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	e, err := scanEvent(s.db.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	entries, err := s.loadEntries(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.ChangeLog = models.NewChangeLog(entries)
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Event, error) {
	query := `
		SELECT id, title, profile_ids, timezone, start_date_time, end_date_time, version, created_at, updated_at
		FROM events
		ORDER BY start_date_time ASC
	`
	return s.queryEvents(ctx, query)
}

func (s *PostgresStore) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*models.Event, error) {
	query := `
		SELECT id, title, profile_ids, timezone, start_date_time, end_date_time, version, created_at, updated_at
		FROM events
		WHERE $1 = ANY(profile_ids)
		ORDER BY start_date_time ASC
	`
	return s.queryEvents(ctx, query, profileID)
}

// Save writes the mutated fields, the bumped version, and the new change
// entries atomically. The version predicate serializes concurrent saves: a
// save computed from a stale load updates zero rows and reports
// ErrVersionConflict without touching the log.
func (s *PostgresStore) Save(ctx context.Context, e *models.Event, expectedVersion int64, entries []models.ChangeEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE events
		SET title = $2, profile_ids = $3, timezone = $4,
		    start_date_time = $5, end_date_time = $6,
		    version = version + 1, updated_at = $7
		WHERE id = $1 AND version = $8
	`
	res, err := tx.ExecContext(ctx, update,
		e.ID, e.Title, profileArray(e.Profiles), e.Timezone,
		e.StartDateTime, e.EndDateTime, e.UpdatedAt, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check event existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrVersionConflict
	}

	if len(entries) > 0 {
		var lastSeq int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM event_change_logs WHERE event_id = $1`, e.ID).Scan(&lastSeq); err != nil {
			return fmt.Errorf("read change log sequence: %w", err)
		}
		insert := `
			INSERT INTO event_change_logs (id, event_id, seq, field, previous_value, new_value, occurred_at, actor)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		for i, entry := range entries {
			prevJSON, err := json.Marshal(entry.Previous)
			if err != nil {
				return fmt.Errorf("marshal previous value: %w", err)
			}
			newJSON, err := json.Marshal(entry.New)
			if err != nil {
				return fmt.Errorf("marshal new value: %w", err)
			}
			if _, err := tx.ExecContext(ctx, insert,
				uuid.New(), e.ID, lastSeq+int64(i)+1, string(entry.Field),
				prevJSON, newJSON, entry.OccurredAt, entry.Actor,
			); err != nil {
				return fmt.Errorf("insert change entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}

	e.Version = expectedVersion + 1
	e.ChangeLog.Append(entries...)
	return nil
}

// Delete removes the event; the change log goes with it via ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, eventID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	for _, e := range events {
		entries, err := s.loadEntries(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		e.ChangeLog = models.NewChangeLog(entries)
	}
	return events, nil
}

func (s *PostgresStore) loadEntries(ctx context.Context, eventID uuid.UUID) ([]models.ChangeEntry, error) {
	query := `
		SELECT field, previous_value, new_value, occurred_at, actor
		FROM event_change_logs
		WHERE event_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("query change log: %w", err)
	}
	defer rows.Close()

	var entries []models.ChangeEntry
	for rows.Next() {
		var (
			field      string
			prevJSON   []byte
			newJSON    []byte
			occurredAt time.Time
			actor      string
		)
		if err := rows.Scan(&field, &prevJSON, &newJSON, &occurredAt, &actor); err != nil {
			return nil, fmt.Errorf("scan change entry: %w", err)
		}
		var prev, next any
		if err := json.Unmarshal(prevJSON, &prev); err != nil {
			return nil, fmt.Errorf("unmarshal previous value: %w", err)
		}
		if err := json.Unmarshal(newJSON, &next); err != nil {
			return nil, fmt.Errorf("unmarshal new value: %w", err)
		}
		entries = append(entries, models.ChangeEntry{
			Field:      models.Field(field),
			Previous:   prev,
			New:        next,
			OccurredAt: occurredAt,
			Actor:      actor,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change log: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e        models.Event
		profiles []string
	)
	if err := row.Scan(
		&e.ID, &e.Title, pq.Array(&profiles), &e.Timezone,
		&e.StartDateTime, &e.EndDateTime, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Profiles = make([]uuid.UUID, 0, len(profiles))
	for _, raw := range profiles {
		profileID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse profile id %q: %w", raw, err)
		}
		e.Profiles = append(e.Profiles, profileID)
	}
	e.StartDateTime = e.StartDateTime.UTC()
	e.EndDateTime = e.EndDateTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func profileArray(profiles []uuid.UUID) any {
	out := make([]string, len(profiles))
	for i, profileID := range profiles {
		out[i] = profileID.String()
	}
	return pq.Array(out)
}
