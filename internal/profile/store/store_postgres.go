package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eventtrail/internal/profile/models"
	"eventtrail/pkg/platform/sentinel"
)

// PostgresStore persists profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, name, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		profile.ID, profile.Name, profile.Timezone, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT id, name, timezone, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var profile models.Profile
	err := s.db.QueryRowContext(ctx, query, profileID).Scan(
		&profile.ID, &profile.Name, &profile.Timezone, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return &profile, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Profile, error) {
	query := `
		SELECT id, name, timezone, created_at, updated_at
		FROM profiles
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		var profile models.Profile
		if err := rows.Scan(
			&profile.ID, &profile.Name, &profile.Timezone, &profile.CreatedAt, &profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, &profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// ExistAll reports whether every given profile ID exists.
func (s *PostgresStore) ExistAll(ctx context.Context, profileIDs []uuid.UUID) (bool, error) {
	if len(profileIDs) == 0 {
		return true, nil
	}
	ids := make([]string, len(profileIDs))
	for i, profileID := range profileIDs {
		ids[i] = profileID.String()
	}
	var count int
	query := `SELECT COUNT(DISTINCT id) FROM profiles WHERE id = ANY($1)`
	if err := s.db.QueryRowContext(ctx, query, pq.Array(ids)).Scan(&count); err != nil {
		return false, fmt.Errorf("count profiles: %w", err)
	}
	distinct := make(map[uuid.UUID]struct{}, len(profileIDs))
	for _, profileID := range profileIDs {
		distinct[profileID] = struct{}{}
	}
	return count == len(distinct), nil
}

func (s *PostgresStore) UpdateTimezone(ctx context.Context, profileID uuid.UUID, zone string, now time.Time) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET timezone = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, name, timezone, created_at, updated_at
	`
	var profile models.Profile
	err := s.db.QueryRowContext(ctx, query, profileID, zone, now).Scan(
		&profile.ID, &profile.Name, &profile.Timezone, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("update profile timezone: %w", err)
	}
	return &profile, nil
}
