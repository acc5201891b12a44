package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/mal49/period-tracker/internal/models"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RunMigrations creates the schedule table and index if they don't exist.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, entry models.ScheduleEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_schedules (id, endpoint, p256dh, auth, notify_at, title, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   endpoint = EXCLUDED.endpoint,
		   p256dh = EXCLUDED.p256dh,
		   auth = EXCLUDED.auth,
		   notify_at = EXCLUDED.notify_at,
		   title = EXCLUDED.title,
		   body = EXCLUDED.body,
		   created_at = EXCLUDED.created_at`,
		entry.ID, entry.Endpoint, entry.P256dh, entry.Auth,
		entry.NotifyAt, entry.Title, entry.Body, entry.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Remove(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM push_schedules WHERE id = $1`, models.ScheduleID(endpoint))
	return err
}

func (s *PostgresStore) RemoveByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_schedules WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) DueBefore(ctx context.Context, ts int64) ([]models.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, endpoint, p256dh, auth, notify_at, title, body, created_at
		 FROM push_schedules WHERE notify_at <= $1 ORDER BY notify_at ASC`,
		ts,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ScheduleEntry
	for rows.Next() {
		var e models.ScheduleEntry
		if err := rows.Scan(&e.ID, &e.Endpoint, &e.P256dh, &e.Auth,
			&e.NotifyAt, &e.Title, &e.Body, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) GetByEndpoint(ctx context.Context, endpoint string) (models.ScheduleEntry, error) {
	var e models.ScheduleEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, endpoint, p256dh, auth, notify_at, title, body, created_at
		 FROM push_schedules WHERE id = $1`,
		models.ScheduleID(endpoint),
	).Scan(&e.ID, &e.Endpoint, &e.P256dh, &e.Auth,
		&e.NotifyAt, &e.Title, &e.Body, &e.CreatedAt)

	if err == sql.ErrNoRows {
		return models.ScheduleEntry{}, ErrNotFound
	}
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	return e, nil
}
