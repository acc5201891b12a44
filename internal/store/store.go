package store

import (
	"context"
	"errors"

	"github.com/mal49/period-tracker/internal/models"
)

// ErrNotFound is returned by lookups for endpoints with no pending
// schedule.
var ErrNotFound = errors.New("schedule not found")

// ScheduleStore is the durable table of pending notifications, keyed by
// the ID derived from the subscription endpoint.
type ScheduleStore interface {
	// Upsert inserts the entry or fully replaces the existing row with
	// the same ID.
	Upsert(ctx context.Context, entry models.ScheduleEntry) error

	// Remove deletes the entry for an endpoint. Deleting a missing
	// endpoint is a no-op.
	Remove(ctx context.Context, endpoint string) error

	// RemoveByID deletes one row after a delivery attempt.
	RemoveByID(ctx context.Context, id string) error

	// DueBefore returns all entries with notify_at <= ts.
	DueBefore(ctx context.Context, ts int64) ([]models.ScheduleEntry, error)

	// GetByEndpoint returns the pending entry for an endpoint, or
	// ErrNotFound.
	GetByEndpoint(ctx context.Context, endpoint string) (models.ScheduleEntry, error)
}
