package store

import (
	"context"
	"testing"

	"github.com/daaku/ensure"

	"github.com/mal49/period-tracker/internal/models"
)

func entryFor(endpoint string, notifyAt int64) models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:        models.ScheduleID(endpoint),
		Endpoint:  endpoint,
		P256dh:    "BPubKey",
		Auth:      "authsecret",
		NotifyAt:  notifyAt,
		Title:     "Reminder",
		Body:      "cycle check-in",
		CreatedAt: 1000,
	}
}

func TestUpsertThenDue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	e := entryFor("https://push.example.net/send/a", 2000)
	ensure.Nil(t, s.Upsert(ctx, e))

	due, err := s.DueBefore(ctx, 2000)
	ensure.Nil(t, err)
	ensure.DeepEqual(t, due, []models.ScheduleEntry{e})

	due, err = s.DueBefore(ctx, 1999)
	ensure.Nil(t, err)
	ensure.DeepEqual(t, len(due), 0)
}

func TestUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const endpoint = "https://push.example.net/send/a"
	ensure.Nil(t, s.Upsert(ctx, entryFor(endpoint, 2000)))
	replaced := entryFor(endpoint, 5000)
	replaced.Title = "New title"
	ensure.Nil(t, s.Upsert(ctx, replaced))

	due, err := s.DueBefore(ctx, 10000)
	ensure.Nil(t, err)
	ensure.DeepEqual(t, due, []models.ScheduleEntry{replaced})
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const endpoint = "https://push.example.net/send/a"
	ensure.Nil(t, s.Remove(ctx, endpoint))

	ensure.Nil(t, s.Upsert(ctx, entryFor(endpoint, 2000)))
	ensure.Nil(t, s.Remove(ctx, endpoint))
	ensure.Nil(t, s.Remove(ctx, endpoint))

	_, err := s.GetByEndpoint(ctx, endpoint)
	ensure.DeepEqual(t, err, ErrNotFound)
}

func TestGetByEndpoint(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetByEndpoint(ctx, "https://push.example.net/send/a")
	ensure.DeepEqual(t, err, ErrNotFound)

	e := entryFor("https://push.example.net/send/a", 2000)
	ensure.Nil(t, s.Upsert(ctx, e))

	got, err := s.GetByEndpoint(ctx, e.Endpoint)
	ensure.Nil(t, err)
	ensure.DeepEqual(t, got, e)
}

func TestRemoveByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	e := entryFor("https://push.example.net/send/a", 2000)
	ensure.Nil(t, s.Upsert(ctx, e))
	ensure.Nil(t, s.RemoveByID(ctx, e.ID))

	due, err := s.DueBefore(ctx, 10000)
	ensure.Nil(t, err)
	ensure.DeepEqual(t, len(due), 0)
}
