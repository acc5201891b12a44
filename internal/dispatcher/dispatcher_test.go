package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/daaku/ensure"

	"github.com/mal49/period-tracker/internal/models"
	"github.com/mal49/period-tracker/internal/store"
	"github.com/mal49/period-tracker/internal/webpush"
)

type sentMessage struct {
	sub     webpush.Subscription
	payload models.NotificationPayload
}

type fakeSender struct {
	mu      sync.Mutex
	outcome webpush.Outcome
	err     error
	sent    []sentMessage
}

func (f *fakeSender) Send(ctx context.Context, sub webpush.Subscription, message []byte) (webpush.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var payload models.NotificationPayload
	if err := json.Unmarshal(message, &payload); err != nil {
		return webpush.OutcomeRejected, err
	}
	f.sent = append(f.sent, sentMessage{sub: sub, payload: payload})
	return f.outcome, f.err
}

type fakeLock struct {
	available bool
	released  bool
}

func (l *fakeLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.available, nil
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.released = true
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func scheduleAt(endpoint string, notifyAt time.Time) models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:       models.ScheduleID(endpoint),
		Endpoint: endpoint,
		P256dh:   "BPubKey",
		Auth:     "authsecret",
		NotifyAt: notifyAt.Unix(),
		Title:    "Reminder",
		Body:     "cycle check-in",
	}
}

func TestSweepSkipsFutureRows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore()
	sender := &fakeSender{outcome: webpush.OutcomeDelivered}

	entry := scheduleAt("https://push.example.net/send/a", now.Add(time.Hour))
	ensure.Nil(t, s.Upsert(ctx, entry))

	d := &Dispatcher{Store: s, Sender: sender, ClickURL: "/", Now: fixedClock(now)}
	d.Sweep(ctx)

	ensure.DeepEqual(t, len(sender.sent), 0)
	got, err := s.GetByEndpoint(ctx, entry.Endpoint)
	ensure.Nil(t, err)
	ensure.DeepEqual(t, got, entry)
}

func TestSweepSendsDueRowOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore()
	sender := &fakeSender{outcome: webpush.OutcomeDelivered}

	entry := scheduleAt("https://push.example.net/send/a", now.Add(time.Hour))
	ensure.Nil(t, s.Upsert(ctx, entry))

	later := fixedClock(now.Add(2 * time.Hour))
	d := &Dispatcher{Store: s, Sender: sender, ClickURL: "/calendar", Now: later}
	d.Sweep(ctx)

	ensure.DeepEqual(t, len(sender.sent), 1)
	ensure.DeepEqual(t, sender.sent[0].sub.Endpoint, entry.Endpoint)
	ensure.DeepEqual(t, sender.sent[0].payload, models.NotificationPayload{
		Title: "Reminder",
		Body:  "cycle check-in",
		URL:   "/calendar",
	})

	// One-shot: the row is gone, a second sweep sends nothing.
	_, err := s.GetByEndpoint(ctx, entry.Endpoint)
	ensure.DeepEqual(t, err, store.ErrNotFound)
	d.Sweep(ctx)
	ensure.DeepEqual(t, len(sender.sent), 1)
}

func TestSweepRemovesRowOnFailedDelivery(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore()
	sender := &fakeSender{
		outcome: webpush.OutcomeRejected,
		err:     errors.New("push service returned 410"),
	}

	entry := scheduleAt("https://push.example.net/send/gone", now.Add(-time.Minute))
	ensure.Nil(t, s.Upsert(ctx, entry))

	d := &Dispatcher{Store: s, Sender: sender, ClickURL: "/", Now: fixedClock(now)}
	d.Sweep(ctx)

	ensure.DeepEqual(t, len(sender.sent), 1)
	_, err := s.GetByEndpoint(ctx, entry.Endpoint)
	ensure.DeepEqual(t, err, store.ErrNotFound)
}

func TestSweepProcessesRowsIndependently(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore()
	sender := &fakeSender{
		outcome: webpush.OutcomeUnreachable,
		err:     errors.New("connection refused"),
	}

	for _, endpoint := range []string{
		"https://push.example.net/send/a",
		"https://push.example.net/send/b",
		"https://push.example.net/send/c",
	} {
		ensure.Nil(t, s.Upsert(ctx, scheduleAt(endpoint, now.Add(-time.Minute))))
	}

	d := &Dispatcher{Store: s, Sender: sender, ClickURL: "/", Now: fixedClock(now)}
	d.Sweep(ctx)

	// Every row got its attempt and was removed despite the failures.
	ensure.DeepEqual(t, len(sender.sent), 3)
	due, err := s.DueBefore(ctx, now.Unix())
	ensure.Nil(t, err)
	ensure.DeepEqual(t, len(due), 0)
}

func TestSweepHonorsLock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore()
	sender := &fakeSender{outcome: webpush.OutcomeDelivered}

	entry := scheduleAt("https://push.example.net/send/a", now.Add(-time.Minute))
	ensure.Nil(t, s.Upsert(ctx, entry))

	lock := &fakeLock{available: false}
	d := &Dispatcher{Store: s, Sender: sender, Lock: lock, ClickURL: "/", Now: fixedClock(now)}
	d.Sweep(ctx)
	ensure.DeepEqual(t, len(sender.sent), 0)

	lock.available = true
	d.Sweep(ctx)
	ensure.DeepEqual(t, len(sender.sent), 1)
	ensure.True(t, lock.released)
}
