// Package dispatcher runs the periodic sweep that delivers due
// notifications. Delivery is one-shot: a row is deleted after its
// single attempt whether or not the push service accepted it.
package dispatcher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mal49/period-tracker/internal/metrics"
	"github.com/mal49/period-tracker/internal/models"
	"github.com/mal49/period-tracker/internal/store"
	"github.com/mal49/period-tracker/internal/webpush"
)

// Sender is the single-attempt delivery dependency, satisfied by
// *webpush.Sender.
type Sender interface {
	Send(ctx context.Context, sub webpush.Subscription, message []byte) (webpush.Outcome, error)
}

// Lock guards the sweep across instances. Optional.
type Lock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

type Dispatcher struct {
	Store    store.ScheduleStore
	Sender   Sender
	Lock     Lock             // optional; nil for single-instance deployments
	ClickURL string           // url field of the notification payload
	Now      func() time.Time // defaults to time.Now
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Sweep processes every schedule due at the time of the call. Rows are
// handled independently: a failure on one row is logged and never stops
// the rest. Each row is deleted after its attempt, so a crash between
// send and delete risks at worst one duplicate on the next tick.
func (d *Dispatcher) Sweep(ctx context.Context) {
	started := d.now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(started).Seconds())
	}()

	if d.Lock != nil {
		ok, err := d.Lock.TryAcquire(ctx, time.Minute)
		if err != nil {
			log.Printf("sweep: lock unavailable, proceeding without it: %v", err)
		} else if !ok {
			return
		} else {
			defer func() {
				if err := d.Lock.Release(ctx); err != nil {
					log.Printf("sweep: release lock: %v", err)
				}
			}()
		}
	}

	due, err := d.Store.DueBefore(ctx, started.Unix())
	if err != nil {
		log.Printf("sweep: query due schedules: %v", err)
		return
	}

	for _, entry := range due {
		d.process(ctx, entry)
	}
}

func (d *Dispatcher) process(ctx context.Context, entry models.ScheduleEntry) {
	payload, err := json.Marshal(models.NotificationPayload{
		Title: entry.Title,
		Body:  entry.Body,
		URL:   d.ClickURL,
	})
	if err != nil {
		log.Printf("sweep: marshal payload for %s: %v", entry.ID, err)
	} else {
		sub := webpush.Subscription{
			Endpoint: entry.Endpoint,
			Keys:     webpush.Keys{P256dh: entry.P256dh, Auth: entry.Auth},
		}
		outcome, err := d.Sender.Send(ctx, sub, payload)
		metrics.DeliveryAttempts.WithLabelValues(outcome.String()).Inc()
		if err != nil {
			log.Printf("sweep: send %s: %s: %v", entry.ID, outcome, err)
		}
	}

	// One-shot: the row goes away regardless of the outcome above.
	if err := d.Store.RemoveByID(ctx, entry.ID); err != nil {
		log.Printf("sweep: remove %s: %v", entry.ID, err)
	}
}

// Run sweeps on every tick of the interval until the context is
// cancelled. One sweep runs immediately on start so restarts don't
// delay past-due rows a full interval.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	d.Sweep(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}
