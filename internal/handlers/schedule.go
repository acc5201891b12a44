package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/mal49/period-tracker/internal/metrics"
	"github.com/mal49/period-tracker/internal/models"
	"github.com/mal49/period-tracker/internal/store"
	"github.com/mal49/period-tracker/internal/webpush"
)

type scheduleRequest struct {
	Subscription webpush.Subscription `json:"subscription"`
	NotifyAt     string               `json:"notifyAt"`
	Title        string               `json:"title"`
	Body         string               `json:"body"`
}

func validateSubscription(sub webpush.Subscription) string {
	if sub.Endpoint == "" {
		return "subscription endpoint is required"
	}
	if u, err := url.Parse(sub.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return "subscription endpoint must be an absolute URL"
	}
	p256dh, err := base64.RawURLEncoding.DecodeString(sub.Keys.P256dh)
	if err != nil || len(p256dh) != 65 || p256dh[0] != 0x04 {
		return "p256dh must be a base64url 65-byte uncompressed P-256 point"
	}
	auth, err := base64.RawURLEncoding.DecodeString(sub.Keys.Auth)
	if err != nil || len(auth) != 16 {
		return "auth must be a base64url 16-byte secret"
	}
	return ""
}

// ScheduleHandler creates or replaces the pending notification for a
// subscription. The entry ID is derived from the endpoint, so repeated
// calls from the same device upsert a single row.
func (h *Handler) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if msg := validateSubscription(req.Subscription); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	notifyAt, err := time.Parse(time.RFC3339, req.NotifyAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "notifyAt must be an RFC 3339 timestamp")
		return
	}
	now := h.now()
	if !notifyAt.After(now) {
		writeError(w, http.StatusBadRequest, "notifyAt must be in the future")
		return
	}

	entry := models.ScheduleEntry{
		ID:        models.ScheduleID(req.Subscription.Endpoint),
		Endpoint:  req.Subscription.Endpoint,
		P256dh:    req.Subscription.Keys.P256dh,
		Auth:      req.Subscription.Keys.Auth,
		NotifyAt:  notifyAt.Unix(),
		Title:     req.Title,
		Body:      req.Body,
		CreatedAt: now.Unix(),
	}
	if err := h.Store.Upsert(r.Context(), entry); err != nil {
		log.Printf("Failed to save schedule: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	metrics.SchedulesCreated.Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"notifyAt": notifyAt.UTC().Format(time.RFC3339),
	})
}

// UnscheduleHandler removes the pending notification for an endpoint.
// Removing an endpoint with no pending row still succeeds.
func (h *Handler) UnscheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	if err := h.Store.Remove(r.Context(), req.Endpoint); err != nil {
		log.Printf("Failed to remove schedule: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to remove schedule")
		return
	}

	metrics.SchedulesRemoved.Inc()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ScheduleStatusHandler reports whether an endpoint still has a pending
// notification. A missing row means the notification was either never
// scheduled or already attempted.
func (h *Handler) ScheduleStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	entry, err := h.Store.GetByEndpoint(r.Context(), req.Endpoint)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"scheduled": false})
		return
	}
	if err != nil {
		log.Printf("Failed to look up schedule: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to look up schedule")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scheduled": true,
		"notifyAt":  time.Unix(entry.NotifyAt, 0).UTC().Format(time.RFC3339),
		"title":     entry.Title,
		"body":      entry.Body,
	})
}
