package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mal49/period-tracker/internal/store"
	"github.com/mal49/period-tracker/internal/webpush"
)

type Handler struct {
	Store store.ScheduleStore
	Keys  *webpush.VAPIDKeys
	Now   func() time.Time // defaults to time.Now
}

func NewHandler(s store.ScheduleStore, keys *webpush.VAPIDKeys) *Handler {
	return &Handler{Store: s, Keys: keys}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HealthHandler reports liveness and the server clock, which the client
// compares against its own when scheduling.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": h.now().UTC().Format(time.RFC3339),
	})
}

// GetVAPIDKeyHandler returns the public VAPID key the client passes to
// PushManager.subscribe as applicationServerKey.
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"publicKey": h.Keys.PublicKey(),
	})
}
