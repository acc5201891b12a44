package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// ScheduleEntry is one pending notification for one subscription. A
// subscription has at most one pending entry: the ID is derived from
// the endpoint, so re-scheduling replaces rather than duplicates.
type ScheduleEntry struct {
	ID        string `json:"id"`
	Endpoint  string `json:"endpoint"`
	P256dh    string `json:"p256dh"`
	Auth      string `json:"auth"`
	NotifyAt  int64  `json:"notify_at"` // unix seconds
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"` // unix seconds
}

// ScheduleID derives the stable entry ID for an endpoint: the first 16
// bytes of its SHA-256, hex encoded. Deterministic, so the same device
// always maps to the same row without a pre-insert existence check.
func ScheduleID(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:16])
}

// NotificationPayload is the JSON document encrypted into the push
// message; the service worker reads it to show the notification.
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}
