package webpush

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Outcome classifies one delivery attempt.
type Outcome int

const (
	// OutcomeDelivered means the push service accepted the message (2xx).
	OutcomeDelivered Outcome = iota
	// OutcomeRejected means the push service refused it, commonly a
	// 404/410 for an expired subscription.
	OutcomeRejected
	// OutcomeUnreachable means the POST never completed.
	OutcomeUnreachable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnreachable:
		return "unreachable"
	}
	return "unknown"
}

// Sender performs single delivery attempts. Retry policy, if any,
// belongs to the caller.
type Sender struct {
	Client     *http.Client // required; must carry a bounded timeout
	Keys       *VAPIDKeys   // required
	Subscriber string       // mailto: or https: contact for the push service
	TTL        time.Duration
	Urgency    string
}

// Send encrypts message for the subscription and POSTs it to the push
// endpoint. The error is non-nil for rejected and unreachable outcomes
// and describes the failure; it is nil when delivered.
func (s *Sender) Send(ctx context.Context, sub Subscription, message []byte) (Outcome, error) {
	if sub.Endpoint == "" || sub.Keys.Auth == "" || sub.Keys.P256dh == "" {
		return OutcomeRejected, fmt.Errorf("webpush: invalid subscription, missing endpoint or keys")
	}

	body, err := Encrypt(sub.Keys, message)
	if err != nil {
		return OutcomeRejected, err
	}

	authorization, cryptoKey, err := s.Keys.AuthHeaders(sub.Endpoint, s.Subscriber, time.Now())
	if err != nil {
		return OutcomeRejected, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return OutcomeRejected, err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Crypto-Key", cryptoKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", strconv.Itoa(int(s.TTL.Seconds())))
	if s.Urgency != "" {
		req.Header.Set("Urgency", s.Urgency)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return OutcomeUnreachable, fmt.Errorf("webpush: post to push service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return OutcomeRejected, fmt.Errorf("webpush: push service returned %d", resp.StatusCode)
	}
	return OutcomeDelivered, nil
}
