// Package webpush implements the Web Push protocol from cryptographic
// primitives: VAPID server identification (RFC 8292) and aes128gcm
// message encryption (RFC 8291 / RFC 8188).
package webpush

import "encoding/base64"

const (
	// Push services are not required to accept more than a single
	// 4096-byte record, so that is the fixed record size.
	recordSize = 4096

	// salt(16) + recordSize(4) + keyIDLen(1) + uncompressed point(65)
	headerLen = 86

	// header + minimum padding delimiter (1) + AES-GCM tag (16)
	minOverhead = headerLen + 1 + 16
)

// Keys are the base64url-encoded values handed out by the browser's
// PushManager: the user agent's P-256 public key and the 16-byte auth
// secret.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a PushSubscription as serialized by the browser.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

func b64Encoding(s string) *base64.Encoding {
	hasPadding := len(s) > 0 && s[len(s)-1] == '='
	isURL := false

outer:
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '-', '_':
			isURL = true
			break outer
		case '+', '/':
			break outer
		}
	}

	switch {
	case isURL && hasPadding:
		return base64.URLEncoding
	case isURL && !hasPadding:
		return base64.RawURLEncoding
	case !isURL && hasPadding:
		return base64.StdEncoding
	}
	return base64.RawStdEncoding
}

// b64Decode is permissive about which of the four base64 variants the
// client used; subscriptions in the wild carry all of them.
func b64Decode(s string) ([]byte, error) {
	return b64Encoding(s).DecodeString(s)
}
