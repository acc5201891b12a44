package webpush

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VAPIDKeys is the application server's long-lived identification key
// pair in the raw base64url form mandated by the Web Push ecosystem:
// a 32-byte big-endian scalar and a 65-byte uncompressed P-256 point.
type VAPIDKeys struct {
	privateKey *ecdsa.PrivateKey
	publicKey  string // base64url uncompressed point
}

// PublicKey returns the base64url-encoded uncompressed public point,
// the value served to clients for PushManager.subscribe.
func (k *VAPIDKeys) PublicKey() string {
	return k.publicKey
}

// GenerateVAPIDKeys creates a fresh key pair encoded the way
// subscriptions expect: raw scalar and raw uncompressed point, both
// base64url without padding.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	curve := elliptic.P256()
	private, x, y, err := elliptic.GenerateKey(curve, rand.Reader)
	if err != nil {
		return "", "", err
	}
	public := elliptic.Marshal(curve, x, y)
	return base64.RawURLEncoding.EncodeToString(private),
		base64.RawURLEncoding.EncodeToString(public), nil
}

// ParseVAPIDKeys reconstructs an ECDSA signing key from the raw
// base64url scalar. The public point is recomputed from the scalar, so
// a mismatched configured public key cannot produce JWTs that fail
// verification at the push service.
func ParseVAPIDKeys(privateKey string) (*VAPIDKeys, error) {
	raw, err := b64Decode(privateKey)
	if err != nil {
		return nil, fmt.Errorf("webpush: invalid vapid private key encoding: %w", err)
	}
	curve := elliptic.P256()
	if len(raw) != 32 {
		return nil, fmt.Errorf("webpush: vapid private key must be 32 bytes, got %d", len(raw))
	}
	d := new(big.Int).SetBytes(raw)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("webpush: vapid private key scalar out of range")
	}

	x, y := curve.ScalarBaseMult(raw)
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}
	public := elliptic.Marshal(curve, x, y)
	return &VAPIDKeys{
		privateKey: key,
		publicKey:  base64.RawURLEncoding.EncodeToString(public),
	}, nil
}

const vapidExpiry = 12 * time.Hour

// AuthHeaders produces the Authorization and Crypto-Key header values
// for one request to the push service hosting endpoint. The JWT is
// scoped to the endpoint's origin and expires 12 hours from now. Pure
// computation; safe to call per send.
func (k *VAPIDKeys) AuthHeaders(endpoint, subscriber string, now time.Time) (authorization, cryptoKey string, err error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("webpush: invalid endpoint: %q", endpoint)
	}

	// Google and Firefox tolerate an empty sub claim, Apple does not.
	if !strings.HasPrefix(subscriber, "https:") && !strings.HasPrefix(subscriber, "mailto:") {
		return "", "", fmt.Errorf("webpush: invalid subscriber: %q", subscriber)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"aud": u.Scheme + "://" + u.Host,
		"exp": now.Add(vapidExpiry).Unix(),
		"sub": subscriber,
	})

	// SigningMethodES256 emits the raw r||s JWS form, not DER, so no
	// signature conversion is needed here.
	jwtString, err := token.SignedString(k.privateKey)
	if err != nil {
		return "", "", err
	}

	return "vapid t=" + jwtString + ", k=" + k.publicKey,
		"p256ecdsa=" + k.publicKey, nil
}
