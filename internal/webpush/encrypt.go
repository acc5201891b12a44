package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	webPushInfo              = []byte("WebPush: info\x00")
	contentEncryptionKeyInfo = []byte("Content-Encoding: aes128gcm\x00")
	nonceInfo                = []byte("Content-Encoding: nonce\x00")
)

func hkdfExpand(length int, secret, salt, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	_, err := io.ReadFull(r, key)
	return key, err
}

// Encrypt implements RFC 8291 message encryption with the aes128gcm
// content encoding of RFC 8188, producing the complete POST body for
// one push message as a single record.
//
// Every call draws a fresh ephemeral P-256 key pair and a fresh 16-byte
// salt, so the same plaintext never encrypts to the same bytes twice.
func Encrypt(keys Keys, plaintext []byte) ([]byte, error) {
	if len(plaintext) > recordSize-minOverhead {
		return nil, fmt.Errorf(
			"webpush: message length %d too long for record size %d",
			len(plaintext), recordSize)
	}

	authSecret, err := b64Decode(keys.Auth)
	if err != nil {
		return nil, fmt.Errorf("webpush: invalid auth secret: %w", err)
	}

	userAgentPublicKeyBytes, err := b64Decode(keys.P256dh)
	if err != nil {
		return nil, fmt.Errorf("webpush: invalid p256dh key: %w", err)
	}
	userAgentPublicKey, err := ecdh.P256().NewPublicKey(userAgentPublicKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("webpush: invalid p256dh key: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	// One ephemeral key per message.
	appServerPrivateKey, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	appServerPublicKeyBytes := appServerPrivateKey.PublicKey().Bytes()

	sharedSecret, err := appServerPrivateKey.ECDH(userAgentPublicKey)
	if err != nil {
		return nil, err
	}

	keyInfo := make([]byte, 0, len(webPushInfo)+len(userAgentPublicKeyBytes)+len(appServerPublicKeyBytes))
	keyInfo = append(keyInfo, webPushInfo...)
	keyInfo = append(keyInfo, userAgentPublicKeyBytes...)
	keyInfo = append(keyInfo, appServerPublicKeyBytes...)
	ikm, err := hkdfExpand(32, sharedSecret, authSecret, keyInfo)
	if err != nil {
		return nil, err
	}

	contentEncryptionKey, err := hkdfExpand(16, ikm, salt, contentEncryptionKeyInfo)
	if err != nil {
		return nil, err
	}

	nonce, err := hkdfExpand(12, ikm, salt, nonceInfo)
	if err != nil {
		return nil, err
	}

	aesCipher, err := aes.NewCipher(contentEncryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(aesCipher)
	if err != nil {
		return nil, err
	}

	// Header, plaintext and padding delimiter share one allocation; the
	// plaintext is then sealed in place.
	record := make([]byte, 0, minOverhead+len(plaintext))
	record = append(record, salt...)
	record = binary.BigEndian.AppendUint32(record, uint32(recordSize))
	record = append(record, byte(len(appServerPublicKeyBytes)))
	record = append(record, appServerPublicKeyBytes...)
	record = append(record, plaintext...)
	record = append(record, '\x02')
	gcm.Seal(
		record[headerLen:headerLen],
		nonce,
		record[headerLen:cap(record)-gcm.Overhead()],
		nil)
	return record[0:cap(record)], nil
}
