package license

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/praxemr/licensing/internal/model"
)

const (
	// NonceSize is the AES-GCM nonce length (96 bits).
	NonceSize = 12
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

var (
	// ErrCorruptBlob indicates the blob is truncated, not base64, or failed
	// its authentication check.
	ErrCorruptBlob = errors.New("entitlement blob is corrupt or tampered")
	// ErrMalformedRecord indicates decryption succeeded but the payload does
	// not parse as an entitlement record.
	ErrMalformedRecord = errors.New("entitlement payload is malformed")
)

// Codec performs authenticated encryption of the cached entitlement under a
// key bound to this device's identity. Blob layout is
// base64(nonce || tag || ciphertext).
type Codec struct {
	appSecret string
	identity  DeviceIdentityProvider
}

// NewCodec constructs a Codec for the given application secret and identity
// provider.
func NewCodec(appSecret string, identity DeviceIdentityProvider) *Codec {
	return &Codec{appSecret: appSecret, identity: identity}
}

func (c *Codec) aead() (cipher.AEAD, error) {
	deviceID, err := c.identity.DeviceID()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(DeriveKey(c.appSecret, deviceID))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encode serializes and encrypts a record with a fresh random nonce.
func (c *Codec) Encode(rec model.CachedEntitlement) ([]byte, error) {
	gcm, err := c.aead()
	if err != nil {
		return nil, err
	}
	plain, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	// Seal yields ciphertext||tag; the persisted layout is nonce||tag||ciphertext.
	sealed := gcm.Seal(nil, nonce, plain, nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	raw := make([]byte, 0, NonceSize+TagSize+len(ct))
	raw = append(raw, nonce...)
	raw = append(raw, tag...)
	raw = append(raw, ct...)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// Decode authenticates and decrypts a blob produced by Encode. Any external
// mutation of the blob fails the tag check and returns ErrCorruptBlob.
func (c *Codec) Decode(blob []byte) (model.CachedEntitlement, error) {
	var rec model.CachedEntitlement

	raw, err := base64.StdEncoding.DecodeString(string(blob))
	if err != nil {
		return rec, ErrCorruptBlob
	}
	if len(raw) < NonceSize+TagSize {
		return rec, ErrCorruptBlob
	}
	nonce := raw[:NonceSize]
	tag := raw[NonceSize : NonceSize+TagSize]
	ct := raw[NonceSize+TagSize:]

	gcm, err := c.aead()
	if err != nil {
		return rec, err
	}
	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return rec, ErrCorruptBlob
	}
	if err := json.Unmarshal(plain, &rec); err != nil {
		return rec, ErrMalformedRecord
	}
	if rec.Type == "" {
		// Records written before the license_type field existed are trials.
		rec.Type = model.LicenseTrial
	}
	return rec, nil
}
