package license

import "crypto/sha256"

// KeySize is the AES-256 key length produced by DeriveKey.
const KeySize = 32

// DeriveKey derives the symmetric key protecting the local entitlement blob:
// SHA-256(appSecret || "|" || deviceID). The same device always yields the
// same key, so a blob copied to another machine cannot be decrypted there.
func DeriveKey(appSecret, deviceID string) []byte {
	sum := sha256.Sum256([]byte(appSecret + "|" + deviceID))
	return sum[:]
}
