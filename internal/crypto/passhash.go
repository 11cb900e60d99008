// Package crypto implements credential hashing and verification.
package crypto

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the cost used for existing directory records.
const bcryptCost = 10

// HashCredential returns a salted bcrypt hash of the password.
func HashCredential(password []byte) ([]byte, error) {
	return bcrypt.GenerateFromPassword(password, bcryptCost)
}

// VerifyCredential reports whether password matches the stored hash.
// The comparison is constant time with respect to the hash contents.
func VerifyCredential(password, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, password) == nil
}
