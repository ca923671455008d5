// Package pinhash is the credential hasher for login PINs.
package pinhash

import "golang.org/x/crypto/bcrypt"

// Hash produces a salted one-way digest of the given PIN. The plaintext is
// never stored or logged anywhere.
func Hash(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether pin matches the stored hash. A malformed or empty
// hash yields false, never an error.
func Verify(pin, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
