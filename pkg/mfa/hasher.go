package mfa

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BackupCodeHasher hashes backup codes for storage at rest and compares
// submitted plaintext against a stored hash
type BackupCodeHasher interface {
	Hash(code string) (string, error)
	Verify(code, hashedCode string) (bool, error)
}

// BcryptHasher implements BackupCodeHasher using bcrypt. bcrypt's own salt
// handling makes the stored hashes useless to an attacker who reads the
// settings store, and its comparison is not an equality timing channel.
type BcryptHasher struct{}

// Hash implements BackupCodeHasher.Hash
func (h *BcryptHasher) Hash(code string) (string, error) {
	if code == "" {
		return "", errors.New("backup code cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Verify implements BackupCodeHasher.Verify
func (h *BcryptHasher) Verify(code, hashedCode string) (bool, error) {
	if code == "" || hashedCode == "" {
		return false, errors.New("code and hashed code cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(code))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
