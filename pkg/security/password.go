// Package security contains everything related to the security of user data
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used for stored passwords
	DefaultCost = 10

	// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not runes.
	MaxPasswordBytes = 72
)

var ErrPasswordTooLong = errors.New("password must be 72 bytes or fewer")

type PasswordHasher struct {
	Cost int
}

func New() *PasswordHasher {
	return &PasswordHasher{
		Cost: DefaultCost,
	}
}

// GenerateFromPassword returns a salted bcrypt hash of p. The salt and cost
// are part of the encoded output.
func (h *PasswordHasher) GenerateFromPassword(p string) (encoded string, err error) {
	if len(p) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password, %w", err)
	}

	return string(hash), nil
}

// VerifyPasswd compares a password p with the stored bcrypt hash e. A
// mismatch is reported as ok=false with no error.
func (h *PasswordHasher) VerifyPasswd(p, e string) (ok bool, err error) {
	// Nothing longer could have been stored
	if len(p) > MaxPasswordBytes {
		return false, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(e), []byte(p))
	if err == nil {
		return true, nil
	}

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, err
}
