// Package auth — password hashing utilities.
//
// bcrypt is deliberately slow and salts every hash: two users with the
// same password get different digests, and the salt plus the cost factor
// are embedded in the output, so no separate salt column is needed.
// Cost 12 (~250ms per hash) is the floor for new applications — cheap
// enough for a login, expensive enough to make offline brute force
// impractical.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/placeshare/internal/apperror"
)

// defaultCost is the bcrypt work factor used in production.
// Tune it so a single hash takes roughly 200-300ms on production hardware.
const defaultCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected in
// tests — bcrypt.MinCost makes tests fast without changing the logic
// under test.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom
// (usually minimal) cost. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// The output is a self-contained digest string; store it directly.
// Plaintexts longer than 72 bytes are rejected because bcrypt would
// silently truncate them.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored digest.
//
// A mismatch is NOT an error: it returns (false, nil) so callers can map
// it to the uniform Unauthorized response. The error return is reserved
// for digests bcrypt cannot parse — corrupted or non-bcrypt data in the
// store — reported as apperror.ErrHashFormat.
//
// bcrypt.CompareHashAndPassword is constant-time internally, so response
// timing does not reveal how much of the password was correct.
func (p *PasswordService) Verify(digest, plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, apperror.HashFormat(err)
}
