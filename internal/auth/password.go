package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by Verify when the plaintext does not
// match the stored hash. Callers map it to a generic "invalid credentials"
// response so a login attempt cannot tell which half was wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// ErrPasswordTooLong is returned for passwords bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")

// defaultCost is the bcrypt work factor used in production.
//
// COST TUNING RULE OF THUMB:
// Set cost so that hashing takes ~200–300ms on the target hardware.
const defaultCost = 12

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// PasswordService hashes and verifies account passwords with bcrypt.
//
// The stored hash is self-describing ($2a$<cost>$<salt><hash>), so the
// users table needs no separate salt column.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with a caller-chosen
// cost. Tests in other packages pass bcrypt.MinCost (4).
//
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordServiceWithCost(cost)
}

// Hash hashes a plaintext password. Passwords over 72 bytes are rejected
// with ErrPasswordTooLong instead of being truncated.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch
// when it does not. An empty hash (GitHub-only account) never matches.
//
// bcrypt.CompareHashAndPassword compares in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
