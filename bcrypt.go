package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordMinLength is the shortest plaintext password we accept.
	PasswordMinLength = 4
	// PasswordMaxLength is the longest plaintext password we accept. The
	// bound is checked before hashing; afterwards every hash has the same
	// length and the check would be meaningless.
	PasswordMaxLength = 20
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if len(password) < PasswordMinLength || len(password) > PasswordMaxLength {
		return "", ErrPasswordLength
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash is an unusable placeholder hash for accounts that must
// never authenticate with a password.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String()[:PasswordMaxLength])
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
