package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ValidatePassword checks the constraints bcrypt imposes on its input.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) > maxPasswordBytes {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}
