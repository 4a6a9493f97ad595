package utils

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

// ValidateEmail accepts anything shaped like local@domain.tld.
func ValidateEmail(email string) error {
	if !emailShape.MatchString(email) {
		return errors.New("invalid email address")
	}
	return nil
}
