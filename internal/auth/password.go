package auth

import (
	"errors"

	"github.com/UkralStul/ecosocial/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt учитывает только первые 72 байта
	maxPasswordBytes = 72
)

// HashPassword проверяет длину пароля и возвращает bcrypt-хэш.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", domain.Invalidf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return "", domain.Invalidf("password must be at most %d bytes", maxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword сравнивает пароль с хэшем.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrBadCredentials
	}
	return err
}
