package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// DefaultBcryptCost совпадает с настройкой по умолчанию MARKETPLACE_BCRYPT_COST.
const DefaultBcryptCost = 12

// BcryptHasher хеширует пароли bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создаёт hasher; стоимость вне допустимого диапазона заменяется на DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}

var _ domain.PasswordHasher = (*BcryptHasher)(nil)
