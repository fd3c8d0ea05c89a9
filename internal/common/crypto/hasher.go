package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/squadboard/backend/internal/common/constants"
)

var (
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	ErrEmptyPassword   = errors.New("password is empty")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

// BcryptHasher salts every hash; the salt and cost are encoded in the output.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > constants.PasswordMaxLength {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify never returns an error: a malformed hash simply does not match.
func (h *BcryptHasher) Verify(hash string, password string) bool {
	if hash == "" || len(password) > constants.PasswordMaxLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
