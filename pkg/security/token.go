package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrHashingFailed = errors.New("token hashing failed")

const tokenBytes = 32

// TokenManager issues and verifies opaque self-service tokens. Only the
// bcrypt hash is ever persisted; the raw token travels once, in the
// notification sent to the patient.
type TokenManager interface {
	Generate() (raw string, hash string, err error)
	Compare(hash, raw string) error
}

type bcryptTokenManager struct {
	cost int
}

// NewTokenManager creates a token manager hashing with bcrypt at the given
// cost. Out-of-range costs fall back to the bcrypt default.
func NewTokenManager(cost int) TokenManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptTokenManager{cost: cost}
}

func (m *bcryptTokenManager) Generate() (string, string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)

	bytes, err := bcrypt.GenerateFromPassword([]byte(raw), m.cost)
	if err != nil {
		return "", "", ErrHashingFailed
	}
	return raw, string(bytes), nil
}

func (m *bcryptTokenManager) Compare(hash, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}
