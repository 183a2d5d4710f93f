// Package identity derives the pseudonymous partition key of a user.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrMissingInput = errors.New("identity: secret, provider and subject are required")

// UserKey returns hex(HMAC-SHA256(secret, "USER#<provider>#<sub>")). The
// result is stable for a given secret and never reveals the subject.
func UserKey(secret, provider, sub string) (string, error) {
	if secret == "" || provider == "" || sub == "" {
		return "", ErrMissingInput
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("USER#" + provider + "#" + sub))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Hasher binds a secret for repeated use.
type Hasher struct {
	secret string
}

func NewHasher(secret string) *Hasher { return &Hasher{secret: secret} }

func (h *Hasher) UserKey(provider, sub string) (string, error) {
	return UserKey(h.secret, provider, sub)
}
