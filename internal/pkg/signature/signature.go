// Package signature authenticates webhook bodies signed with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
)

// Header is the request header carrying the signature.
const Header = "X-Signature"

const prefix = "sha256="

// Verifier checks bodies against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Configured reports whether a secret is set.
func (v *Verifier) Configured() bool { return len(v.secret) > 0 }

// Verify returns nil when header is a valid signature of body. Failures wrap
// domain.ErrUnauthorized and carry a code telling apart a missing secret, a
// missing header and a mismatch.
func (v *Verifier) Verify(body []byte, header string) error {
	if !v.Configured() {
		return domain.NewError(domain.CodeSecretNotConfigured, "signature.Verify",
			fmt.Errorf("webhook secret not configured: %w", domain.ErrUnauthorized))
	}
	if strings.TrimSpace(header) == "" {
		return domain.NewError(domain.CodeSignatureMissing, "signature.Verify",
			fmt.Errorf("missing %s header: %w", Header, domain.ErrUnauthorized))
	}
	if !Valid(v.secret, body, header) {
		return domain.NewError(domain.CodeSignatureMismatch, "signature.Verify",
			fmt.Errorf("invalid signature: %w", domain.ErrUnauthorized))
	}
	return nil
}

// Valid compares header against the HMAC of body in constant time. A
// malformed or wrong-length signature is simply invalid.
func Valid(secret, body []byte, header string) bool {
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(header), prefix))
	if err != nil {
		return false
	}
	return hmac.Equal(digest(secret, body), got)
}

// Sign returns the bare hex signature of body.
func Sign(secret, body []byte) string {
	return hex.EncodeToString(digest(secret, body))
}

func digest(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
