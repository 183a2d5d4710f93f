package google

import (
	"context"
	"fmt"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"google.golang.org/api/idtoken"
)

// Provider is the authProvider value of Google identities.
const Provider = "google"

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
	validate validateFunc
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates the Google ID token and returns the caller's identity.
// Returns a domain.ErrUnauthorized-wrapped error if the token is invalid.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	p, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
	}
	if p.Subject == "" {
		return nil, fmt.Errorf("google token without subject: %w", domain.ErrUnauthorized)
	}
	email, _ := p.Claims["email"].(string)
	name, _ := p.Claims["name"].(string)
	return &domain.Identity{
		Provider: Provider,
		Subject:  p.Subject,
		Email:    email,
		Name:     name,
	}, nil
}
