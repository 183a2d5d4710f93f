package http

import (
	"context"
	"log/slog"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/transport/http/middleware"
)

// RecordStore is the minimal interface the router requires from the single
// table store. Both dynamo.Table and memory.Store satisfy it.
type RecordStore interface {
	Get(ctx context.Context, key domain.Key, out any) error
	Put(ctx context.Context, e domain.Entity) error
	Update(ctx context.Context, key domain.Key, u *domain.Update) error
	Delete(ctx context.Context, key domain.Key) (bool, error)
}

// PaymentProvider is the minimal interface the router requires from the
// payment provider API client.
type PaymentProvider interface {
	CreateCheckout(ctx context.Context, userKey string, user domain.CheckoutUser) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// WebhookVerifier authenticates raw webhook bodies.
type WebhookVerifier interface {
	Verify(body []byte, header string) error
}

// UserKeyer derives the hashed user key from a provider identity.
type UserKeyer interface {
	UserKey(provider, sub string) (string, error)
}

// PayloadArchive stores verified webhook bodies.
type PayloadArchive interface {
	Put(ctx context.Context, body []byte) (string, error)
}

// Alerter publishes operator alerts.
type Alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

// Deps holds all infrastructure dependencies for the router. Archive and
// Alerter are optional.
type Deps struct {
	Store      RecordStore
	Provider   PaymentProvider
	Webhooks   WebhookVerifier
	Hasher     UserKeyer
	Identities map[string]middleware.IdentityVerifier
	Archive    PayloadArchive
	Alerter    Alerter
	Logger     *slog.Logger
}
