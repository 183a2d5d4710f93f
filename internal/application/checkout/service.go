package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/diagnostics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/metrics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/validate"
)

// Request is the body of POST /v1/checkout.
type Request struct {
	JobID                 string           `json:"jobId"`
	ProductID             domain.ProductID `json:"productId" validate:"purchasable"`
	Acknowledged          bool             `json:"acknowledged" validate:"required"`
	TermsConditionVersion string           `json:"termsConditionVersion" validate:"required"`
	PrivacyPolicyVersion  string           `json:"privacyPolicyVersion" validate:"required"`
}

type Service interface {
	Start(ctx context.Context, id *domain.Identity, req Request) (string, error)
}

type contextStore interface {
	Put(ctx context.Context, e domain.Entity) error
}

type checkoutProvider interface {
	CreateCheckout(ctx context.Context, userKey string, user domain.CheckoutUser) (string, error)
}

type recorder interface {
	Record(ctx context.Context, source, id string, detail any) error
}

type keyer interface {
	UserKey(provider, sub string) (string, error)
}

type service struct {
	store    contextStore
	provider checkoutProvider
	hasher   keyer
	diag     recorder
	log      *slog.Logger
	now      func() time.Time
	ttl      time.Duration
}

// ServiceDeps wires the checkout flow. Diagnostics, Logger and Now are
// optional.
type ServiceDeps struct {
	Store         contextStore
	Provider      checkoutProvider
	Hasher        keyer
	Diagnostics   recorder
	Logger        *slog.Logger
	Now           func() time.Time
	TempRecordTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:    deps.Store,
		provider: deps.Provider,
		hasher:   deps.Hasher,
		diag:     deps.Diagnostics,
		log:      deps.Logger,
		now:      deps.Now,
		ttl:      deps.TempRecordTTL,
	}
	if s.diag == nil {
		s.diag = nopRecorder{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = 15 * time.Minute
	}
	return s
}

// Start parks the caller's identity and consent under the payment context
// key, then opens a provider checkout whose webhooks will carry that key.
func (s *service) Start(ctx context.Context, id *domain.Identity, req Request) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", domain.NewError(domain.CodeValidation, "checkout.Start", err)
	}
	if id == nil || id.Subject == "" || id.Provider == "" {
		return "", fmt.Errorf("missing identity: %w", domain.ErrUnauthorized)
	}
	userKey, err := s.hasher.UserKey(id.Provider, id.Subject)
	if err != nil {
		return "", fmt.Errorf("derive user key: %w", err)
	}

	user := domain.CheckoutUser{
		Sub:                   id.Subject,
		Email:                 id.Email,
		Name:                  id.Name,
		AuthProvider:          id.Provider,
		ProductID:             req.ProductID,
		AgreedToTerms:         req.Acknowledged,
		TermsConditionVersion: req.TermsConditionVersion,
		PrivacyPolicyVersion:  req.PrivacyPolicyVersion,
	}
	rec := domain.NewRecord(domain.PaymentContextKey(userKey), domain.TypePaymentContext, domain.PaymentContext{UserData: user})
	rec.ExpireAt(s.now().Add(s.ttl))
	if err := s.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("save payment context: %w", err)
	}

	url, err := s.provider.CreateCheckout(ctx, userKey, user)
	if err != nil {
		_ = s.diag.Record(ctx, diagnostics.SourceCheckout, userKey, map[string]any{
			"message":   err.Error(),
			"productId": req.ProductID,
			"jobId":     req.JobID,
		})
		return "", fmt.Errorf("create checkout: %w", err)
	}
	product := domain.ProductByID(req.ProductID)
	metrics.CheckoutsStartedTotal.WithLabelValues(product.Key).Inc()
	s.log.Info("checkout started", "user_key", userKey, "product", product.Key, "job_id", req.JobID)
	return url, nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, any) error { return nil }
