package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/diagnostics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/metrics"
)

// View is the entitlement summary returned to the client.
type View struct {
	PackageStatus domain.PackageStatus `json:"packageStatus"`
	PackageType   string               `json:"packageType"`
	SpeechCount   int                  `json:"speechCount"`
	PackageExpire string               `json:"pkgExpire"`
	ThrottleLevel string               `json:"throttleLevel"`
}

type Service interface {
	Status(ctx context.Context, id *domain.Identity) (*View, error)
	Consume(ctx context.Context, id *domain.Identity) (*View, error)
	Unsubscribe(ctx context.Context, id *domain.Identity) error
}

type profileStore interface {
	Get(ctx context.Context, key domain.Key, out any) error
	Update(ctx context.Context, key domain.Key, u *domain.Update) error
}

type keyer interface {
	UserKey(provider, sub string) (string, error)
}

type recorder interface {
	Record(ctx context.Context, source, id string, detail any) error
}

type canceller interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

type service struct {
	store     profileStore
	hasher    keyer
	canceller canceller
	diag      recorder
	log       *slog.Logger
	now       func() time.Time
}

type ServiceDeps struct {
	Store       profileStore
	Hasher      keyer
	Canceller   canceller
	Diagnostics recorder
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:     deps.Store,
		hasher:    deps.Hasher,
		canceller: deps.Canceller,
		diag:      deps.Diagnostics,
		log:       deps.Logger,
		now:       deps.Now,
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
	return s
}

// Status re-derives the package status from expiry and allowance and
// persists it when it moved.
func (s *service) Status(ctx context.Context, id *domain.Identity) (*View, error) {
	key, profile, err := s.load(ctx, "account.Status", id)
	if err != nil {
		return nil, err
	}
	status := currentStatus(profile, s.now())
	if status != profile.PackageStatus {
		if err := s.store.Update(ctx, key, domain.PackageStatusUpdate(status)); err != nil {
			s.log.Warn("could not persist recomputed status", "user_key", key.PK, "status", status, "err", err)
		} else {
			s.log.Info("package status recomputed", "user_key", key.PK, "from", profile.PackageStatus, "to", status)
		}
		profile.PackageStatus = status
	}
	return view(profile), nil
}

// Consume takes one speech from the allowance of an active package.
func (s *service) Consume(ctx context.Context, id *domain.Identity) (*View, error) {
	const op = "account.Consume"
	v, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.PackageStatus != domain.StatusActive {
		metrics.SpeechesConsumedTotal.WithLabelValues("inactive").Inc()
		return nil, domain.NewError(domain.CodePaymentRequired, op,
			fmt.Errorf("package is %s: %w", v.PackageStatus, domain.ErrPaymentRequired))
	}

	key, err := s.userKey(op, id)
	if err != nil {
		return nil, err
	}
	dec := domain.NewUpdate().
		Add(domain.FieldSpeechCount, -1).
		RequireGreaterThan(domain.FieldSpeechCount, 0)
	if err := s.store.Update(ctx, key, dec); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.SpeechesConsumedTotal.WithLabelValues("exhausted").Inc()
			return nil, domain.NewError(domain.CodePaymentRequired, op,
				fmt.Errorf("no speeches left: %w", domain.ErrPaymentRequired))
		}
		return nil, fmt.Errorf("decrement speech count: %w", err)
	}
	metrics.SpeechesConsumedTotal.WithLabelValues("ok").Inc()
	v.SpeechCount--
	v.ThrottleLevel = throttle(v.PackageType, v.SpeechCount)
	return v, nil
}

// Unsubscribe asks the provider to cancel the active subscription. The
// status changes when subscription_cancelled arrives.
func (s *service) Unsubscribe(ctx context.Context, id *domain.Identity) error {
	const op = "account.Unsubscribe"
	key, profile, err := s.load(ctx, op, id)
	if err != nil {
		return err
	}
	product, ok := productOf(profile)
	if !ok || !product.IsSubscription() || profile.PackageUniqueID == "" {
		return domain.NewError(domain.CodeValidation, op, fmt.Errorf("no subscription to cancel: %w", domain.ErrBadRequest))
	}
	switch profile.PackageStatus {
	case domain.StatusActive, domain.StatusPending, domain.StatusFailed:
	default:
		return domain.NewError(domain.CodeValidation, op,
			fmt.Errorf("subscription is %s: %w", profile.PackageStatus, domain.ErrBadRequest))
	}
	if err := s.canceller.CancelSubscription(ctx, profile.PackageUniqueID); err != nil {
		_ = s.diag.Record(ctx, diagnostics.SourceAccount, key.PK, map[string]any{
			"message":        err.Error(),
			"subscriptionId": profile.PackageUniqueID,
			"packageStatus":  profile.PackageStatus,
		})
		return fmt.Errorf("cancel subscription %s: %w", profile.PackageUniqueID, err)
	}
	s.log.Info("unsubscribe requested", "user_key", key.PK, "subscription_id", profile.PackageUniqueID)
	return nil
}

func (s *service) userKey(op string, id *domain.Identity) (domain.Key, error) {
	if id == nil || id.Subject == "" || id.Provider == "" {
		return domain.Key{}, domain.NewError(domain.CodeUnauthorized, op, fmt.Errorf("missing identity: %w", domain.ErrUnauthorized))
	}
	userKey, err := s.hasher.UserKey(id.Provider, id.Subject)
	if err != nil {
		return domain.Key{}, fmt.Errorf("derive user key: %w", err)
	}
	return domain.ProfileKey(userKey), nil
}

func (s *service) load(ctx context.Context, op string, id *domain.Identity) (domain.Key, domain.UserProfile, error) {
	key, err := s.userKey(op, id)
	if err != nil {
		return key, domain.UserProfile{}, err
	}
	var rec domain.Record[domain.UserProfile]
	if err := s.store.Get(ctx, key, &rec); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return key, domain.UserProfile{}, domain.NewError(domain.CodeUserNotFound, op, err)
		}
		return key, domain.UserProfile{}, fmt.Errorf("read profile: %w", err)
	}
	return key, rec.Data, nil
}

// currentStatus expires one-time packages that ran out of time or speeches.
// Subscriptions keep their stored status; webhooks own their transitions.
func currentStatus(p domain.UserProfile, now time.Time) domain.PackageStatus {
	product, ok := productOf(p)
	if !ok || product.IsSubscription() || p.PackageStatus != domain.StatusActive {
		return p.PackageStatus
	}
	if p.SpeechCount <= 0 {
		return domain.StatusExpired
	}
	if exp, err := domain.ParseTimestamp(p.PackageExpire); err == nil && exp.Before(now) {
		return domain.StatusExpired
	}
	return p.PackageStatus
}

func productOf(p domain.UserProfile) (domain.Product, bool) {
	pid, err := domain.ParseProductID(p.PackageID)
	if err != nil {
		return domain.Product{}, false
	}
	return domain.LookupProduct(pid)
}

func view(p domain.UserProfile) *View {
	return &View{
		PackageStatus: p.PackageStatus,
		PackageType:   p.PackageType,
		SpeechCount:   p.SpeechCount,
		PackageExpire: p.PackageExpire,
		ThrottleLevel: throttle(p.PackageType, p.SpeechCount),
	}
}

func throttle(packageType string, remaining int) string {
	product := domain.ProductByKey(packageType)
	return domain.ResolveThrottle(&product, remaining).Key
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, any) error { return nil }
