// Package lifecycle reconciles payment webhooks with the user's package
// state: it classifies the event, correlates it with checkout-time context,
// runs the compensating creation writes and drives the package status.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/diagnostics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/metrics"
)

type Service interface {
	Process(ctx context.Context, ev *Event) (*Result, error)
}

type recordStore interface {
	Get(ctx context.Context, key domain.Key, out any) error
	Put(ctx context.Context, e domain.Entity) error
	Update(ctx context.Context, key domain.Key, u *domain.Update) error
	Delete(ctx context.Context, key domain.Key) (bool, error)
}

type recorder interface {
	Record(ctx context.Context, source, id string, detail any) error
}

type alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

type service struct {
	store         recordStore
	diag          recorder
	alerts        alerter
	log           *slog.Logger
	now           func() time.Time
	sleep         func(context.Context, time.Duration) error
	pollIntervals []time.Duration
	maxReads      int
	freshness     time.Duration
	tempTTL       time.Duration
}

// ServiceDeps wires the engine. Diagnostics, Alerter, Now and Sleep are
// optional.
type ServiceDeps struct {
	Store           recordStore
	Diagnostics     recorder
	Alerter         alerter
	Logger          *slog.Logger
	Now             func() time.Time
	Sleep           func(context.Context, time.Duration) error
	PollIntervals   []time.Duration
	MaxReads        int // payment context reads per delivery, default 2
	FreshnessWindow time.Duration
	TempRecordTTL   time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:         deps.Store,
		diag:          deps.Diagnostics,
		alerts:        deps.Alerter,
		log:           deps.Logger,
		now:           deps.Now,
		sleep:         deps.Sleep,
		pollIntervals: deps.PollIntervals,
		maxReads:      deps.MaxReads,
		freshness:     deps.FreshnessWindow,
		tempTTL:       deps.TempRecordTTL,
	}
	if s.diag == nil {
		s.diag = nopRecorder{}
	}
	if s.alerts == nil {
		s.alerts = nopAlerter{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	if s.maxReads <= 0 {
		s.maxReads = 2
	}
	if s.freshness <= 0 {
		s.freshness = 10 * time.Minute
	}
	if s.tempTTL <= 0 {
		s.tempTTL = 15 * time.Minute
	}
	return s
}

func (s *service) Process(ctx context.Context, ev *Event) (*Result, error) {
	start := time.Now()
	res, err := s.process(ctx, ev)
	outcome := "failed"
	if err == nil {
		outcome = string(res.Outcome)
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(ev.Name), outcome).Inc()
	metrics.WebhookDuration.WithLabelValues(string(ev.Name)).Observe(time.Since(start).Seconds())
	return res, err
}

// process dispatches on (product kind, event name).
func (s *service) process(ctx context.Context, ev *Event) (*Result, error) {
	log := s.log.With("event", ev.Name, "product_id", ev.ProductID.String(), "user_key", ev.UserKey)
	if ev.UserKey == "" {
		return nil, missingID(ev, "meta.custom_data.key")
	}

	switch domain.KindOf(ev.ProductID) {
	case domain.KindOneTime:
		if ev.Name != domain.EventOrderCreated {
			return s.ignored(ev, "one-time products only act on order_created"), nil
		}
		orderID := ev.Attributes.OrderItemID()
		if orderID == "" {
			return nil, missingID(ev, "first_order_item.id")
		}
		log.Info("creating one-time package", "unique_id", orderID)
		return s.createPackage(ctx, ev, orderID, domain.StatusActive, false)

	case domain.KindSubscription:
		switch ev.Name {
		case domain.EventOrderCreated:
			return s.ignored(ev, "subscriptions are created by subscription_created"), nil
		case domain.EventSubscriptionCreated:
			subID := ev.Attributes.ItemSubscriptionID()
			if subID == "" {
				return nil, missingID(ev, "first_subscription_item.subscription_id")
			}
			log.Info("creating subscription package", "unique_id", subID)
			return s.createPackage(ctx, ev, subID, domain.StatusPending, true)
		case domain.EventSubscriptionPaymentSuccess, domain.EventSubscriptionPaymentFailed:
			subID := ev.Attributes.PaymentSubscriptionID()
			if subID == "" {
				return nil, missingID(ev, "subscription_id")
			}
			return s.updatePackage(ctx, ev, subID, statusFor(ev.Name))
		case domain.EventSubscriptionExpired, domain.EventSubscriptionCancelled:
			subID := ev.Attributes.ItemSubscriptionID()
			if subID == "" {
				return nil, missingID(ev, "first_subscription_item.subscription_id")
			}
			return s.updatePackage(ctx, ev, subID, statusFor(ev.Name))
		}
	}

	log.Warn("unknown event or product")
	s.report(ctx, ev.UserKey, map[string]any{
		"message":   "unknown event or product",
		"event":     ev.Name,
		"productId": ev.ProductID.String(),
		"payload":   ev.Payload,
	})
	return &Result{
		Outcome: OutcomeUnknown,
		Status:  domain.StatusUnknown,
		UserKey: ev.UserKey,
		Message: fmt.Sprintf("%s for product %s: %v", ev.Name, ev.ProductID, domain.ErrUnknownEvent),
	}, nil
}

func statusFor(name domain.EventName) domain.PackageStatus {
	switch name {
	case domain.EventSubscriptionPaymentSuccess:
		return domain.StatusActive
	case domain.EventSubscriptionPaymentFailed:
		return domain.StatusFailed
	case domain.EventSubscriptionExpired:
		return domain.StatusExpired
	case domain.EventSubscriptionCancelled:
		return domain.StatusCanceled
	}
	return domain.StatusUnknown
}

func (s *service) ignored(ev *Event, why string) *Result {
	s.log.Info("event ignored", "event", ev.Name, "product_id", ev.ProductID.String(), "reason", why)
	return &Result{Outcome: OutcomeIgnored, UserKey: ev.UserKey, Message: why}
}

// report persists a diagnostic and swallows its failure; the recorder logs it.
func (s *service) report(ctx context.Context, id string, detail map[string]any) {
	if id == "" {
		id = "NO_JOB_ID"
	}
	_ = s.diag.Record(context.WithoutCancel(ctx), diagnostics.SourceWebhook, id, detail)
}

func (s *service) alert(ctx context.Context, subject, message string) {
	if err := s.alerts.Alert(context.WithoutCancel(ctx), subject, message); err != nil {
		s.log.Error("failed to publish alert", "subject", subject, "err", err)
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, any) error { return nil }

type nopAlerter struct{}

func (nopAlerter) Alert(context.Context, string, string) error { return nil }
