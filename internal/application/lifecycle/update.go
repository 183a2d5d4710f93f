package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/metrics"
)

// updatePackage applies a recurring-payment event. The payment record is
// written first and kept whatever happens to the profile.
func (s *service) updatePackage(ctx context.Context, ev *Event, uniqueID string, status domain.PackageStatus) (*Result, error) {
	now := s.now().UTC()
	ts := domain.Timestamp(now)
	product := domain.ProductByID(ev.ProductID)

	payment := domain.NewRecord(domain.PaymentKey(ev.UserKey, ev.Name, ev.ProductID, uniqueID, ts), domain.TypePayment, domain.PaymentData{
		Timestamp:       ts,
		PackageID:       ev.ProductID.String(),
		PaymentInfo:     ev.Payload,
		PackageStatus:   status,
		PackageUniqueID: uniqueID,
	})
	if err := s.store.Put(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	profileKey := domain.ProfileKey(ev.UserKey)
	var profile domain.Record[domain.UserProfile]
	if err := s.store.Get(ctx, profileKey, &profile); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.deferUpdate(ctx, ev, status, now)
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}

	upd := domain.PackageStatusUpdate(status)
	if status == domain.StatusActive {
		window, err := domain.ValidityWindow(product, now)
		if err != nil {
			return nil, domain.NewError(domain.CodeValidation, "lifecycle.updatePackage", err)
		}
		upd = domain.RenewalUpdate(status, window, product.Allowance)
	}
	if err := s.store.Update(ctx, profileKey, upd); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Deleted between the read and the write.
			return s.deferUpdate(ctx, ev, status, now)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	metrics.PackageTransitionsTotal.WithLabelValues(string(product.Kind), string(status)).Inc()
	s.log.Info("package updated", "user_key", ev.UserKey, "event", ev.Name, "status", status)
	return &Result{
		Outcome: OutcomeUpdated,
		Status:  status,
		UserKey: ev.UserKey,
		Message: fmt.Sprintf("package status %s", status),
	}, nil
}

// deferUpdate parks the status until subscription_created builds the
// profile.
func (s *service) deferUpdate(ctx context.Context, ev *Event, status domain.PackageStatus, now time.Time) (*Result, error) {
	rec := domain.NewRecord(domain.ProfileUpdateKey(ev.UserKey), domain.TypeProfileUpdate, domain.ProfileUpdateIntent{
		Timestamp:     domain.Timestamp(now),
		PackageID:     ev.ProductID.String(),
		PaymentInfo:   ev.Payload,
		PackageStatus: status,
	})
	rec.ExpireAt(s.expiry(now))
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("save deferred profile update: %w", err)
	}
	metrics.DeferredUpdatesTotal.Inc()
	s.log.Info("profile missing, status deferred", "user_key", ev.UserKey, "event", ev.Name, "status", status)
	return &Result{
		Outcome: OutcomeDeferred,
		Status:  status,
		UserKey: ev.UserKey,
		Message: "profile not found, update deferred",
	}, nil
}
