package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/metrics"
)

// createPackage correlates the event with its checkout context and grants
// the package. With adoptDeferred, a fresh status parked by an earlier
// out-of-order event replaces the initial status. Temp records are deleted
// only once the grant has committed, so a failed delivery can be retried.
func (s *service) createPackage(ctx context.Context, ev *Event, uniqueID string, status domain.PackageStatus, adoptDeferred bool) (*Result, error) {
	ctxKey := domain.PaymentContextKey(ev.UserKey)
	pc, err := s.awaitPaymentContext(ctx, ctxKey)
	if err != nil {
		s.alert(ctx, "payment context missing", err.Error())
		return nil, err
	}
	user := pc.UserData
	product, ok := domain.LookupProduct(user.ProductID)
	if !ok {
		return nil, domain.NewError(domain.CodeValidation, "lifecycle.createPackage",
			fmt.Errorf("checkout context holds unknown product %s: %w", user.ProductID, domain.ErrBadRequest))
	}

	deferredFound := false
	if adoptDeferred {
		status, deferredFound = s.deferredStatus(ctx, ev.UserKey, product, status)
	}

	res, err := s.grant(ctx, ev, user, product, uniqueID, status)
	if err != nil {
		return nil, err
	}

	s.consume(ctx, ev.UserKey, ctxKey)
	if deferredFound {
		s.consume(ctx, ev.UserKey, domain.ProfileUpdateKey(ev.UserKey))
	}
	return res, nil
}

// deferredStatus returns the parked status when it is fresh and for the
// same product, and whether a parked record exists at all.
func (s *service) deferredStatus(ctx context.Context, userKey string, product domain.Product, fallback domain.PackageStatus) (domain.PackageStatus, bool) {
	var rec domain.Record[domain.ProfileUpdateIntent]
	if err := s.store.Get(ctx, domain.ProfileUpdateKey(userKey), &rec); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("could not read deferred profile update", "user_key", userKey, "err", err)
		}
		return fallback, false
	}
	intent := rec.Data
	if intent.PackageID != product.ID.String() || !intent.PackageStatus.Valid() {
		return fallback, true
	}
	ts, err := domain.ParseTimestamp(intent.Timestamp)
	if err != nil {
		s.log.Warn("deferred profile update has bad timestamp", "user_key", userKey, "timestamp", intent.Timestamp)
		return fallback, true
	}
	now := s.now()
	if !ts.After(now.Add(-s.freshness)) || ts.After(now) {
		return fallback, true
	}
	s.log.Info("adopting deferred status", "user_key", userKey, "status", intent.PackageStatus)
	return intent.PackageStatus, true
}

// grant runs the creation writes: consent, package, then the profile.
// Each committed write pushes its undo; any failure or panic unwinds them
// newest first.
func (s *service) grant(ctx context.Context, ev *Event, user domain.CheckoutUser, product domain.Product, uniqueID string, status domain.PackageStatus) (res *Result, err error) {
	now := s.now().UTC()
	ts := domain.Timestamp(now)
	window, err := domain.ValidityWindow(product, now)
	if err != nil {
		return nil, domain.NewError(domain.CodeValidation, "lifecycle.grant", err)
	}

	sg := &saga{log: s.log.With("user_key", ev.UserKey, "unique_id", uniqueID), onFail: s.compensationFailed(ev)}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grant %s/%s: panic: %v", ev.UserKey, uniqueID, r)
		}
		if err != nil {
			sg.unwind(ctx)
		}
	}()

	consentKey := domain.ConsentKey(ev.UserKey, ts)
	consent := domain.NewRecord(consentKey, domain.TypeConsent, domain.ConsentData{
		AgreedToTerms:         user.AgreedToTerms,
		TermsConditionVersion: user.TermsConditionVersion,
		PrivacyPolicyVersion:  user.PrivacyPolicyVersion,
		Timestamp:             ts,
	})
	if err := s.store.Put(ctx, consent); err != nil {
		return nil, fmt.Errorf("save consent: %w", err)
	}
	sg.push("consent", s.deleter(consentKey))

	pkgKey := domain.PackageKey(ev.UserKey, product.ID, uniqueID, ts)
	pkg := domain.NewRecord(pkgKey, domain.TypePackage, domain.PackageData{
		Timestamp:          ts,
		PackageID:          product.ID.String(),
		PaymentInfo:        ev.Payload,
		PackageUniqueID:    uniqueID,
		PackageStartedTime: window.StartString(),
		PackageExpireTime:  window.ExpiryString(),
	})
	if err := s.store.Put(ctx, pkg); err != nil {
		return nil, fmt.Errorf("save package: %w", err)
	}
	sg.push("package", s.deleter(pkgKey))

	ref := domain.PackageRef{PK: pkgKey.PK, SK: pkgKey.SK, Timestamp: ts}
	profileKey := domain.ProfileKey(ev.UserKey)
	var existing domain.Record[domain.UserProfile]
	switch err := s.store.Get(ctx, profileKey, &existing); {
	case errors.Is(err, domain.ErrNotFound):
		profile := domain.NewRecord(profileKey, domain.TypeUser, domain.UserProfile{
			UserID:           user.Sub,
			AuthProvider:     user.AuthProvider,
			Name:             user.Name,
			SpeechCount:      product.Allowance,
			PackageType:      product.Key,
			PackageID:        product.ID.String(),
			PackageUniqueID:  uniqueID,
			PackageStatus:    status,
			PackageStarted:   window.StartString(),
			PackageExpire:    window.ExpiryString(),
			ActivePackageRef: ref,
		})
		if err := s.store.Put(ctx, profile); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
		sg.push("profile", s.deleter(profileKey))
	case err != nil:
		return nil, fmt.Errorf("read profile: %w", err)
	default:
		if err := s.store.Update(ctx, profileKey, domain.GrantUpdate(product, uniqueID, status, window, ref)); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	metrics.PackageTransitionsTotal.WithLabelValues(string(product.Kind), string(status)).Inc()
	s.log.Info("package granted", "user_key", ev.UserKey, "product", product.Key, "status", status, "expires", window.ExpiryString())
	return &Result{
		Outcome: OutcomeCreated,
		Status:  status,
		UserKey: ev.UserKey,
		Message: fmt.Sprintf("package %s granted", product.Key),
	}, nil
}

func (s *service) deleter(key domain.Key) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.store.Delete(ctx, key)
		return err
	}
}

func (s *service) compensationFailed(ev *Event) func(context.Context, string, error) {
	return func(ctx context.Context, step string, err error) {
		msg := fmt.Sprintf("could not undo %s for %s after a failed grant: %v", step, ev.UserKey, err)
		s.report(ctx, ev.UserKey, map[string]any{"message": msg, "event": ev.Name, "step": step})
		s.alert(ctx, "saga compensation failed", msg)
	}
}

// consume deletes a correlated temp record. A failed delete is recorded,
// not returned: the record expires through its TTL anyway.
func (s *service) consume(ctx context.Context, userKey string, key domain.Key) {
	if _, err := s.store.Delete(ctx, key); err != nil {
		s.log.Error("failed to delete temp record", "key", key.String(), "err", err)
		s.report(ctx, userKey, map[string]any{
			"message": "failed to delete temp record after correlation",
			"key":     key.String(),
			"error":   err.Error(),
		})
	}
}

// expiry is the TTL of temp records written at now.
func (s *service) expiry(now time.Time) time.Time { return now.Add(s.tempTTL) }
