package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/metrics"
)

// awaitPaymentContext reads the checkout-time context up to s.maxReads
// times, sleeping s.pollIntervals[i] between misses (the last interval
// repeats when the list is shorter). The read counter lives in this call
// only, so every delivery starts a fresh budget.
func (s *service) awaitPaymentContext(ctx context.Context, key domain.Key) (*domain.PaymentContext, error) {
	var lastErr error
	var waited time.Duration
	reads := 0
	for {
		var rec domain.Record[domain.PaymentContext]
		err := s.store.Get(ctx, key, &rec)
		reads++
		switch {
		case err == nil && rec.Data.UserData.Sub != "":
			metrics.CorrelationPollsTotal.WithLabelValues("hit").Inc()
			return &rec.Data, nil
		case err == nil || errors.Is(err, domain.ErrNotFound):
			metrics.CorrelationPollsTotal.WithLabelValues("miss").Inc()
		default:
			metrics.CorrelationPollsTotal.WithLabelValues("error").Inc()
			lastErr = err
		}

		if reads >= s.maxReads {
			break
		}
		wait := s.pollWait(reads - 1)
		waited += wait
		s.log.Info("payment context not visible yet", "key", key.String(), "read", reads, "wait", wait)
		if err := s.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("await %s: %w", key, err)
		}
	}

	metrics.CorrelationTimeoutsTotal.Inc()
	err := fmt.Errorf("PK %s SK %s not visible after %d of %d reads over %s: %w",
		key.PK, key.SK, reads, s.maxReads, waited, domain.ErrCorrelationTimeout)
	if lastErr != nil {
		err = fmt.Errorf("%w (last read: %v)", err, lastErr)
	}
	return nil, domain.NewError(domain.CodeCorrelationTimeout, "lifecycle.awaitPaymentContext", err)
}

func (s *service) pollWait(i int) time.Duration {
	switch {
	case len(s.pollIntervals) == 0:
		return 0
	case i >= len(s.pollIntervals):
		return s.pollIntervals[len(s.pollIntervals)-1]
	default:
		return s.pollIntervals[i]
	}
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
