package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAwait_TimesOutAfterBudget(t *testing.T) {
	h := newHarness(t)
	h.alerts.On("Alert", mock.Anything, "payment context missing", mock.Anything).Return(nil).Once()
	reads := 0
	h.store.SetFault(func(op memory.Op, key domain.Key) error {
		if op == memory.OpGet && key.SK == domain.SKPaymentContext {
			reads++
		}
		return nil
	})

	_, err := h.svc.Process(context.Background(), event(domain.EventOrderCreated, timeless20))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorrelationTimeout)
	assert.Equal(t, domain.CodeCorrelationTimeout, domain.CodeOf(err))
	assert.Contains(t, err.Error(), userKey)
	assert.Contains(t, err.Error(), domain.SKPaymentContext)
	assert.Contains(t, err.Error(), "after 2 of 2 reads over 10s")
	assert.Equal(t, []time.Duration{10 * time.Second}, h.sleeps)
	assert.Equal(t, 2, reads)
	assert.Equal(t, 0, h.store.Len(), "nothing written")
	h.alerts.AssertExpectations(t)
}

func TestAwait_MaxReadsExtendsBudget(t *testing.T) {
	h := newHarness(t).quiet()
	h.svc.(*service).maxReads = 4
	reads := 0
	h.store.SetFault(func(op memory.Op, key domain.Key) error {
		if op == memory.OpGet && key.SK == domain.SKPaymentContext {
			reads++
		}
		return nil
	})

	_, err := h.svc.Process(context.Background(), event(domain.EventOrderCreated, timeless20))
	require.ErrorIs(t, err, domain.ErrCorrelationTimeout)
	assert.Equal(t, 4, reads)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 20 * time.Second}, h.sleeps)
	assert.Contains(t, err.Error(), "after 4 of 4 reads over 50s")
}

func TestAwait_SingleReadNeverSleeps(t *testing.T) {
	h := newHarness(t).quiet()
	h.svc.(*service).maxReads = 1

	_, err := h.svc.Process(context.Background(), event(domain.EventOrderCreated, timeless20))
	require.ErrorIs(t, err, domain.ErrCorrelationTimeout)
	assert.Empty(t, h.sleeps)
}

func TestNewService_DefaultsToTwoReads(t *testing.T) {
	svc := NewService(ServiceDeps{Store: memory.NewStore()}).(*service)
	assert.Equal(t, 2, svc.maxReads)
}

func TestAwait_BudgetRestartsPerDelivery(t *testing.T) {
	h := newHarness(t).quiet()
	for i := 0; i < 2; i++ {
		_, err := h.svc.Process(context.Background(), event(domain.EventSubscriptionCreated, subscription))
		require.ErrorIs(t, err, domain.ErrCorrelationTimeout)
	}
	assert.Len(t, h.sleeps, 2)
}

func TestAwait_ContextAppearsDuringPoll(t *testing.T) {
	h := newHarness(t).quiet()
	svc := h.svc.(*service)
	svc.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		h.seedContext(t, subscription)
		return nil
	}

	res, err := h.svc.Process(context.Background(), event(domain.EventSubscriptionCreated, subscription))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, []time.Duration{10 * time.Second}, h.sleeps)
}

func TestAwait_StoreErrorsCountAsMisses(t *testing.T) {
	h := newHarness(t).quiet()
	h.seedContext(t, timeless20)
	fails := 1
	h.store.SetFault(func(op memory.Op, key domain.Key) error {
		if op == memory.OpGet && key.SK == domain.SKPaymentContext && fails > 0 {
			fails--
			return errors.New("throttled")
		}
		return nil
	})

	res, err := h.svc.Process(context.Background(), event(domain.EventOrderCreated, timeless20))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Len(t, h.sleeps, 1)
}

func TestAwait_HonoursCancellation(t *testing.T) {
	h := newHarness(t).quiet()
	h.svc.(*service).sleep = sleepContext
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.Process(ctx, event(domain.EventOrderCreated, timeless20))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
