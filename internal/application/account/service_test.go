package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/diagnostics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/memory"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCanceller struct{ mock.Mock }

func (m *mockCanceller) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func caller() *domain.Identity {
	return &domain.Identity{Provider: "google", Subject: "109"}
}

func setup(t *testing.T, profile *domain.UserProfile) (Service, *memory.Store, *mockCanceller) {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(func() time.Time { return now })
	hasher := identity.NewHasher("secret")
	if profile != nil {
		key, err := hasher.UserKey("google", "109")
		require.NoError(t, err)
		require.NoError(t, store.Put(context.Background(), domain.NewRecord(domain.ProfileKey(key), domain.TypeUser, *profile)))
	}
	c := &mockCanceller{}
	svc := NewService(ServiceDeps{Store: store, Hasher: hasher, Canceller: c, Now: func() time.Time { return now }})
	return svc, store, c
}

func oneTime(count int, expire string) *domain.UserProfile {
	return &domain.UserProfile{
		UserID:        "109",
		PackageType:   domain.ProductTwoHours,
		PackageID:     "977951",
		SpeechCount:   count,
		PackageStatus: domain.StatusActive,
		PackageExpire: expire,
	}
}

func monthly(status domain.PackageStatus, count int) *domain.UserProfile {
	return &domain.UserProfile{
		UserID:          "109",
		PackageType:     domain.ProductOneMonth,
		PackageID:       "1030016",
		PackageUniqueID: "5501",
		SpeechCount:     count,
		PackageStatus:   status,
		PackageExpire:   "2025-05-01T00:00:00.000Z",
	}
}

func TestStatus_UserNotFound(t *testing.T) {
	svc, _, _ := setup(t, nil)
	_, err := svc.Status(context.Background(), caller())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.CodeUserNotFound, domain.CodeOf(err))
}

func TestStatus_Recompute(t *testing.T) {
	tests := []struct {
		name    string
		profile *domain.UserProfile
		want    domain.PackageStatus
	}{
		{"one-time still valid", oneTime(2, "2025-06-01T13:00:00.000Z"), domain.StatusActive},
		{"one-time past expiry", oneTime(2, "2025-06-01T11:00:00.000Z"), domain.StatusExpired},
		{"one-time out of speeches", oneTime(0, "2025-06-01T13:00:00.000Z"), domain.StatusExpired},
		{"subscription past expiry stays active", monthly(domain.StatusActive, 10), domain.StatusActive},
		{"cancelled subscription stays cancelled", monthly(domain.StatusCanceled, 10), domain.StatusCanceled},
		{"pending subscription stays pending", monthly(domain.StatusPending, 400), domain.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := setup(t, tt.profile)
			v, err := svc.Status(context.Background(), caller())
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.PackageStatus)

			key, _ := identity.UserKey("secret", "google", "109")
			var rec domain.Record[domain.UserProfile]
			require.NoError(t, store.Get(context.Background(), domain.ProfileKey(key), &rec))
			assert.Equal(t, tt.want, rec.Data.PackageStatus, "persisted")
		})
	}
}

func TestStatus_ThrottleLevel(t *testing.T) {
	svc, _, _ := setup(t, monthly(domain.StatusActive, 40))
	v, err := svc.Status(context.Background(), caller())
	require.NoError(t, err)
	assert.Equal(t, domain.TierPremium.Key, v.ThrottleLevel)

	svc, _, _ = setup(t, monthly(domain.StatusActive, 400))
	v, err = svc.Status(context.Background(), caller())
	require.NoError(t, err)
	assert.Equal(t, domain.TierBasic.Key, v.ThrottleLevel)
}

func TestConsume(t *testing.T) {
	svc, _, _ := setup(t, monthly(domain.StatusActive, 2))

	v, err := svc.Consume(context.Background(), caller())
	require.NoError(t, err)
	assert.Equal(t, 1, v.SpeechCount)

	v, err = svc.Consume(context.Background(), caller())
	require.NoError(t, err)
	assert.Equal(t, 0, v.SpeechCount)

	_, err = svc.Consume(context.Background(), caller())
	assert.ErrorIs(t, err, domain.ErrPaymentRequired)
	assert.Equal(t, domain.CodePaymentRequired, domain.CodeOf(err))
}

func TestConsume_InactivePackage(t *testing.T) {
	svc, _, _ := setup(t, monthly(domain.StatusFailed, 50))
	_, err := svc.Consume(context.Background(), caller())
	assert.ErrorIs(t, err, domain.ErrPaymentRequired)
}

func TestConsume_StoreFailure(t *testing.T) {
	svc, store, _ := setup(t, monthly(domain.StatusActive, 5))
	store.SetFault(func(op memory.Op, _ domain.Key) error {
		if op == memory.OpUpdate {
			return errors.New("throttled")
		}
		return nil
	})
	_, err := svc.Consume(context.Background(), caller())
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestUnsubscribe(t *testing.T) {
	svc, _, c := setup(t, monthly(domain.StatusActive, 5))
	c.On("CancelSubscription", mock.Anything, "5501").Return(nil).Once()

	require.NoError(t, svc.Unsubscribe(context.Background(), caller()))
	c.AssertExpectations(t)
}

func TestUnsubscribe_Rejects(t *testing.T) {
	tests := map[string]*domain.UserProfile{
		"one-time package":  oneTime(3, "2025-06-01T13:00:00.000Z"),
		"already cancelled": monthly(domain.StatusCanceled, 5),
		"missing subscription id": func() *domain.UserProfile {
			p := monthly(domain.StatusActive, 5)
			p.PackageUniqueID = ""
			return p
		}(),
	}
	for name, profile := range tests {
		t.Run(name, func(t *testing.T) {
			svc, _, c := setup(t, profile)
			err := svc.Unsubscribe(context.Background(), caller())
			assert.ErrorIs(t, err, domain.ErrBadRequest)
			c.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
		})
	}
}

func TestUnsubscribe_ProviderError(t *testing.T) {
	svc, _, c := setup(t, monthly(domain.StatusActive, 5))
	c.On("CancelSubscription", mock.Anything, "5501").Return(errors.New("404"))
	assert.ErrorContains(t, svc.Unsubscribe(context.Background(), caller()), "cancel subscription 5501")
}

func TestUnsubscribe_ProviderErrorIsRecorded(t *testing.T) {
	_, store, _ := setup(t, monthly(domain.StatusActive, 5))
	c := &mockCanceller{}
	c.On("CancelSubscription", mock.Anything, "5501").Return(errors.New("404")).Once()
	svc := NewService(ServiceDeps{
		Store:       store,
		Hasher:      identity.NewHasher("secret"),
		Canceller:   c,
		Diagnostics: diagnostics.NewRecorder(store, nil),
		Now:         func() time.Time { return now },
	})

	require.Error(t, svc.Unsubscribe(context.Background(), caller()))

	key, err := identity.UserKey("secret", "google", "109")
	require.NoError(t, err)
	var rec domain.Record[[]map[string]string]
	require.NoError(t, store.Get(context.Background(), domain.ErrorKey(diagnostics.SourceAccount, key), &rec))
	assert.Equal(t, domain.TypeError, rec.Type)
	require.Len(t, rec.Data, 1)
	for _, body := range rec.Data[0] {
		assert.Contains(t, body, `"subscriptionId":"5501"`)
		assert.Contains(t, body, `"message":"404"`)
	}
	c.AssertExpectations(t)
}

func TestMissingIdentity(t *testing.T) {
	svc, _, _ := setup(t, nil)
	_, err := svc.Status(context.Background(), &domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
