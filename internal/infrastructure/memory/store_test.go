package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func seedProfile(t *testing.T, s *Store, key domain.Key, count int) {
	t.Helper()
	rec := domain.NewRecord(key, domain.TypeUser, domain.UserProfile{UserID: "sub", SpeechCount: count, PackageStatus: domain.StatusPending})
	require.NoError(t, s.Put(ctx, rec))
}

func TestPutGet_StampsTimestamps(t *testing.T) {
	s := NewStore()
	s.SetClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	key := domain.ProfileKey("u1")
	seedProfile(t, s, key, 3)

	var got domain.Record[domain.UserProfile]
	require.NoError(t, s.Get(ctx, key, &got))
	assert.Equal(t, "2025-01-01T00:00:00.000Z", got.CreatedAt)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	assert.Equal(t, 3, got.Data.SpeechCount)
	assert.Equal(t, domain.TypeUser, got.Type)
}

func TestGet_Missing(t *testing.T) {
	var got domain.Record[domain.UserProfile]
	err := NewStore().Get(ctx, domain.ProfileKey("nobody"), &got)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_TTLExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.SetClock(fixedClock(now))
	rec := domain.NewRecord(domain.PaymentContextKey("u1"), domain.TypePaymentContext, domain.PaymentContext{})
	rec.ExpireAt(now.Add(15 * time.Minute))
	require.NoError(t, s.Put(ctx, rec))

	var got domain.Record[domain.PaymentContext]
	require.NoError(t, s.Get(ctx, rec.Key(), &got))
	assert.Equal(t, now.Add(15*time.Minute).Unix(), got.TTL)

	s.SetClock(fixedClock(now.Add(16 * time.Minute)))
	assert.ErrorIs(t, s.Get(ctx, rec.Key(), &got), domain.ErrNotFound)
}

func TestUpdate_NestedSetRequiresExisting(t *testing.T) {
	s := NewStore()
	key := domain.ProfileKey("u1")

	err := s.Update(ctx, key, domain.PackageStatusUpdate(domain.StatusActive))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 0, s.Len())

	seedProfile(t, s, key, 3)
	require.NoError(t, s.Update(ctx, key, domain.PackageStatusUpdate(domain.StatusActive)))

	var got domain.Record[domain.UserProfile]
	require.NoError(t, s.Get(ctx, key, &got))
	assert.Equal(t, domain.StatusActive, got.Data.PackageStatus)
	assert.Equal(t, 3, got.Data.SpeechCount)
}

func TestUpdate_AppendAndSetIfAbsentCreateItem(t *testing.T) {
	s := NewStore()
	key := domain.ErrorKey("LEMON-WEBHOOK", "1")
	upd := func(entry string) *domain.Update {
		return domain.NewUpdate().
			Set(domain.FieldType, domain.TypeError).
			SetIfAbsent(domain.FieldCreatedAt, entry).
			Append(domain.FieldData, []map[string]string{{"error-time-" + entry: "{}"}})
	}
	require.NoError(t, s.Update(ctx, key, upd("a")))
	require.NoError(t, s.Update(ctx, key, upd("b")))

	var got domain.Record[[]map[string]string]
	require.NoError(t, s.Get(ctx, key, &got))
	assert.Equal(t, "a", got.CreatedAt)
	assert.Equal(t, []map[string]string{{"error-time-a": "{}"}, {"error-time-b": "{}"}}, got.Data)
}

func TestUpdate_ConditionalDecrement(t *testing.T) {
	s := NewStore()
	key := domain.ProfileKey("u1")
	seedProfile(t, s, key, 1)
	dec := func() *domain.Update {
		return domain.NewUpdate().Add(domain.FieldSpeechCount, -1).RequireGreaterThan(domain.FieldSpeechCount, 0)
	}

	require.NoError(t, s.Update(ctx, key, dec()))
	assert.ErrorIs(t, s.Update(ctx, key, dec()), domain.ErrConflict)

	var got domain.Record[domain.UserProfile]
	require.NoError(t, s.Get(ctx, key, &got))
	assert.Equal(t, 0, got.Data.SpeechCount)
}

func TestUpdate_FailedApplyLeavesItemUntouched(t *testing.T) {
	s := NewStore()
	key := domain.Key{PK: "u1", SK: "X"}
	u := domain.NewUpdate().Set(domain.FieldType, "x").Set(domain.FieldPackageStatus, domain.StatusActive)
	err := s.Update(ctx, key, u)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Equal(t, 0, s.Len())
}

func TestQuery_PrefixInOrder(t *testing.T) {
	s := NewStore()
	for _, ts := range []string{"2025-01-02", "2025-01-01"} {
		require.NoError(t, s.Put(ctx, domain.NewRecord(domain.ConsentKey("u1", ts), domain.TypeConsent, domain.ConsentData{Timestamp: ts})))
	}
	require.NoError(t, s.Put(ctx, domain.NewRecord(domain.ConsentKey("u2", "2025-01-03"), domain.TypeConsent, domain.ConsentData{})))

	var got []domain.Record[domain.ConsentData]
	require.NoError(t, s.Query(ctx, "u1", domain.PrefixConsent, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2025-01-01", got[0].Data.Timestamp)
	assert.Equal(t, "2025-01-02", got[1].Data.Timestamp)
}

func TestDelete_ReportsExistence(t *testing.T) {
	s := NewStore()
	key := domain.ProfileKey("u1")
	seedProfile(t, s, key, 1)

	ok, err := s.Delete(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFault_WrapsStoreError(t *testing.T) {
	s := NewStore()
	boom := errors.New("throttled")
	s.SetFault(func(op Op, key domain.Key) error {
		if op == OpPut {
			return boom
		}
		return nil
	})
	err := s.Put(ctx, domain.NewRecord(domain.ProfileKey("u1"), domain.TypeUser, domain.UserProfile{}))
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())
}
