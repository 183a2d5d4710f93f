package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/diagnostics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/config"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/memory"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/identity"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/signature"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	webhookSecret = "whsec-test"
	hashSecret    = "sub-secret"
	googleSub     = "google-sub-1"
	goodToken     = "good-token"
	oneTime20     = domain.ProductID(1030020)
	monthly       = domain.ProductID(1030016)
)

// --- mocks ---

type mockProvider struct{ mock.Mock }

func (m *mockProvider) CreateCheckout(ctx context.Context, userKey string, user domain.CheckoutUser) (string, error) {
	args := m.Called(ctx, userKey, user)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

type stubIdentities struct{}

func (stubIdentities) Verify(_ context.Context, token string) (*domain.Identity, error) {
	if token != goodToken {
		return nil, fmt.Errorf("bad token: %w", domain.ErrUnauthorized)
	}
	return &domain.Identity{Provider: "google", Subject: googleSub, Email: "ada@example.com", Name: "Ada"}, nil
}

// --- helpers ---

type testServer struct {
	store    *memory.Store
	provider *mockProvider
	handler  http.Handler
	userKey  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hasher := identity.NewHasher(hashSecret)
	key, err := hasher.UserKey("google", googleSub)
	require.NoError(t, err)

	ts := &testServer{store: memory.NewStore(), provider: &mockProvider{}, userKey: key}
	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		Correlation: config.Correlation{
			PollIntervals:   []time.Duration{time.Millisecond},
			FreshnessWindow: 10 * time.Minute,
			TempRecordTTL:   15 * time.Minute,
		},
	}
	ts.handler = NewRouter(ctx, cfg, &Deps{
		Store:      ts.store,
		Provider:   ts.provider,
		Webhooks:   signature.NewVerifier(webhookSecret),
		Hasher:     hasher,
		Identities: map[string]middleware.IdentityVerifier{"google": stubIdentities{}},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return ts
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) seedContext(t *testing.T, pid domain.ProductID) {
	t.Helper()
	rec := domain.NewRecord(domain.PaymentContextKey(ts.userKey), domain.TypePaymentContext, domain.PaymentContext{
		UserData: domain.CheckoutUser{
			Sub:                   googleSub,
			Email:                 "ada@example.com",
			Name:                  "Ada",
			AuthProvider:          "google",
			ProductID:             pid,
			AgreedToTerms:         true,
			TermsConditionVersion: "v3",
			PrivacyPolicyVersion:  "v2",
		},
	})
	rec.ExpireAt(time.Now().Add(15 * time.Minute))
	require.NoError(t, ts.store.Put(context.Background(), rec))
}

func (ts *testServer) profile(t *testing.T) (domain.UserProfile, bool) {
	t.Helper()
	var rec domain.Record[domain.UserProfile]
	err := ts.store.Get(context.Background(), domain.ProfileKey(ts.userKey), &rec)
	if err != nil {
		require.ErrorIs(t, err, domain.ErrNotFound)
		return domain.UserProfile{}, false
	}
	return rec.Data, true
}

func webhookBody(name domain.EventName, pid domain.ProductID, key string) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": %q, "custom_data": {"productId": "%d", "key": %q}},
		"data": {"id": "1", "attributes": {
			"status": "active",
			"subscription_id": 5501,
			"first_subscription_item": {"subscription_id": 5501},
			"first_order_item": {"id": 7701}
		}}
	}`, name, pid, key))
}

func signedWebhook(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/lemonsqueezy", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set(signature.Header, signature.Sign([]byte(webhookSecret), body))
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func (ts *testServer) hasDiagnostic(t *testing.T, id string) bool {
	t.Helper()
	var rec domain.Item
	err := ts.store.Get(context.Background(), domain.ErrorKey(diagnostics.SourceWebhook, id), &rec)
	return err == nil && rec.Type == domain.TypeError
}

func authed(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+goodToken)
	req.Header.Set(middleware.ProviderHeader, "google")
	return req
}

// --- webhook ---

func TestWebhook_OrderCreated_ActivatesOneTimePackage(t *testing.T) {
	ts := newTestServer(t)
	ts.seedContext(t, oneTime20)

	rr := ts.serve(signedWebhook(webhookBody(domain.EventOrderCreated, oneTime20, ts.userKey)))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, "created", body["outcome"])
	assert.Equal(t, string(domain.StatusActive), body["status"])

	p, ok := ts.profile(t)
	require.True(t, ok)
	assert.Equal(t, domain.StatusActive, p.PackageStatus)
	assert.Equal(t, 20, p.SpeechCount)
}

func TestWebhook_PaymentSuccessBeforeProfile_Deferred(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.serve(signedWebhook(webhookBody(domain.EventSubscriptionPaymentSuccess, monthly, ts.userKey)))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "deferred", decode(t, rr)["outcome"])
	_, ok := ts.profile(t)
	assert.False(t, ok)

	var pending domain.Record[domain.ProfileUpdateIntent]
	require.NoError(t, ts.store.Get(context.Background(), domain.ProfileUpdateKey(ts.userKey), &pending))
	assert.Equal(t, domain.StatusActive, pending.Data.PackageStatus)
}

func TestWebhook_Base64Body(t *testing.T) {
	ts := newTestServer(t)
	ts.seedContext(t, oneTime20)
	body := webhookBody(domain.EventOrderCreated, oneTime20, ts.userKey)

	req := signedWebhook(body)
	req.Body = io.NopCloser(strings.NewReader(base64.StdEncoding.EncodeToString(body)))
	req.Header.Set("X-Body-Encoding", "base64")

	rr := ts.serve(req)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestWebhook_BadSignature(t *testing.T) {
	ts := newTestServer(t)
	req := signedWebhook(webhookBody(domain.EventOrderCreated, oneTime20, ts.userKey))
	req.Header.Set(signature.Header, strings.Repeat("ab", 32))

	rr := ts.serve(req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, domain.CodeSignatureMismatch, decode(t, rr)["errorCode"])
	assert.True(t, ts.hasDiagnostic(t, "req-1"))
	_, ok := ts.profile(t)
	assert.False(t, ok)
}

func TestWebhook_MissingSignature(t *testing.T) {
	ts := newTestServer(t)
	req := signedWebhook(webhookBody(domain.EventOrderCreated, oneTime20, ts.userKey))
	req.Header.Del(signature.Header)

	rr := ts.serve(req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.CodeSignatureMissing, decode(t, rr)["errorCode"])
}

func TestWebhook_InvalidPayload(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.serve(signedWebhook([]byte(`{"meta": {"event_name": "order_created"}}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.CodeValidation, decode(t, rr)["errorCode"])
	assert.True(t, ts.hasDiagnostic(t, "req-1"))
}

func TestWebhook_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t)
	body := bytes.Repeat([]byte("a"), 1<<20+1)

	rr := ts.serve(signedWebhook(body))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestWebhook_CorrelationTimeout_Returns500(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.serve(signedWebhook(webhookBody(domain.EventOrderCreated, oneTime20, ts.userKey)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, domain.CodeCorrelationTimeout, decode(t, rr)["errorCode"])
	assert.True(t, ts.hasDiagnostic(t, "req-1"))
}

func TestWebhook_WrongMethod(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/v1/webhooks/lemonsqueezy", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, domain.CodeMethodNotAllowed, decode(t, rr)["errorCode"])
}

// --- authenticated routes ---

func TestCheckout_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout", strings.NewReader(`{}`))

	rr := ts.serve(req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	ts.provider.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_ReturnsURLAndParksContext(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.On("CreateCheckout", mock.Anything, ts.userKey, mock.MatchedBy(func(u domain.CheckoutUser) bool {
		return u.Sub == googleSub && u.ProductID == oneTime20
	})).Return("https://pay.example/checkout/1", nil)

	req := authed(http.MethodPost, "/v1/checkout")
	req.Body = io.NopCloser(strings.NewReader(`{"productId": 1030020, "acknowledged": true,
		"termsConditionVersion": "v3", "privacyPolicyVersion": "v2"}`))

	rr := ts.serve(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "https://pay.example/checkout/1", decode(t, rr)["checkoutUrl"])
	var parked domain.Record[domain.PaymentContext]
	require.NoError(t, ts.store.Get(context.Background(), domain.PaymentContextKey(ts.userKey), &parked))
	assert.Equal(t, oneTime20, parked.Data.UserData.ProductID)
	ts.provider.AssertExpectations(t)
}

func TestCheckout_UnknownProduct(t *testing.T) {
	ts := newTestServer(t)
	req := authed(http.MethodPost, "/v1/checkout")
	req.Body = io.NopCloser(strings.NewReader(`{"productId": 42, "acknowledged": true,
		"termsConditionVersion": "v3", "privacyPolicyVersion": "v2"}`))

	rr := ts.serve(req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.CodeValidation, decode(t, rr)["errorCode"])
}

func TestStatusAndUsage_AfterPurchase(t *testing.T) {
	ts := newTestServer(t)
	ts.seedContext(t, oneTime20)
	require.Equal(t, http.StatusOK, ts.serve(signedWebhook(webhookBody(domain.EventOrderCreated, oneTime20, ts.userKey))).Code)

	rr := ts.serve(authed(http.MethodGet, "/v1/subscription-status"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	status := decode(t, rr)
	assert.Equal(t, string(domain.StatusActive), status["packageStatus"])
	assert.EqualValues(t, 20, status["speechCount"])

	rr = ts.serve(authed(http.MethodPost, "/v1/speech-usage"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 19, decode(t, rr)["speechCount"])
}

func TestStatus_NoProfile(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.serve(authed(http.MethodGet, "/v1/subscription-status"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, domain.CodeUserNotFound, decode(t, rr)["errorCode"])
}

// --- public ---

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", decode(t, rr)["message"])

	rr = ts.serve(httptest.NewRequest(http.MethodGet, "/v1/health-check/other", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.serve(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))

	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "speechgen_http_requests_total")
}
