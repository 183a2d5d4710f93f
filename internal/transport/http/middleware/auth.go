package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
)

type contextKey string

const IdentityKey contextKey = "identity"

// ProviderHeader names the identity provider that issued the bearer token.
const ProviderHeader = "X-Auth-Provider"

// IdentityVerifier resolves a provider token to the caller's identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// Auth returns middleware that verifies the Bearer token with the verifier
// registered for the X-Auth-Provider header and injects the identity into
// the context. Unknown providers are rejected.
func Auth(verifiers map[string]IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "missing or invalid authorization header")
				return
			}
			v, ok := verifiers[strings.ToLower(strings.TrimSpace(r.Header.Get(ProviderHeader)))]
			if !ok || v == nil {
				writeJSONError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unsupported auth provider")
				return
			}
			id, err := v.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the verified caller from the request context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*domain.Identity)
	return id, ok && id != nil
}

// WithIdentity stores id in ctx the way Auth does.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
