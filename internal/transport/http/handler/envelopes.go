package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// WebhookEnvelope acknowledges a processed webhook.
type WebhookEnvelope struct {
	Message string `json:"message"`
	Outcome string `json:"outcome"`
	Status  string `json:"status,omitempty"`
}

// CheckoutEnvelope carries the hosted checkout URL.
type CheckoutEnvelope struct {
	CheckoutURL string `json:"checkoutUrl"`
}

var codeStatus = map[string]int{
	domain.CodeUnauthorized:        http.StatusUnauthorized,
	domain.CodeSignatureMissing:    http.StatusBadRequest,
	domain.CodeSignatureMismatch:   http.StatusUnauthorized,
	domain.CodeSecretNotConfigured: http.StatusInternalServerError,
	domain.CodeUserNotFound:        http.StatusNotFound,
	domain.CodePaymentRequired:     http.StatusPaymentRequired,
	domain.CodeValidation:          http.StatusBadRequest,
	domain.CodeCorrelationTimeout:  http.StatusInternalServerError,
	domain.CodeStore:               http.StatusInternalServerError,
	domain.CodeServer:              http.StatusInternalServerError,
	domain.CodeMethodNotAllowed:    http.StatusMethodNotAllowed,
	domain.CodeTooManyRequests:     http.StatusTooManyRequests,
}

// classify maps err to an HTTP status and diagnostic code. An explicit code
// wins; otherwise the wrapped sentinel decides.
func classify(err error) (int, string) {
	if code := domain.CodeOf(err); code != "" {
		if status, ok := codeStatus[code]; ok {
			return status, code
		}
	}
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, domain.CodeValidation
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, domain.CodeUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.CodeUserNotFound
	case errors.Is(err, domain.ErrPaymentRequired):
		return http.StatusPaymentRequired, domain.CodePaymentRequired
	case errors.Is(err, domain.ErrCorrelationTimeout):
		return http.StatusInternalServerError, domain.CodeCorrelationTimeout
	case errors.Is(err, domain.ErrStore):
		return http.StatusInternalServerError, domain.CodeStore
	default:
		return http.StatusInternalServerError, domain.CodeServer
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: code})
}

// writeDomainError hides the detail of server-side failures; they are logged
// and recorded by the caller.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeError(w, status, code, msg)
}
