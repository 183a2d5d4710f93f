package handler

import (
	"encoding/json"
	"net/http"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/checkout"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/transport/http/middleware"
)

const maxRequestBody = 64 << 10

// CheckoutHandler opens hosted checkouts for authenticated callers.
type CheckoutHandler struct {
	svc checkout.Service
}

func NewCheckoutHandler(svc checkout.Service) *CheckoutHandler { return &CheckoutHandler{svc: svc} }

func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}
	var req checkout.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}
	url, err := h.svc.Start(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckoutEnvelope{CheckoutURL: url})
}
