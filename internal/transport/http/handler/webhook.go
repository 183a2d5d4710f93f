package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/diagnostics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/lifecycle"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/metrics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/signature"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// MaxWebhookBody caps the accepted webhook body at 1 MiB.
const MaxWebhookBody = 1 << 20

const noJobID = "NO_JOB_ID"

type bodyVerifier interface {
	Verify(body []byte, header string) error
}

type eventProcessor interface {
	Process(ctx context.Context, ev *lifecycle.Event) (*lifecycle.Result, error)
}

// PayloadArchive stores verified webhook bodies.
type PayloadArchive interface {
	Put(ctx context.Context, body []byte) (string, error)
}

type errorRecorder interface {
	Record(ctx context.Context, source, id string, detail any) error
}

// WebhookHandler receives payment provider webhooks.
type WebhookHandler struct {
	verifier bodyVerifier
	engine   eventProcessor
	archive  PayloadArchive
	diag     errorRecorder
	log      *slog.Logger
}

// NewWebhookHandler wires the handler. archive and diag may be nil.
func NewWebhookHandler(v bodyVerifier, engine eventProcessor, archive PayloadArchive, diag errorRecorder, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{verifier: v, engine: engine, archive: archive, diag: diag, log: log}
}

// LemonSqueezy verifies, decodes and reconciles one webhook delivery. Every
// failure is persisted as a diagnostic record before the error response.
func (h *WebhookHandler) LemonSqueezy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chimiddleware.GetReqID(ctx)
	if jobID == "" {
		jobID = noJobID
	}
	defer func() {
		if p := recover(); p != nil {
			h.log.Error("webhook handler panic", "request_id", jobID, "panic", p)
			h.record(ctx, jobID, "Handler/Try-Catch", fmt.Sprint(p))
			writeError(w, http.StatusInternalServerError, domain.CodeServer, http.StatusText(http.StatusInternalServerError))
		}
	}()

	body, err := readWebhookBody(w, r)
	if err != nil {
		h.record(ctx, jobID, "unreadable webhook body", err.Error())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, domain.CodeValidation, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, domain.CodeValidation, err.Error())
		return
	}

	if err := h.verifier.Verify(body, r.Header.Get(signature.Header)); err != nil {
		code := domain.CodeOf(err)
		metrics.SignatureFailuresTotal.WithLabelValues(code).Inc()
		h.log.Warn("webhook signature rejected", "request_id", jobID, "code", code)
		h.record(ctx, jobID, "signature rejected", err.Error())
		writeDomainError(w, err)
		return
	}

	ev, err := lifecycle.DecodeEvent(body)
	if err != nil {
		h.log.Warn("webhook payload rejected", "request_id", jobID, "error", err)
		h.record(ctx, jobID, "invalid payload", err.Error())
		writeDomainError(w, err)
		return
	}

	if h.archive != nil {
		if key, err := h.archive.Put(ctx, body); err != nil {
			h.log.Warn("archive webhook payload", "request_id", jobID, "error", err)
		} else {
			h.log.Debug("webhook payload archived", "request_id", jobID, "key", key)
		}
	}

	res, err := h.engine.Process(ctx, ev)
	if err != nil {
		h.log.Error("webhook processing failed", "request_id", jobID, "event", ev.Name, "error", err)
		h.record(ctx, jobID, "Issue saving package to DB", map[string]any{
			"event":   string(ev.Name),
			"userKey": ev.UserKey,
			"error":   err.Error(),
		})
		writeDomainError(w, err)
		return
	}

	h.log.Info("webhook processed", "request_id", jobID, "event", ev.Name, "outcome", res.Outcome, "status", res.Status)
	writeJSON(w, http.StatusOK, WebhookEnvelope{
		Message: "Success: Saved to DB",
		Outcome: string(res.Outcome),
		Status:  string(res.Status),
	})
}

func (h *WebhookHandler) record(ctx context.Context, id, message string, detail any) {
	if h.diag == nil {
		return
	}
	err := h.diag.Record(context.WithoutCancel(ctx), diagnostics.SourceWebhook, id, map[string]any{
		"message": message,
		"error":   detail,
	})
	if err != nil {
		h.log.Error("record webhook diagnostic", "id", id, "error", err)
	}
}

// readWebhookBody reads at most MaxWebhookBody bytes and undoes a base64
// transfer encoding when a gateway applied one.
func readWebhookBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBody))
	if err != nil {
		return nil, err
	}
	if !isBase64(r.Header) {
		return raw, nil
	}
	body, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode base64 body: %w", err)
	}
	return body, nil
}

func isBase64(h http.Header) bool {
	return strings.EqualFold(h.Get("X-Body-Encoding"), "base64") ||
		strings.EqualFold(h.Get("Content-Transfer-Encoding"), "base64")
}
