// Package diagnostics persists failure details to the error-audit partition
// of the table, where operators read them back by source and id.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
)

// Sources group diagnostic records under ERROR#<source>#<id>.
const (
	SourceWebhook  = "LEMON-WEBHOOK"
	SourceCheckout = "CHECKOUT"
	SourceAccount  = "ACCOUNT"
)

type updater interface {
	Update(ctx context.Context, key domain.Key, u *domain.Update) error
}

// Recorder appends timestamped entries to one error record per (source, id).
type Recorder struct {
	store updater
	log   *slog.Logger
	now   func() time.Time
}

func NewRecorder(store updater, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{store: store, log: log, now: time.Now}
}

// Record appends detail, JSON encoded, under an "error-time-<ts>" entry.
// Repeated calls for the same id extend the same record.
func (r *Recorder) Record(ctx context.Context, source, id string, detail any) error {
	ts := domain.Timestamp(r.now())
	body, err := json.Marshal(detail)
	if err != nil {
		body, _ = json.Marshal(fmt.Sprintf("%+v", detail))
	}
	entry := []map[string]string{{"error-time-" + ts: string(body)}}
	u := domain.NewUpdate().
		Set(domain.FieldType, domain.TypeError).
		SetIfAbsent(domain.FieldCreatedAt, ts).
		Append(domain.FieldData, entry)

	key := domain.ErrorKey(source, id)
	if err := r.store.Update(ctx, key, u); err != nil {
		r.log.Error("failed to persist diagnostic", "key", key.String(), "err", err)
		return fmt.Errorf("record diagnostic %s: %w", key, err)
	}
	return nil
}
