package lifecycle

import (
	"encoding/json"
	"fmt"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/validate"
)

// Outcome classifies how an event was handled. Every outcome maps to a 200
// response; failures are reported as errors instead.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeDeferred Outcome = "deferred"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeUnknown  Outcome = "unknown"
)

// Event is a verified webhook reduced to what the engine acts on.
type Event struct {
	Name       domain.EventName
	ProductID  domain.ProductID
	UserKey    string
	Attributes *domain.WebhookAttributes
	// Payload is the full provider body, stored as paymentInfo.
	Payload map[string]any
}

// Result reports the handled outcome and the package status it produced.
type Result struct {
	Outcome Outcome
	Status  domain.PackageStatus
	UserKey string
	Message string
}

// DecodeEvent parses and validates a raw webhook body. Failures wrap
// domain.ErrBadRequest and carry the VALIDATION_ERROR code.
func DecodeEvent(body []byte) (*Event, error) {
	const op = "lifecycle.DecodeEvent"
	var p domain.WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.NewError(domain.CodeValidation, op, fmt.Errorf("malformed payload: %v: %w", err, domain.ErrBadRequest))
	}
	if err := validate.Struct(&p); err != nil {
		return nil, domain.NewError(domain.CodeValidation, op, err)
	}
	pid, err := domain.ParseProductID(p.Meta.CustomData.ProductID.String())
	if err != nil {
		return nil, domain.NewError(domain.CodeValidation, op, fmt.Errorf("productId %q: %w", p.Meta.CustomData.ProductID, domain.ErrBadRequest))
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, domain.NewError(domain.CodeValidation, op, fmt.Errorf("malformed payload: %v: %w", err, domain.ErrBadRequest))
	}
	return &Event{
		Name:       domain.EventName(p.Meta.EventName),
		ProductID:  pid,
		UserKey:    p.Meta.CustomData.Key,
		Attributes: p.Data.Attributes,
		Payload:    raw,
	}, nil
}

func missingID(ev *Event, field string) error {
	return domain.NewError(domain.CodeValidation, "lifecycle.Process",
		fmt.Errorf("%s missing in %s: %w", field, ev.Name, domain.ErrBadRequest))
}
