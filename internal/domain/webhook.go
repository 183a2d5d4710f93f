package domain

import (
	"encoding/json"
	"fmt"
)

// EventName is the provider's webhook event type.
type EventName string

const (
	EventOrderCreated               EventName = "order_created"
	EventSubscriptionCreated        EventName = "subscription_created"
	EventSubscriptionPaymentSuccess EventName = "subscription_payment_success"
	EventSubscriptionPaymentFailed  EventName = "subscription_payment_failed"
	EventSubscriptionExpired        EventName = "subscription_expired"
	EventSubscriptionCancelled      EventName = "subscription_cancelled"
)

// FlexString decodes a JSON string or number into its string form; the
// provider sends ids as numbers and custom data as strings.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// WebhookPayload is the subset of the provider envelope the engine reads.
type WebhookPayload struct {
	Meta *WebhookMeta `json:"meta" validate:"required"`
	Data *WebhookData `json:"data" validate:"required"`
}

type WebhookMeta struct {
	EventName  string      `json:"event_name" validate:"required"`
	CustomData *CustomData `json:"custom_data" validate:"required"`
}

// CustomData is echoed back by the provider on every event of a checkout.
type CustomData struct {
	ProductID FlexString `json:"productId" validate:"required"`
	Key       string     `json:"key" validate:"required"`
}

type WebhookData struct {
	Attributes *WebhookAttributes `json:"attributes" validate:"required"`
}

type WebhookAttributes struct {
	SubscriptionID        FlexString             `json:"subscription_id"`
	FirstSubscriptionItem *FirstSubscriptionItem `json:"first_subscription_item"`
	FirstOrderItem        *FirstOrderItem        `json:"first_order_item"`
	Status                string                 `json:"status"`
}

type FirstSubscriptionItem struct {
	SubscriptionID FlexString `json:"subscription_id"`
}

type FirstOrderItem struct {
	ID FlexString `json:"id"`
}

// ItemSubscriptionID is the id carried by created/expired/cancelled events.
func (a *WebhookAttributes) ItemSubscriptionID() string {
	if a == nil || a.FirstSubscriptionItem == nil {
		return ""
	}
	return a.FirstSubscriptionItem.SubscriptionID.String()
}

// OrderItemID is the id carried by one-time orders.
func (a *WebhookAttributes) OrderItemID() string {
	if a == nil || a.FirstOrderItem == nil {
		return ""
	}
	return a.FirstOrderItem.ID.String()
}

// PaymentSubscriptionID is the id carried by payment success/failed events.
func (a *WebhookAttributes) PaymentSubscriptionID() string {
	if a == nil {
		return ""
	}
	return a.SubscriptionID.String()
}
