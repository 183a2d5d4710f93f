// Package lemonsqueezy calls the payment provider's JSON:API endpoints for
// checkout creation and subscription cancellation.
package lemonsqueezy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/config"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
)

const mediaType = "application/vnd.api+json"

// Client is safe for concurrent use.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	storeID     string
	redirectURL string
}

func NewClient(cfg config.LemonSqueezy) *Client {
	return &Client{
		http:        &http.Client{Timeout: 15 * time.Second},
		baseURL:     strings.TrimRight(cfg.APIURL, "/"),
		apiKey:      cfg.APIKey,
		storeID:     cfg.StoreID,
		redirectURL: cfg.RedirectURL,
	}
}

// APIError is a non-2xx provider response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lemonsqueezy: status %d: %s", e.Status, e.Detail)
}

type relation struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

func rel(typ, id string) relation {
	var r relation
	r.Data.Type = typ
	r.Data.ID = id
	return r
}

type checkoutRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			CheckoutData struct {
				Email  string            `json:"email,omitempty"`
				Name   string            `json:"name,omitempty"`
				Custom map[string]string `json:"custom"`
			} `json:"checkout_data"`
			ProductOptions struct {
				RedirectURL string `json:"redirect_url,omitempty"`
			} `json:"product_options"`
		} `json:"attributes"`
		Relationships struct {
			Store   relation `json:"store"`
			Variant relation `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

type checkoutResponse struct {
	Data struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateCheckout opens a hosted checkout for user. The custom data
// {key, productId} is echoed back on every webhook of the resulting order
// or subscription.
func (c *Client) CreateCheckout(ctx context.Context, userKey string, user domain.CheckoutUser) (string, error) {
	var req checkoutRequest
	req.Data.Type = "checkouts"
	req.Data.Attributes.CheckoutData.Email = user.Email
	req.Data.Attributes.CheckoutData.Name = user.Name
	req.Data.Attributes.CheckoutData.Custom = map[string]string{
		"key":       userKey,
		"productId": user.ProductID.String(),
	}
	req.Data.Attributes.ProductOptions.RedirectURL = c.redirectURL
	req.Data.Relationships.Store = rel("stores", c.storeID)
	req.Data.Relationships.Variant = rel("variants", user.ProductID.String())

	var out checkoutResponse
	if err := c.do(ctx, http.MethodPost, "/v1/checkouts", req, &out); err != nil {
		return "", err
	}
	if out.Data.Attributes.URL == "" {
		return "", fmt.Errorf("lemonsqueezy: checkout response without url")
	}
	return out.Data.Attributes.URL, nil
}

// CancelSubscription cancels at period end; the provider later sends
// subscription_cancelled.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("lemonsqueezy: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("lemonsqueezy: build request: %w", err)
	}
	req.Header.Set("Accept", mediaType)
	req.Header.Set("Content-Type", mediaType)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lemonsqueezy: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("lemonsqueezy: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Detail: errorDetail(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("lemonsqueezy: decode response: %w", err)
	}
	return nil
}

// errorDetail pulls the first JSON:API error detail, falling back to the
// raw body.
func errorDetail(raw []byte) string {
	var e struct {
		Errors []struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		} `json:"errors"`
	}
	if json.Unmarshal(raw, &e) == nil && len(e.Errors) > 0 {
		if e.Errors[0].Detail != "" {
			return e.Errors[0].Detail
		}
		return e.Errors[0].Title
	}
	return strings.TrimSpace(string(raw))
}
