package billing

import (
	"errors"

	"github.com/andefred/eldsal/internal/pkg/fees"
)

var (
	ErrCheckoutNotConfigured = errors.New("checkout is not configured for this fee")
	ErrNoCheckoutSession     = errors.New("no checkout session stored for this fee")
	ErrUnknownPrice          = errors.New("unknown price")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
)

// ProviderName is the webhook event provider of a flavour's checkout account.
// Event IDs are only unique within one account.
func ProviderName(f fees.Flavour) string {
	return "stripe_" + f.StorageName()
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// WebhookOutcome tells the caller how a webhook delivery was handled.
type WebhookOutcome string

const (
	WebhookProcessed        WebhookOutcome = "processed"
	WebhookDuplicate        WebhookOutcome = "duplicate"
	WebhookIgnored          WebhookOutcome = "ignored"
	WebhookInvalidSignature WebhookOutcome = "invalid_signature"
	WebhookInvalidPayload   WebhookOutcome = "invalid_payload"
	WebhookFailed           WebhookOutcome = "failed"
)

// CheckoutRequest describes a subscription checkout session to open.
type CheckoutRequest struct {
	Subject string
	PriceID string
	// CustomerID reuses an existing customer; Email is used when it is empty.
	CustomerID string
	Email      string
	SuccessURL string
	CancelURL  string
}

// Product is a catalog product as served to the member client.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// Price is a recurring catalog price with its amount normalized to the
// flavour's reporting interval.
type Price struct {
	ID                 string        `json:"id"`
	ProductID          string        `json:"product"`
	Nickname           string        `json:"nickname"`
	Active             bool          `json:"active"`
	UnitAmount         int64         `json:"unit_amount"`
	Currency           string        `json:"currency"`
	Interval           string        `json:"interval"`
	IntervalCount      int64         `json:"interval_count"`
	NormalizedAmount   *float64      `json:"normalized_amount"`
	NormalizedInterval fees.Interval `json:"normalized_interval"`
}

// Catalog lists the prices and products of one checkout account.
type Catalog struct {
	Prices   []Price   `json:"prices"`
	Products []Product `json:"products"`
}

// Has reports whether priceID is an active price in the catalog.
func (c Catalog) Has(priceID string) bool {
	for _, p := range c.Prices {
		if p.ID == priceID && p.Active {
			return true
		}
	}
	return false
}
