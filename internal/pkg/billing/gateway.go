package billing

import (
	"context"

	"github.com/andefred/eldsal/internal/pkg/config"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Gateway is the checkout provider account of one fee flavour.
type Gateway interface {
	NewCheckoutSession(ctx context.Context, req CheckoutRequest) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
	ListPrices(ctx context.Context) ([]*stripe.Price, error)
	ListProducts(ctx context.Context) ([]*stripe.Product, error)
	// ConstructEvent verifies the signature header and decodes the event.
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

const listLimit = 100

type stripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a gateway for one checkout account.
func NewStripeGateway(account config.StripeAccount) Gateway {
	return &stripeGateway{
		api:           client.New(account.SecretKey, nil),
		webhookSecret: account.WebhookSecret,
	}
}

func (g *stripeGateway) NewCheckoutSession(ctx context.Context, req CheckoutRequest) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ClientReferenceID:  stripe.String(req.Subject),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	return g.api.CheckoutSessions.New(params)
}

func (g *stripeGateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return g.api.CheckoutSessions.Get(id, &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}})
}

func (g *stripeGateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	return g.api.Subscriptions.Get(id, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
}

func (g *stripeGateway) ListSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(customerID),
		Status:     stripe.String("all"),
	}
	params.Limit = stripe.Int64(listLimit)

	var subs []*stripe.Subscription
	it := g.api.Subscriptions.List(params)
	for it.Next() {
		subs = append(subs, it.Subscription())
	}
	return subs, it.Err()
}

func (g *stripeGateway) ListPrices(ctx context.Context) ([]*stripe.Price, error) {
	params := &stripe.PriceListParams{ListParams: stripe.ListParams{Context: ctx}}
	params.Limit = stripe.Int64(listLimit)

	var prices []*stripe.Price
	it := g.api.Prices.List(params)
	for it.Next() {
		prices = append(prices, it.Price())
	}
	return prices, it.Err()
}

func (g *stripeGateway) ListProducts(ctx context.Context) ([]*stripe.Product, error) {
	params := &stripe.ProductListParams{ListParams: stripe.ListParams{Context: ctx}}
	params.Limit = stripe.Int64(listLimit)

	var products []*stripe.Product
	it := g.api.Products.List(params)
	for it.Next() {
		products = append(products, it.Product())
	}
	return products, it.Err()
}

func (g *stripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
