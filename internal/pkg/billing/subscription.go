package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/stripe/stripe-go/v81"
)

func isEntitlingStatus(status stripe.SubscriptionStatus) bool {
	switch strings.ToLower(strings.TrimSpace(string(status))) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}

func normalizeInterval(interval stripe.PriceRecurringInterval) (fees.Interval, bool) {
	i := fees.Interval(strings.ToLower(strings.TrimSpace(string(interval))))
	return i, i.Valid()
}

// FactFromSubscription turns the current billing cycle of a subscription into
// a checkout payment fact. Only the first item is considered.
func FactFromSubscription(sub *stripe.Subscription) (*fees.PaymentFact, error) {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, errors.New("subscription has no items")
	}
	item := sub.Items.Data[0]
	if item.Price == nil || item.Price.Recurring == nil {
		return nil, errors.New("subscription item has no recurring price")
	}
	price := item.Price

	interval, ok := normalizeInterval(price.Recurring.Interval)
	if !ok {
		return nil, fmt.Errorf("%w: %s", fees.ErrInvalidInterval, price.Recurring.Interval)
	}
	count := price.Recurring.IntervalCount
	if count <= 0 {
		count = 1
	}
	if sub.CurrentPeriodStart <= 0 {
		return nil, fees.ErrInvalidPeriodStart
	}
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	currency := strings.ToUpper(string(price.Currency))
	if currency == "" {
		return nil, fees.ErrMissingCurrency
	}

	return &fees.PaymentFact{
		Method:        fees.MethodCheckout,
		PeriodStart:   fees.DateOf(time.Unix(sub.CurrentPeriodStart, 0)),
		Interval:      interval,
		IntervalCount: int(count),
		Amount:        price.UnitAmount * quantity,
		Currency:      currency,
	}, nil
}

// priceFromStripe maps a recurring price and normalizes its amount to target.
// One-off prices keep a nil normalized amount.
func priceFromStripe(p *stripe.Price, target fees.Interval) Price {
	out := Price{
		ID:                 p.ID,
		Nickname:           p.Nickname,
		Active:             p.Active,
		UnitAmount:         p.UnitAmount,
		Currency:           strings.ToUpper(string(p.Currency)),
		NormalizedInterval: target,
	}
	if p.Product != nil {
		out.ProductID = p.Product.ID
	}
	if p.Recurring == nil {
		return out
	}
	out.Interval = string(p.Recurring.Interval)
	out.IntervalCount = p.Recurring.IntervalCount

	if interval, ok := normalizeInterval(p.Recurring.Interval); ok {
		if v, err := fees.Normalize(p.UnitAmount, interval, int(p.Recurring.IntervalCount), target); err == nil {
			out.NormalizedAmount = &v
		}
	}
	return out
}

func productFromStripe(p *stripe.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
	}
}

func sessionFromStripe(s *stripe.CheckoutSession) fees.CheckoutSession {
	out := fees.CheckoutSession{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out
}
