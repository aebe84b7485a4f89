package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andefred/eldsal/app/models"
	"github.com/andefred/eldsal/app/repository"
	"github.com/andefred/eldsal/internal/pkg/cache"
	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/andefred/eldsal/internal/pkg/metrics/counter"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v81"
	"gorm.io/gorm"
)

const catalogTTL = 10 * time.Minute

// Dependencies consolidates everything the billing service talks to.
type Dependencies struct {
	Events   Repository
	Members  repository.MemberRepository
	Gateways map[fees.Flavour]Gateway
	// Cache may be nil, in which case the catalog is fetched on every call.
	Cache   *cache.Store
	Metrics *counter.Metrics
	// WebHost is the host of the member web client, used for checkout return URLs.
	WebHost string
}

// Service links members to the checkout provider and keeps their checkout
// payment records in sync.
type Service struct {
	events   Repository
	members  repository.MemberRepository
	gateways map[fees.Flavour]Gateway
	cache    *cache.Store
	metrics  *counter.Metrics
	webHost  string
}

// NewService creates a billing service from injected dependencies.
func NewService(deps Dependencies) *Service {
	return &Service{
		events:   deps.Events,
		members:  deps.Members,
		gateways: deps.Gateways,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		webHost:  deps.WebHost,
	}
}

func (s *Service) gateway(f fees.Flavour) (Gateway, error) {
	gw, ok := s.gateways[f]
	if !ok || gw == nil {
		return nil, ErrCheckoutNotConfigured
	}
	return gw, nil
}

// CreateCheckoutSession opens a subscription checkout for the member and
// remembers the session for the flavour.
func (s *Service) CreateCheckoutSession(ctx context.Context, member *models.Member, f fees.Flavour, priceID string) (*stripe.CheckoutSession, error) {
	gw, err := s.gateway(f)
	if err != nil {
		return nil, err
	}
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return nil, ErrUnknownPrice
	}
	catalog, err := s.Catalog(ctx, f)
	if err != nil {
		return nil, err
	}
	if !catalog.Has(priceID) {
		return nil, ErrUnknownPrice
	}

	link := fees.LinkFromMetadata(member.Metadata(), f)
	session, err := gw.NewCheckoutSession(ctx, CheckoutRequest{
		Subject:    member.Subject,
		PriceID:    priceID,
		CustomerID: link.CustomerID,
		Email:      member.Email,
		SuccessURL: fmt.Sprintf("https://%s/afterpurchase?flavour=%s", s.webHost, f.StorageName()),
		CancelURL:  fmt.Sprintf("https://%s/subscription", s.webHost),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	if _, err := s.members.MergeAppMetadata(member.Subject, map[string]any{fees.SessionKey(f): session.ID}, nil); err != nil {
		return nil, fmt.Errorf("store checkout session: %w", err)
	}
	return session, nil
}

// ReconcileCheckout fetches the member's last checkout session of the flavour
// and folds it into the stored billing link.
func (s *Service) ReconcileCheckout(ctx context.Context, subject string, f fees.Flavour) (fees.BillingLinkUpdate, error) {
	gw, err := s.gateway(f)
	if err != nil {
		return fees.BillingLinkUpdate{}, err
	}
	member, err := s.members.GetBySubject(subject)
	if err != nil {
		return fees.BillingLinkUpdate{}, err
	}
	link := fees.LinkFromMetadata(member.Metadata(), f)
	if link.SessionID == "" {
		return fees.BillingLinkUpdate{}, ErrNoCheckoutSession
	}

	session, err := gw.GetCheckoutSession(ctx, link.SessionID)
	if err != nil {
		return fees.BillingLinkUpdate{}, fmt.Errorf("fetch checkout session: %w", err)
	}
	return s.applySession(member, f, session)
}

func (s *Service) applySession(member *models.Member, f fees.Flavour, session *stripe.CheckoutSession) (fees.BillingLinkUpdate, error) {
	stored := fees.LinkFromMetadata(member.Metadata(), f)
	update := fees.ReconcileSession(f, stored, sessionFromStripe(session))
	s.metrics.CheckoutReconciled(f, update.Changed)
	if !update.Changed {
		return update, nil
	}
	if _, err := s.members.MergeAppMetadata(member.Subject, update.Fields(), nil); err != nil {
		return update, fmt.Errorf("store billing link: %w", err)
	}
	return update, nil
}

// Subscriptions lists the member's subscriptions per flavour. Flavours the
// member has no customer for yield an empty list.
func (s *Service) Subscriptions(ctx context.Context, member *models.Member) (map[fees.Flavour][]*stripe.Subscription, error) {
	out := make(map[fees.Flavour][]*stripe.Subscription, len(fees.Flavours))
	for _, f := range fees.Flavours {
		out[f] = []*stripe.Subscription{}
		link := fees.LinkFromMetadata(member.Metadata(), f)
		if link.CustomerID == "" {
			continue
		}
		gw, err := s.gateway(f)
		if err != nil {
			continue
		}
		subs, err := gw.ListSubscriptions(ctx, link.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("list %s subscriptions: %w", f, err)
		}
		out[f] = subs
	}
	return out, nil
}

func catalogKey(f fees.Flavour) string {
	return "billing:catalog:" + f.StorageName()
}

// Catalog returns the flavour's prices and products, cached for a few minutes.
func (s *Service) Catalog(ctx context.Context, f fees.Flavour) (Catalog, error) {
	gw, err := s.gateway(f)
	if err != nil {
		return Catalog{}, err
	}

	var catalog Catalog
	if s.cache != nil {
		ok, err := s.cache.GetJSON(ctx, catalogKey(f), &catalog)
		if err != nil {
			fiberlog.Warnf("catalog cache read failed: %v", err)
		} else if ok {
			return catalog, nil
		}
	}

	prices, err := gw.ListPrices(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list prices: %w", err)
	}
	products, err := gw.ListProducts(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list products: %w", err)
	}

	catalog = Catalog{
		Prices:   make([]Price, 0, len(prices)),
		Products: make([]Product, 0, len(products)),
	}
	for _, p := range prices {
		catalog.Prices = append(catalog.Prices, priceFromStripe(p, f.ReportingInterval()))
	}
	for _, p := range products {
		catalog.Products = append(catalog.Products, productFromStripe(p))
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, catalogKey(f), catalog, catalogTTL); err != nil {
			fiberlog.Warnf("catalog cache write failed: %v", err)
		}
	}
	return catalog, nil
}

// ApplySubscription stores the current cycle of an entitling subscription as
// the flavour's payment record of the customer's member.
func (s *Service) ApplySubscription(f fees.Flavour, sub *stripe.Subscription) (WebhookOutcome, error) {
	if sub == nil || sub.Customer == nil || sub.Customer.ID == "" {
		return WebhookIgnored, nil
	}
	if !isEntitlingStatus(sub.Status) {
		return WebhookIgnored, nil
	}

	member, err := s.members.FindByAppMetadata(fees.CustomerKey(f), sub.Customer.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return WebhookIgnored, nil
	}
	if err != nil {
		return WebhookFailed, err
	}
	return s.applySubscriptionTo(member, f, sub)
}

func (s *Service) applySubscriptionTo(member *models.Member, f fees.Flavour, sub *stripe.Subscription) (WebhookOutcome, error) {
	if !isEntitlingStatus(sub.Status) {
		return WebhookIgnored, nil
	}
	fact, err := FactFromSubscription(sub)
	if err != nil {
		return WebhookInvalidPayload, err
	}

	// Deliveries can arrive out of order; never move a checkout record backwards.
	if existing, perr := fees.ParsePayment(member.Metadata()[f.PaymentKey()]); perr == nil && existing != nil &&
		existing.Method == fees.MethodCheckout && fact.PeriodStart.Before(existing.PeriodStart) {
		return WebhookIgnored, nil
	}

	if _, err := s.members.MergeAppMetadata(member.Subject, map[string]any{f.PaymentKey(): fact.Blob()}, nil); err != nil {
		return WebhookFailed, err
	}
	return WebhookProcessed, nil
}

// recordEvent persists a delivery. Deliveries without an event ID are keyed
// by payload hash.
func (s *Service) recordEvent(in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	return s.events.RecordEvent(&models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	})
}

func (s *Service) finishEvent(f fees.Flavour, id uint, outcome WebhookOutcome, processingErr error) {
	s.metrics.WebhookEvent(f, string(outcome))
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}
	if err := s.events.FinishEvent(id, outcome, msg); err != nil {
		fiberlog.Errorf("finish webhook event %d: %v", id, err)
	}
}

// PruneWebhookEvents deletes processed deliveries older than retention.
func (s *Service) PruneWebhookEvents(retention time.Duration) (int64, error) {
	return s.events.PruneEvents(time.Now().Add(-retention))
}

// ScheduleWebhookPruning registers a daily PruneWebhookEvents run on c.
func (s *Service) ScheduleWebhookPruning(c *cron.Cron, spec string, retention time.Duration) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		n, err := s.PruneWebhookEvents(retention)
		if err != nil {
			fiberlog.Errorf("[WebhookPrune] prune failed: %v", err)
			return
		}
		fiberlog.Infof("[WebhookPrune] deleted %d processed webhook events", n)
	})
}
