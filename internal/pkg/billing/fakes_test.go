package billing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/andefred/eldsal/app/models"
	"github.com/andefred/eldsal/app/repository"
	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/stripe/stripe-go/v81"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeMembers struct {
	mu         sync.Mutex
	members    map[string]*models.Member
	merges     int
	// failMerges makes the next MergeAppMetadata calls fail.
	failMerges int
}

var _ repository.MemberRepository = (*fakeMembers)(nil)

func newFakeMembers(members ...*models.Member) *fakeMembers {
	f := &fakeMembers{members: map[string]*models.Member{}}
	for _, m := range members {
		f.members[m.Subject] = m
	}
	return f
}

func (f *fakeMembers) GetBySubject(subject string) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[subject]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembers) Provision(member *models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[member.Subject] = member
	return nil
}

func (f *fakeMembers) ListByConnection(connection string) ([]models.Member, error) {
	return nil, nil
}

func (f *fakeMembers) UpdateProfile(subject string, update *models.ProfileUpdate) (*models.Member, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMembers) MergeAppMetadata(subject string, set map[string]any, unset []string) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMerges > 0 {
		f.failMerges--
		return nil, errors.New("db down")
	}
	m, ok := f.members[subject]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	merged := datatypes.JSONMap{}
	for k, v := range m.AppMetadata {
		merged[k] = v
	}
	for _, k := range unset {
		delete(merged, k)
	}
	for k, v := range set {
		merged[k] = v
	}
	m.AppMetadata = merged
	f.merges++
	cp := *m
	return &cp, nil
}

func (f *fakeMembers) FindByAppMetadata(key, value string) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if s, _ := m.AppMetadata[key].(string); s == value {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeEvents struct {
	mu        sync.Mutex
	events    []*models.BillingWebhookEvent
	processed map[uint]string
	outcomes  map[uint]WebhookOutcome
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{processed: map[uint]string{}, outcomes: map[uint]WebhookOutcome{}}
}

func (f *fakeEvents) RecordEvent(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Provider == event.Provider && e.ProviderEventID == event.ProviderEventID {
			return false, e, nil
		}
	}
	event.ID = uint(len(f.events) + 1)
	f.events = append(f.events, event)
	return true, event, nil
}

func (f *fakeEvents) FinishEvent(id uint, outcome WebhookOutcome, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[id] = processingError
	f.outcomes[id] = outcome
	now := time.Now().UTC()
	for _, e := range f.events {
		if e.ID == id {
			e.Outcome, e.ProcessingError, e.ProcessedAt = string(outcome), processingError, &now
		}
	}
	return nil
}

func (f *fakeEvents) PruneEvents(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.events[:0]
	var n int64
	for _, e := range f.events {
		if _, done := f.processed[e.ID]; done && e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return n, nil
}

const validSignature = "t=1,v1=ok"

type fakeGateway struct {
	sessions      map[string]*stripe.CheckoutSession
	created       []CheckoutRequest
	subscriptions map[string][]*stripe.Subscription
	byID          map[string]*stripe.Subscription
	prices        []*stripe.Price
	products      []*stripe.Product
	priceCalls    int
}

func (g *fakeGateway) NewCheckoutSession(ctx context.Context, req CheckoutRequest) (*stripe.CheckoutSession, error) {
	g.created = append(g.created, req)
	return &stripe.CheckoutSession{ID: "cs_new"}, nil
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	s, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	return s, nil
}

func (g *fakeGateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	sub, ok := g.byID[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func (g *fakeGateway) ListSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	return g.subscriptions[customerID], nil
}

func (g *fakeGateway) ListPrices(ctx context.Context) ([]*stripe.Price, error) {
	g.priceCalls++
	return g.prices, nil
}

func (g *fakeGateway) ListProducts(ctx context.Context) ([]*stripe.Product, error) {
	return g.products, nil
}

func (g *fakeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	var event stripe.Event
	if signature != validSignature {
		return event, errors.New("signature mismatch")
	}
	err := json.Unmarshal(payload, &event)
	return event, err
}

func newTestService(members *fakeMembers, gw *fakeGateway) (*Service, *fakeEvents) {
	events := newFakeEvents()
	return NewService(Dependencies{
		Events:   events,
		Members:  members,
		Gateways: map[fees.Flavour]Gateway{fees.FlavourMembership: gw},
		WebHost:  "local.eldsal.se",
	}), events
}
