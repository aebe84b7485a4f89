package billing

import (
	"context"
	"testing"
	"time"

	"github.com/andefred/eldsal/app/models"
	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"gorm.io/datatypes"
)

const checkoutCompletedEvent = `{
	"id": "evt_checkout",
	"object": "event",
	"type": "checkout.session.completed",
	"data": {"object": {
		"id": "cs_1",
		"object": "checkout.session",
		"client_reference_id": "auth0|1",
		"customer": "cus_1",
		"payment_status": "paid"
	}}
}`

const subscriptionUpdatedEvent = `{
	"id": "evt_sub",
	"object": "event",
	"type": "customer.subscription.updated",
	"data": {"object": {
		"id": "sub_1",
		"object": "subscription",
		"customer": "cus_1",
		"status": "active",
		"current_period_start": 1718409600,
		"items": {"object": "list", "data": [{
			"id": "si_1",
			"quantity": 1,
			"price": {
				"id": "price_year",
				"currency": "sek",
				"unit_amount": 50000,
				"recurring": {"interval": "year", "interval_count": 1}
			}
		}]}
	}}
}`

func TestHandleWebhookCheckoutCompleted(t *testing.T) {
	members := newFakeMembers(&models.Member{Subject: "auth0|1"})
	svc, events := newTestService(members, &fakeGateway{})

	outcome, err := svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)

	stored, _ := members.GetBySubject("auth0|1")
	assert.Equal(t, "cus_1", stored.AppMetadata["stripe_customer_membfee"])
	assert.Equal(t, "paid", stored.AppMetadata["stripe_status_membfee"])
	assert.Equal(t, "cs_1", stored.AppMetadata["stripe_session_membfee"])

	require.Len(t, events.events, 1)
	assert.Equal(t, "stripe_membfee", events.events[0].Provider)
	assert.Equal(t, "evt_checkout", events.events[0].ProviderEventID)
	assert.True(t, events.events[0].SignatureValid)
	assert.Equal(t, "", events.processed[1])
}

func TestHandleWebhookDuplicate(t *testing.T) {
	members := newFakeMembers(&models.Member{Subject: "auth0|1"})
	svc, _ := newTestService(members, &fakeGateway{})
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)

	outcome, err := svc.HandleWebhook(ctx, fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, outcome)
	assert.Equal(t, 1, members.merges)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	members := newFakeMembers(&models.Member{Subject: "auth0|1"})
	svc, events := newTestService(members, &fakeGateway{})

	outcome, err := svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(checkoutCompletedEvent), "t=1,v1=forged")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, WebhookInvalidSignature, outcome)
	assert.Equal(t, 0, members.merges)

	require.Len(t, events.events, 1)
	assert.False(t, events.events[0].SignatureValid)
	assert.Equal(t, "checkout.session.completed", events.events[0].EventType)
	assert.Contains(t, events.events[0].ProviderEventID, "hash:")
	assert.Equal(t, ErrInvalidSignature.Error(), events.processed[1])

	// The genuine delivery of the same event is still applied.
	outcome, err = svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
}

func TestHandleWebhookUnknownMember(t *testing.T) {
	svc, _ := newTestService(newFakeMembers(), &fakeGateway{})

	outcome, err := svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome)
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	svc, _ := newTestService(newFakeMembers(), &fakeGateway{})

	payload := `{"id":"evt_2","object":"event","type":"invoice.created","data":{"object":{}}}`
	outcome, err := svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(payload), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome)
}

func TestHandleWebhookSubscriptionStoresPayment(t *testing.T) {
	members := newFakeMembers(&models.Member{
		Subject:     "auth0|1",
		AppMetadata: datatypes.JSONMap{"stripe_customer_membfee": "cus_1"},
	})
	svc, _ := newTestService(members, &fakeGateway{})

	outcome, err := svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(subscriptionUpdatedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)

	stored, _ := members.GetBySubject("auth0|1")
	fact, err := fees.ParsePayment(stored.AppMetadata["membfee_payment"])
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.Equal(t, fees.MethodCheckout, fact.Method)
	assert.Equal(t, "2024-06-15", fact.PeriodStart.String())
	assert.Equal(t, fees.IntervalYear, fact.Interval)
	assert.Equal(t, int64(50000), fact.Amount)
	assert.Equal(t, "SEK", fact.Currency)
}

func TestHandleWebhookUnconfiguredFlavour(t *testing.T) {
	svc, _ := newTestService(newFakeMembers(), &fakeGateway{})

	_, err := svc.HandleWebhook(context.Background(), fees.FlavourHousecard, []byte(checkoutCompletedEvent), validSignature)
	assert.ErrorIs(t, err, ErrCheckoutNotConfigured)
}

func TestPruneWebhookEventsKeepsRecentAndUnfinished(t *testing.T) {
	members := newFakeMembers(&models.Member{Subject: "auth0|1"})
	svc, events := newTestService(members, &fakeGateway{})

	_, err := svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)
	events.events[0].CreatedAt = time.Now().Add(-200 * 24 * time.Hour)
	events.events = append(events.events,
		&models.BillingWebhookEvent{ID: 2, Provider: "stripe_membfee", ProviderEventID: "evt_open", CreatedAt: time.Now().Add(-200 * 24 * time.Hour)})

	n, err := svc.PruneWebhookEvents(90 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, events.events, 1)
	assert.Equal(t, "evt_open", events.events[0].ProviderEventID)
}

func TestScheduleWebhookPruning(t *testing.T) {
	svc, _ := newTestService(newFakeMembers(), &fakeGateway{})
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := svc.ScheduleWebhookPruning(c, "0 4 * * *", time.Hour)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = svc.ScheduleWebhookPruning(c, "not a schedule", time.Hour)
	assert.Error(t, err)
}

func TestHandleWebhookRetriesFailedDelivery(t *testing.T) {
	members := newFakeMembers(&models.Member{Subject: "auth0|1"})
	members.failMerges = 1
	svc, events := newTestService(members, &fakeGateway{})
	ctx := context.Background()

	outcome, err := svc.HandleWebhook(ctx, fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	assert.Error(t, err)
	assert.Equal(t, WebhookFailed, outcome)
	assert.Equal(t, WebhookFailed, events.outcomes[1])

	outcome, err = svc.HandleWebhook(ctx, fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	require.Len(t, events.events, 1)
	assert.Equal(t, WebhookProcessed, events.outcomes[1])
	assert.Equal(t, "", events.processed[1])

	stored, _ := members.GetBySubject("auth0|1")
	assert.Equal(t, "cus_1", stored.AppMetadata["stripe_customer_membfee"])

	outcome, err = svc.HandleWebhook(ctx, fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, outcome)
}

func TestHandleWebhookReappliesUnfinishedDelivery(t *testing.T) {
	members := newFakeMembers(&models.Member{Subject: "auth0|1"})
	svc, events := newTestService(members, &fakeGateway{})
	events.events = append(events.events, &models.BillingWebhookEvent{
		ID: 1, Provider: "stripe_membfee", ProviderEventID: "evt_checkout", SignatureValid: true,
	})

	outcome, err := svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(checkoutCompletedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.Equal(t, WebhookProcessed, events.outcomes[1])
}

const checkoutWithSubscriptionEvent = `{
	"id": "evt_checkout_sub",
	"object": "event",
	"type": "checkout.session.completed",
	"data": {"object": {
		"id": "cs_2",
		"object": "checkout.session",
		"client_reference_id": "auth0|1",
		"customer": "cus_1",
		"subscription": "sub_1",
		"payment_status": "paid"
	}}
}`

func TestHandleWebhookSubscriptionBeforeCheckout(t *testing.T) {
	members := newFakeMembers(&models.Member{Subject: "auth0|1"})
	gw := &fakeGateway{byID: map[string]*stripe.Subscription{
		"sub_1": subscriptionWith(stripe.SubscriptionStatusActive,
			time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), yearlyPrice("price_year", 50000)),
	}}
	svc, _ := newTestService(members, gw)
	ctx := context.Background()

	outcome, err := svc.HandleWebhook(ctx, fees.FlavourMembership, []byte(subscriptionUpdatedEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome)

	outcome, err = svc.HandleWebhook(ctx, fees.FlavourMembership, []byte(checkoutWithSubscriptionEvent), validSignature)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)

	stored, _ := members.GetBySubject("auth0|1")
	assert.Equal(t, "cus_1", stored.AppMetadata["stripe_customer_membfee"])
	fact, err := fees.ParsePayment(stored.AppMetadata["membfee_payment"])
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.Equal(t, fees.MethodCheckout, fact.Method)
	assert.Equal(t, "2024-06-15", fact.PeriodStart.String())
	assert.Equal(t, int64(50000), fact.Amount)
}

func TestHandleWebhookCheckoutSubscriptionLookupFails(t *testing.T) {
	members := newFakeMembers(&models.Member{Subject: "auth0|1"})
	svc, _ := newTestService(members, &fakeGateway{})

	outcome, err := svc.HandleWebhook(context.Background(), fees.FlavourMembership, []byte(checkoutWithSubscriptionEvent), validSignature)
	assert.Error(t, err)
	assert.Equal(t, WebhookFailed, outcome)
}
