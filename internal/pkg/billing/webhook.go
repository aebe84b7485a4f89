package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andefred/eldsal/app/models"
	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/stripe/stripe-go/v81"
	"gorm.io/gorm"
)

const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
)

// HandleWebhook verifies, records and applies one webhook delivery for the
// flavour's checkout account. Redeliveries of a settled event are reported as
// duplicates and not applied again; a failed or unfinished one is applied anew.
func (s *Service) HandleWebhook(ctx context.Context, f fees.Flavour, payload []byte, signature string) (WebhookOutcome, error) {
	gw, err := s.gateway(f)
	if err != nil {
		return WebhookFailed, err
	}

	event, verr := gw.ConstructEvent(payload, signature)
	in := WebhookEventInput{
		Provider:       ProviderName(f),
		PayloadJSON:    string(payload),
		SignatureValid: verr == nil,
	}
	// Unverified deliveries are keyed by payload hash so they cannot claim a real event ID.
	if verr == nil {
		in.ProviderEventID = event.ID
		in.EventType = string(event.Type)
	} else {
		in.EventType = peekEventType(payload)
	}

	created, stored, err := s.recordEvent(in)
	if err != nil {
		s.metrics.WebhookEvent(f, string(WebhookFailed))
		return WebhookFailed, fmt.Errorf("record webhook event: %w", err)
	}
	if !created && settled(stored) {
		s.metrics.WebhookEvent(f, string(WebhookDuplicate))
		return WebhookDuplicate, nil
	}
	if verr != nil {
		s.finishEvent(f, stored.ID, WebhookInvalidSignature, ErrInvalidSignature)
		return WebhookInvalidSignature, ErrInvalidSignature
	}

	outcome, perr := s.applyEvent(ctx, f, event)
	s.finishEvent(f, stored.ID, outcome, perr)
	return outcome, perr
}

func (s *Service) applyEvent(ctx context.Context, f fees.Flavour, event stripe.Event) (WebhookOutcome, error) {
	if event.Data == nil {
		return WebhookInvalidPayload, errors.New("event has no data")
	}

	switch string(event.Type) {
	case eventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return WebhookInvalidPayload, err
		}
		if session.ClientReferenceID == "" {
			return WebhookIgnored, nil
		}
		member, err := s.members.GetBySubject(session.ClientReferenceID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WebhookIgnored, nil
		}
		if err != nil {
			return WebhookFailed, err
		}
		if _, err := s.applySession(member, f, &session); err != nil {
			return WebhookFailed, err
		}
		// Subscription events may have arrived before the customer was linked.
		if session.Subscription != nil && session.Subscription.ID != "" {
			return s.applySessionSubscription(ctx, f, member, session.Subscription.ID)
		}
		return WebhookProcessed, nil

	case eventSubscriptionCreated, eventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return WebhookInvalidPayload, err
		}
		return s.ApplySubscription(f, &sub)

	default:
		return WebhookIgnored, nil
	}
}

func (s *Service) applySessionSubscription(ctx context.Context, f fees.Flavour, member *models.Member, subscriptionID string) (WebhookOutcome, error) {
	gw, err := s.gateway(f)
	if err != nil {
		return WebhookFailed, err
	}
	sub, err := gw.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return WebhookFailed, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	// Reload so the cycle check reads the metadata as merged above.
	member, err = s.members.GetBySubject(member.Subject)
	if err != nil {
		return WebhookFailed, err
	}
	if _, err := s.applySubscriptionTo(member, f, sub); err != nil {
		return WebhookFailed, err
	}
	return WebhookProcessed, nil
}

// settled reports whether a stored delivery needs no further processing.
func settled(event *models.BillingWebhookEvent) bool {
	return event.Processed() && event.Outcome != string(WebhookFailed)
}

func peekEventType(payload []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return ""
	}
	if len(head.Type) > 100 {
		return head.Type[:100]
	}
	return head.Type
}
