package fees

import "strings"

// LegacySessionKey held the last checkout session of either flavour before
// sessions were tracked per flavour.
const LegacySessionKey = "stripe_session_id"

func CustomerKey(f Flavour) string { return "stripe_customer_" + f.StorageName() }
func StatusKey(f Flavour) string   { return "stripe_status_" + f.StorageName() }
func SessionKey(f Flavour) string  { return "stripe_session_" + f.StorageName() }

// BillingLink ties a member to the checkout provider for one flavour.
type BillingLink struct {
	CustomerID string
	SessionID  string
	Status     string
}

// CheckoutSession is the part of a provider checkout session the reconciler reads.
type CheckoutSession struct {
	ID            string
	CustomerID    string
	PaymentStatus string
}

// BillingLinkUpdate holds the link values to persist after a reconciliation.
type BillingLinkUpdate struct {
	Flavour Flavour
	Link    BillingLink
	// Changed is false when persisting Link would not alter the stored values.
	Changed bool
}

// Fields returns the app metadata entries to write for the update.
func (u BillingLinkUpdate) Fields() map[string]any {
	return map[string]any{
		CustomerKey(u.Flavour): u.Link.CustomerID,
		StatusKey(u.Flavour):   u.Link.Status,
		SessionKey(u.Flavour):  u.Link.SessionID,
	}
}

// LinkFromMetadata reads the stored link of a flavour from app metadata.
func LinkFromMetadata(appMetadata map[string]any, f Flavour) BillingLink {
	link := BillingLink{
		CustomerID: metadataString(appMetadata, CustomerKey(f)),
		SessionID:  metadataString(appMetadata, SessionKey(f)),
		Status:     metadataString(appMetadata, StatusKey(f)),
	}
	if link.SessionID == "" {
		link.SessionID = metadataString(appMetadata, LegacySessionKey)
	}
	return link
}

// ReconcileSession folds a fetched checkout session into the stored link.
// A session without a customer keeps the stored customer. The function does
// not decide whether the fee is paid.
func ReconcileSession(f Flavour, stored BillingLink, session CheckoutSession) BillingLinkUpdate {
	next := stored
	if c := strings.TrimSpace(session.CustomerID); c != "" {
		next.CustomerID = c
	}
	if id := strings.TrimSpace(session.ID); id != "" {
		next.SessionID = id
	}
	next.Status = strings.TrimSpace(session.PaymentStatus)

	return BillingLinkUpdate{
		Flavour: f,
		Link:    next,
		Changed: next != stored,
	}
}

func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
