package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcileSessionFirstCheckout(t *testing.T) {
	session := CheckoutSession{ID: "cs_test_1", CustomerID: "cus_123", PaymentStatus: "paid"}

	u := ReconcileSession(FlavourMembership, BillingLink{}, session)

	assert.True(t, u.Changed)
	assert.Equal(t, BillingLink{CustomerID: "cus_123", SessionID: "cs_test_1", Status: "paid"}, u.Link)
	assert.Equal(t, map[string]any{
		"stripe_customer_membfee": "cus_123",
		"stripe_status_membfee":   "paid",
		"stripe_session_membfee":  "cs_test_1",
	}, u.Fields())
}

func TestReconcileSessionIdempotent(t *testing.T) {
	session := CheckoutSession{ID: "cs_test_2", CustomerID: "cus_9", PaymentStatus: "unpaid"}

	first := ReconcileSession(FlavourHousecard, BillingLink{}, session)
	second := ReconcileSession(FlavourHousecard, first.Link, session)

	assert.Equal(t, first.Link, second.Link)
	assert.Equal(t, first.Fields(), second.Fields())
	assert.False(t, second.Changed)
}

func TestReconcileSessionKeepsStoredCustomer(t *testing.T) {
	stored := BillingLink{CustomerID: "cus_old", SessionID: "cs_old", Status: "paid"}

	u := ReconcileSession(FlavourHousecard, stored, CheckoutSession{ID: "cs_new", PaymentStatus: "unpaid"})

	assert.Equal(t, "cus_old", u.Link.CustomerID)
	assert.Equal(t, "cs_new", u.Link.SessionID)
	assert.Equal(t, "unpaid", u.Link.Status)
	assert.Contains(t, u.Fields(), "stripe_customer_housecard")
}

func TestLinkFromMetadata(t *testing.T) {
	md := map[string]any{
		"stripe_customer_membfee":   "cus_a",
		"stripe_status_membfee":     "paid",
		"stripe_session_housecard":  "cs_h",
		"stripe_customer_housecard": 12,
		"stripe_session_id":         "cs_legacy",
	}

	assert.Equal(t, BillingLink{CustomerID: "cus_a", SessionID: "cs_legacy", Status: "paid"}, LinkFromMetadata(md, FlavourMembership))
	assert.Equal(t, BillingLink{SessionID: "cs_h"}, LinkFromMetadata(md, FlavourHousecard))
	assert.Equal(t, BillingLink{}, LinkFromMetadata(nil, FlavourHousecard))
}

func TestParseFlavour(t *testing.T) {
	tests := []struct {
		in   string
		want Flavour
		ok   bool
	}{
		{"membership", FlavourMembership, true},
		{"membfee", FlavourMembership, true},
		{"HOUSECARD", FlavourHousecard, true},
		{"gym", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFlavour(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseFlavour(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	assert.Equal(t, "membfee_payment", FlavourMembership.PaymentKey())
	assert.Equal(t, "housecard_payment", FlavourHousecard.PaymentKey())
}
