package fees

import (
	"errors"
	"time"
)

// Derive computes the fee state of a stored payment record as of now.
// Malformed records produce a state with Error set instead of an error value.
func Derive(raw any, reporting Interval, now time.Time) FeeState {
	state := FeeState{
		MethodName:         MethodNone,
		NormalizedInterval: reporting,
		Currency:           DefaultCurrency,
	}

	fact, err := ParsePayment(raw)
	if err != nil {
		msg := err.Error()
		var verr *ValidationError
		if errors.As(err, &verr) {
			msg = verr.Message()
		}
		state.Error = true
		state.ErrorMessage = &msg
		return state
	}
	if fact == nil {
		return state
	}
	return stateOf(*fact, reporting, now)
}

// DeriveFlavour reads the flavour's payment record out of app metadata.
func DeriveFlavour(appMetadata map[string]any, flavour Flavour, now time.Time) FeeState {
	var raw any
	if appMetadata != nil {
		raw = appMetadata[flavour.PaymentKey()]
	}
	return Derive(raw, flavour.ReportingInterval(), now)
}

// DerivePayments derives both flavours from the same app metadata snapshot.
func DerivePayments(appMetadata map[string]any, now time.Time) Payments {
	return Payments{
		Membership: DeriveFlavour(appMetadata, FlavourMembership, now),
		Housecard:  DeriveFlavour(appMetadata, FlavourHousecard, now),
	}
}

// MethodNone is the display name of a fee without a payment method.
const MethodNone = "(none)"

func stateOf(fact PaymentFact, reporting Interval, now time.Time) FeeState {
	start := fact.PeriodStart
	end := fact.PeriodEnd()
	interval := string(fact.Interval)
	count := fact.IntervalCount
	amount := fact.Amount

	state := FeeState{
		Paid:               IsCurrentlyPaid(end, Today(now)),
		PeriodStart:        &start,
		PeriodEnd:          &end,
		Interval:           &interval,
		IntervalCount:      &count,
		Method:             string(fact.Method),
		MethodName:         fact.Method.DisplayName(),
		Amount:             &amount,
		NormalizedInterval: reporting,
		Currency:           fact.Currency,
	}
	if normalized, err := Normalize(fact.Amount, fact.Interval, fact.IntervalCount, reporting); err == nil {
		state.NormalizedAmount = &normalized
	}
	return state
}
