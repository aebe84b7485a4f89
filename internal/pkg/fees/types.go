package fees

import "strings"

// Flavour identifies one of the two independent recurring fees.
type Flavour string

const (
	FlavourMembership Flavour = "membership"
	FlavourHousecard  Flavour = "housecard"
)

// Flavours lists every fee flavour in display order.
var Flavours = []Flavour{FlavourMembership, FlavourHousecard}

// ParseFlavour accepts both the public name and the storage name of a flavour.
func ParseFlavour(s string) (Flavour, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "membership", "membfee":
		return FlavourMembership, true
	case "housecard":
		return FlavourHousecard, true
	default:
		return "", false
	}
}

// StorageName is the prefix used for the flavour in app metadata and at the checkout provider.
func (f Flavour) StorageName() string {
	if f == FlavourMembership {
		return "membfee"
	}
	return string(f)
}

// PaymentKey is the app metadata key holding the flavour's payment record.
func (f Flavour) PaymentKey() string {
	return f.StorageName() + "_payment"
}

// ReportingInterval is the cadence normalized amounts are expressed in.
func (f Flavour) ReportingInterval() Interval {
	if f == FlavourMembership {
		return IntervalYear
	}
	return IntervalMonth
}

// Interval is a billing cadence unit.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

func (i Interval) Valid() bool {
	return i == IntervalMonth || i == IntervalYear
}

// months returns the length of the interval in months.
func (i Interval) months() int64 {
	switch i {
	case IntervalYear:
		return 12
	case IntervalMonth:
		return 1
	default:
		return 0
	}
}

// Method tells how a fee is being paid.
type Method string

const (
	MethodManual Method = "manual"
	// MethodCheckout is stored as "stripe" to stay compatible with existing records.
	MethodCheckout Method = "stripe"
)

func (m Method) Valid() bool {
	return m == MethodManual || m == MethodCheckout
}

// DisplayName maps a stored method to the label shown to members and admins.
func (m Method) DisplayName() string {
	switch m {
	case "":
		return "(none)"
	case MethodManual:
		return "Manual"
	case MethodCheckout:
		return "Stripe"
	default:
		return "(unknown: " + string(m) + ")"
	}
}

// DefaultCurrency is reported for fees that have no stored record.
const DefaultCurrency = "SEK"

// PaymentFact is one validated, paid billing cycle for one flavour.
type PaymentFact struct {
	Method        Method
	PeriodStart   Date
	Interval      Interval
	IntervalCount int
	// Amount is in minor currency units.
	Amount   int64
	Currency string
}

// Blob returns the representation persisted under the flavour's payment key.
func (p PaymentFact) Blob() map[string]any {
	return map[string]any{
		"method":         string(p.Method),
		"period_start":   p.PeriodStart.String(),
		"interval":       string(p.Interval),
		"interval_count": p.IntervalCount,
		"amount":         p.Amount,
		"currency":       p.Currency,
	}
}

// PeriodEnd is the paid-through date of the fact.
func (p PaymentFact) PeriodEnd() Date {
	return PeriodEnd(p.PeriodStart, p.Interval, p.IntervalCount)
}

// FeeState is the derived, read-time view of one fee. It is never persisted.
type FeeState struct {
	Paid               bool     `json:"payed"`
	PeriodStart        *Date    `json:"periodStart"`
	PeriodEnd          *Date    `json:"periodEnd"`
	Interval           *string  `json:"interval"`
	IntervalCount      *int     `json:"intervalCount"`
	Method             string   `json:"method"`
	MethodName         string   `json:"methodName"`
	Amount             *int64   `json:"amount"`
	NormalizedAmount   *float64 `json:"normalizedAmount"`
	NormalizedInterval Interval `json:"normalizedInterval"`
	Currency           string   `json:"currency"`
	Error              bool     `json:"error"`
	ErrorMessage       *string  `json:"errorMessage"`
}

// Payments bundles the fee states of both flavours.
type Payments struct {
	Membership FeeState `json:"membership"`
	Housecard  FeeState `json:"housecard"`
}
