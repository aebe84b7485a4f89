package fees

import "strconv"

// FormatInterval renders a cadence like "1 month" or "3 years".
// Fees without a positive count render as an empty string.
func FormatInterval(interval string, count int) string {
	if count <= 0 {
		return ""
	}
	s := strconv.Itoa(count) + " " + interval
	if count != 1 {
		s += "s"
	}
	return s
}

// FormatAmount renders a normalized amount without trailing zeros.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Columns projects a fee state onto the eight roster columns of one flavour:
// paid, period start, period end, interval, amount, normalized amount,
// currency and payment method.
func (s FeeState) Columns() []string {
	paid := "No"
	if s.Paid {
		paid = "Yes"
	}

	var start, end, interval, amount, normalized string
	if s.PeriodStart != nil {
		start = s.PeriodStart.String()
	}
	if s.PeriodEnd != nil {
		end = s.PeriodEnd.String()
	}
	if s.Interval != nil && s.IntervalCount != nil {
		interval = FormatInterval(*s.Interval, *s.IntervalCount)
	}
	if s.Amount != nil {
		amount = strconv.FormatInt(*s.Amount, 10)
	}
	if s.NormalizedAmount != nil {
		normalized = FormatAmount(*s.NormalizedAmount)
	}

	return []string{paid, start, end, interval, amount, normalized, s.Currency, s.MethodName}
}
