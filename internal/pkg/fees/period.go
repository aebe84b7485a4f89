package fees

// PeriodEnd adds count intervals to start using calendar arithmetic.
// Days that overflow the target month carry into the next one, so
// 2023-01-31 plus one month is 2023-03-03 and 2024-02-29 plus one year is
// 2025-03-01.
func PeriodEnd(start Date, interval Interval, count int) Date {
	switch interval {
	case IntervalYear:
		return start.AddDate(count, 0, 0)
	case IntervalMonth:
		return start.AddDate(0, count, 0)
	default:
		return start
	}
}

// IsCurrentlyPaid reports whether a period ending at periodEnd still covers
// the reference date. A period ending today counts as paid all day.
func IsCurrentlyPaid(periodEnd, reference Date) bool {
	return !periodEnd.Before(reference)
}
