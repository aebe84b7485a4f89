package fees

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidRequest() map[string]any {
	return map[string]any{
		"payed":         true,
		"method":        "stripe",
		"periodStart":   "2099-01-01",
		"interval":      "year",
		"intervalCount": "1",
		"amount":        "100",
		"currency":      "SEK",
	}
}

func TestValidateMutationClear(t *testing.T) {
	req := paidRequest()
	req["payed"] = false
	req["method"] = "bogus"

	m, err := ValidateMutation(req)
	require.NoError(t, err)
	assert.True(t, m.Clear)
	assert.Nil(t, m.Fact)

	m, err = ValidateMutation(map[string]any{"payed": false})
	require.NoError(t, err)
	assert.True(t, m.Clear)
}

func TestValidateMutationPayedMustBeBool(t *testing.T) {
	for _, v := range []any{nil, "true", 1, "false", 0} {
		_, err := ValidateMutation(map[string]any{"payed": v})

		var ferr *FieldError
		require.True(t, errors.As(err, &ferr), "payed=%#v", v)
		assert.Equal(t, "payed", ferr.Field)
		assert.Equal(t, `Invalid value for "payed"`, ferr.Message)
	}

	_, err := ValidateMutation(map[string]any{})
	assert.Error(t, err)
}

func TestValidateMutationPaid(t *testing.T) {
	m, err := ValidateMutation(paidRequest())
	require.NoError(t, err)
	require.NotNil(t, m.Fact)
	assert.False(t, m.Clear)

	assert.Equal(t, MethodCheckout, m.Fact.Method)
	assert.Equal(t, "2099-01-01", m.Fact.PeriodStart.String())
	assert.Equal(t, IntervalYear, m.Fact.Interval)
	assert.Equal(t, 1, m.Fact.IntervalCount)
	assert.Equal(t, int64(100), m.Fact.Amount)
	assert.Equal(t, "SEK", m.Fact.Currency)
}

func TestValidateMutationRoundTrip(t *testing.T) {
	m, err := ValidateMutation(paidRequest())
	require.NoError(t, err)

	blob := m.Fact.Blob()
	assert.Equal(t, map[string]any{
		"method":         "stripe",
		"period_start":   "2099-01-01",
		"interval":       "year",
		"interval_count": 1,
		"amount":         int64(100),
		"currency":       "SEK",
	}, blob)

	state := Derive(blob, IntervalYear, referenceNow)
	assert.True(t, state.Paid)
	assert.False(t, state.Error)
	assert.Equal(t, "2100-01-01", state.PeriodEnd.String())
}

func TestValidateMutationAllowsBackdatedStart(t *testing.T) {
	req := paidRequest()
	req["periodStart"] = "2001-01-01"

	m, err := ValidateMutation(req)
	require.NoError(t, err)
	assert.False(t, Derive(m.Fact.Blob(), IntervalYear, referenceNow).Paid)
}

func TestValidateMutationFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(m map[string]any)
		field   string
		message string
	}{
		{"missing method", func(m map[string]any) { delete(m, "method") }, "method", "Payment method is required"},
		{"empty method", func(m map[string]any) { m["method"] = "" }, "method", "Payment method is required"},
		{"unknown method", func(m map[string]any) { m["method"] = "cash" }, "method", "Invalid payment method cash"},
		{"method beats date", func(m map[string]any) { m["method"] = "cash"; m["periodStart"] = "" }, "method", "Invalid payment method cash"},
		{"missing start", func(m map[string]any) { delete(m, "periodStart") }, "periodStart", "Period start date is required"},
		{"slashed start", func(m map[string]any) { m["periodStart"] = "2024/01/01" }, "periodStart", "Period start date must be in format YYYY-MM-DD"},
		{"timestamp start", func(m map[string]any) { m["periodStart"] = "2024-01-01T00:00:00Z" }, "periodStart", "Period start date must be in format YYYY-MM-DD"},
		{"impossible start", func(m map[string]any) { m["periodStart"] = "2023-02-30" }, "periodStart", "Period start date must be in format YYYY-MM-DD"},
		{"week interval", func(m map[string]any) { m["interval"] = "week" }, "interval", "Invalid interval week"},
		{"missing interval", func(m map[string]any) { delete(m, "interval") }, "interval", "Invalid interval"},
		{"zero count", func(m map[string]any) { m["intervalCount"] = 0 }, "intervalCount", "Invalid interval count"},
		{"text count", func(m map[string]any) { m["intervalCount"] = "many" }, "intervalCount", "Invalid interval count"},
		{"missing count", func(m map[string]any) { delete(m, "intervalCount") }, "intervalCount", "Invalid interval count"},
		{"negative amount", func(m map[string]any) { m["amount"] = -1 }, "amount", "Invalid amount"},
		{"text amount", func(m map[string]any) { m["amount"] = "lots" }, "amount", "Invalid amount"},
		{"missing currency", func(m map[string]any) { delete(m, "currency") }, "currency", "No currency specified"},
		{"blank currency", func(m map[string]any) { m["currency"] = "  " }, "currency", "No currency specified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := paidRequest()
			tt.edit(req)

			_, err := ValidateMutation(req)
			var ferr *FieldError
			require.True(t, errors.As(err, &ferr), "got %v", err)
			assert.Equal(t, tt.field, ferr.Field)
			assert.Equal(t, tt.message, ferr.Message)
		})
	}
}

func TestValidateMutationNumericJSONValues(t *testing.T) {
	req := paidRequest()
	req["intervalCount"] = float64(3)
	req["amount"] = float64(0)
	req["method"] = "manual"
	req["interval"] = "month"
	req["currency"] = "eur"

	m, err := ValidateMutation(req)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Fact.IntervalCount)
	assert.Equal(t, int64(0), m.Fact.Amount)
	assert.Equal(t, "EUR", m.Fact.Currency)
}
