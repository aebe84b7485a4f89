package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		interval string
		count    int
		want     string
	}{
		{"year", 1, "1 year"},
		{"year", 3, "3 years"},
		{"month", 1, "1 month"},
		{"month", 6, "6 months"},
		{"month", 0, ""},
	}
	for _, tt := range tests {
		if got := FormatInterval(tt.interval, tt.count); got != tt.want {
			t.Fatalf("FormatInterval(%q, %d) = %q, want %q", tt.interval, tt.count, got, tt.want)
		}
	}
}

func TestFeeStateColumns(t *testing.T) {
	paid := Derive(map[string]any{
		"method":         "manual",
		"period_start":   "2024-03-01",
		"interval":       "year",
		"interval_count": 1,
		"amount":         1000,
		"currency":       "sek",
	}, IntervalMonth, referenceNow)

	assert.Equal(t, []string{"Yes", "2024-03-01", "2025-03-01", "1 year", "1000", "83.33333333333333", "SEK", "Manual"}, paid.Columns())

	none := Derive(nil, IntervalYear, referenceNow)
	assert.Equal(t, []string{"No", "", "", "", "", "", "SEK", "(none)"}, none.Columns())
}
