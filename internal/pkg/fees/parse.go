package fees

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidPeriodStart   = errors.New("invalid period start")
	ErrInvalidInterval      = errors.New("invalid interval")
	ErrInvalidIntervalCount = errors.New("invalid interval count")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMissingCurrency      = errors.New("missing currency")
)

var storedDataMessages = map[error]string{
	ErrInvalidPeriodStart:   "The stored period start date has an invalid format",
	ErrInvalidInterval:      "The stored interval has an invalid format",
	ErrInvalidIntervalCount: "The stored interval count has an invalid format",
	ErrInvalidAmount:        "The stored amount has an invalid format",
	ErrMissingCurrency:      "No currency is stored",
}

// ValidationError reports the first malformed field of a stored payment record.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Message is the text shown to members and admins for the broken record.
func (e *ValidationError) Message() string {
	if msg, ok := storedDataMessages[e.Err]; ok {
		return msg
	}
	return e.Err.Error()
}

// ParsePayment validates a stored payment record. It returns (nil, nil) when
// the record is absent or has no period start, which means the fee has never
// been paid. It never panics, whatever the shape of raw.
func ParsePayment(raw any) (*PaymentFact, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, nil
	}
	startRaw, ok := m["period_start"]
	if !ok || startRaw == nil {
		return nil, nil
	}
	if s, isString := startRaw.(string); isString && strings.TrimSpace(s) == "" {
		return nil, nil
	}

	start, ok := coerceDate(startRaw)
	if !ok {
		return nil, &ValidationError{Field: "period_start", Err: ErrInvalidPeriodStart}
	}

	intervalStr, _ := m["interval"].(string)
	interval := Interval(intervalStr)
	if !interval.Valid() {
		return nil, &ValidationError{Field: "interval", Err: ErrInvalidInterval}
	}

	count, ok := coerceInt(m["interval_count"])
	if !ok || count <= 0 || count > math.MaxInt32 {
		return nil, &ValidationError{Field: "interval_count", Err: ErrInvalidIntervalCount}
	}

	amount, ok := coerceInt(m["amount"])
	if !ok || amount < 0 {
		return nil, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}

	currency, _ := m["currency"].(string)
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return nil, &ValidationError{Field: "currency", Err: ErrMissingCurrency}
	}

	method, _ := m["method"].(string)

	return &PaymentFact{
		Method:        Method(method),
		PeriodStart:   start,
		Interval:      interval,
		IntervalCount: int(count),
		Amount:        amount,
		Currency:      strings.ToUpper(currency),
	}, nil
}

func asMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, v != nil
	case map[string]string:
		if v == nil {
			return nil, false
		}
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// coerceDate accepts a YYYY-MM-DD string, an RFC 3339 timestamp or a time.Time.
func coerceDate(v any) (Date, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if d, err := ParseDate(s); err == nil {
			return d, true
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return DateOf(ts), true
		}
		return Date{}, false
	case time.Time:
		if t.IsZero() {
			return Date{}, false
		}
		return DateOf(t), true
	default:
		return Date{}, false
	}
}

// coerceInt accepts integer kinds, integral floats, json.Number and decimal strings.
func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return parseIntString(n.String())
	case string:
		return parseIntString(n)
	default:
		return 0, false
	}
}

func uintToInt(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseIntString(s string) (int64, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}
