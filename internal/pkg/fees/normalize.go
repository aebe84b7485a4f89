package fees

import "github.com/shopspring/decimal"

// Normalize rescales an amount paid per sourceCount source intervals to the
// amount per single target interval, with one year counted as twelve months.
//
//	Normalize(1200, IntervalMonth, 1, IntervalYear) == 14400
//	Normalize(900, IntervalYear, 3, IntervalYear)  == 300
func Normalize(amount int64, source Interval, sourceCount int, target Interval) (float64, error) {
	if !source.Valid() || !target.Valid() {
		return 0, ErrInvalidInterval
	}
	if sourceCount < 1 {
		return 0, ErrInvalidIntervalCount
	}

	scaled := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(target.months()))
	v, _ := scaled.Div(decimal.NewFromInt(int64(sourceCount) * source.months())).Float64()
	return v, nil
}
