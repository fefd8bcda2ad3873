package kpi

import (
	"time"

	"github.com/shopspring/decimal"
)

// The helpers in this file perform every derived-ratio computation for both
// engines. Each engine produces the grouped sums and counts its own way
// (Go maps vs SQL GROUP BY); the derivation from those aggregates is shared
// so the strategies cannot drift apart on floating-point details.

// RetentionRate returns repeat/total, defined as 0 when total is 0.
func RetentionRate(repeatCount, totalCount int) float64 {
	if totalCount == 0 {
		return 0
	}
	return float64(repeatCount) / float64(totalCount)
}

// AvgOrder returns revenue/orderCount, defined as 0 when orderCount is 0.
func AvgOrder(revenue decimal.Decimal, orderCount int) decimal.Decimal {
	if orderCount == 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(int64(orderCount)))
}

// GrowthRate returns (current-previous)/previous. A zero previous revenue
// yields 0 so the output stays finite.
func GrowthRate(previous, current decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	return current.Sub(previous).InexactFloat64() / previous.InexactFloat64()
}

// FinishMonthlyTrends fills in per-bucket growth rates and returns the
// average monthly growth. Buckets must already be sorted chronologically.
// The first month's growth rate is defined as 0 and excluded from the
// average; fewer than two months averages to 0.
func FinishMonthlyTrends(months []MonthBucket) []MonthBucket {
	for i := range months {
		if i == 0 {
			months[i].GrowthRate = 0
			continue
		}
		months[i].GrowthRate = GrowthRate(months[i-1].Revenue, months[i].Revenue)
	}
	return months
}

// AvgMonthlyGrowth averages the growth rates of all buckets after the first.
func AvgMonthlyGrowth(months []MonthBucket) float64 {
	if len(months) < 2 {
		return 0
	}
	sum := 0.0
	for _, m := range months[1:] {
		sum += m.GrowthRate
	}
	return sum / float64(len(months)-1)
}

// WindowStart returns the inclusive start of the trailing spend window
// ending at reference. Both boundaries of [start, reference] are inclusive.
func (c Config) WindowStart(reference time.Time) time.Time {
	return reference.AddDate(0, 0, -c.WindowDays)
}
