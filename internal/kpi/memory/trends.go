package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"retailkpi/internal/kpi"
)

// monthKey is the YYYY-MM bucket key layout.
const monthKey = "2006-01"

// MonthlyTrends buckets enriched orders by calendar month (UTC) and derives
// month-over-month revenue growth via the shared helpers.
func (e *Engine) MonthlyTrends(ctx context.Context) (*kpi.MonthlyTrendsResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type accum struct {
		orderCount int
		revenue    decimal.Decimal
	}
	byMonth := make(map[string]*accum)
	for _, o := range e.snap.Enriched {
		key := o.OrderDateTime.UTC().Format(monthKey)
		a, ok := byMonth[key]
		if !ok {
			a = &accum{revenue: decimal.Zero}
			byMonth[key] = a
		}
		a.orderCount++
		a.revenue = a.revenue.Add(o.TotalAmount)
	}

	months := make([]kpi.MonthBucket, 0, len(byMonth))
	for key, a := range byMonth {
		months = append(months, kpi.MonthBucket{
			Month:      key,
			OrderCount: a.orderCount,
			Revenue:    a.revenue,
		})
	}
	// YYYY-MM keys sort chronologically as strings.
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })

	months = kpi.FinishMonthlyTrends(months)

	e.logger.DebugContext(ctx, "monthly trends calculated",
		"engine", e.Name(),
		"months", len(months),
	)
	return &kpi.MonthlyTrendsResult{
		Months:           months,
		AvgMonthlyGrowth: kpi.AvgMonthlyGrowth(months),
	}, nil
}
