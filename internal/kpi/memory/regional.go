package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"retailkpi/internal/kpi"
)

// RegionalRevenue groups enriched orders by region, including the explicit
// Unknown bucket. Every enriched order belongs to exactly one bucket.
func (e *Engine) RegionalRevenue(ctx context.Context) (*kpi.RegionalRevenueResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type accum struct {
		revenue    decimal.Decimal
		orderCount int
		customers  map[string]struct{}
	}
	byRegion := make(map[string]*accum)
	for _, o := range e.snap.Enriched {
		a, ok := byRegion[o.Region]
		if !ok {
			a = &accum{revenue: decimal.Zero, customers: make(map[string]struct{})}
			byRegion[o.Region] = a
		}
		a.revenue = a.revenue.Add(o.TotalAmount)
		a.orderCount++
		a.customers[o.CustomerID] = struct{}{}
	}

	regions := make([]kpi.RegionBucket, 0, len(byRegion))
	for name, a := range byRegion {
		regions = append(regions, kpi.RegionBucket{
			Region:        name,
			Revenue:       a.revenue,
			OrderCount:    a.orderCount,
			CustomerCount: len(a.customers),
			AvgOrder:      kpi.AvgOrder(a.revenue, a.orderCount),
		})
	}

	// Descending revenue, ties broken by ascending region name.
	sort.Slice(regions, func(i, j int) bool {
		ri, rj := regions[i], regions[j]
		if !ri.Revenue.Equal(rj.Revenue) {
			return ri.Revenue.GreaterThan(rj.Revenue)
		}
		return ri.Region < rj.Region
	})

	res := &kpi.RegionalRevenueResult{
		Regions:      regions,
		TotalRegions: len(regions),
	}
	if len(regions) > 0 {
		res.TopRegion = regions[0].Region
	}

	e.logger.DebugContext(ctx, "regional revenue calculated",
		"engine", e.Name(),
		"regions", res.TotalRegions,
		"top_region", res.TopRegion,
	)
	return res, nil
}
