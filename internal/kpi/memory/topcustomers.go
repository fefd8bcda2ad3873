package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"retailkpi/internal/kpi"
)

// TopCustomers ranks customers by spend inside the trailing window ending at
// the reference timestamp. Both window boundaries are inclusive.
func (e *Engine) TopCustomers(ctx context.Context, reference time.Time) (*kpi.TopCustomersResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := e.cfg.WindowStart(reference)

	type accum struct {
		name       string
		region     string
		totalSpent decimal.Decimal
		orderCount int
	}
	byCustomer := make(map[string]*accum)
	for _, o := range e.snap.Enriched {
		t := o.OrderDateTime
		if t.Before(start) || t.After(reference) {
			continue
		}
		a, ok := byCustomer[o.CustomerID]
		if !ok {
			a = &accum{name: o.CustomerName, region: o.Region, totalSpent: decimal.Zero}
			byCustomer[o.CustomerID] = a
		}
		a.totalSpent = a.totalSpent.Add(o.TotalAmount)
		a.orderCount++
	}

	ranked := make([]kpi.TopCustomer, 0, len(byCustomer))
	segments := map[string]int{
		kpi.SegmentVIP:       0,
		kpi.SegmentHighValue: 0,
		kpi.SegmentRegular:   0,
	}
	for id, a := range byCustomer {
		segment := e.cfg.Segment(a.totalSpent)
		segments[segment]++
		ranked = append(ranked, kpi.TopCustomer{
			CustomerID:   id,
			CustomerName: a.name,
			Region:       a.region,
			TotalSpent:   a.totalSpent,
			OrderCount:   a.orderCount,
			Segment:      segment,
		})
	}

	// Strictly descending spend, ties broken by ascending customer id.
	sort.Slice(ranked, func(i, j int) bool {
		ci, cj := ranked[i], ranked[j]
		if !ci.TotalSpent.Equal(cj.TotalSpent) {
			return ci.TotalSpent.GreaterThan(cj.TotalSpent)
		}
		return ci.CustomerID < cj.CustomerID
	})
	if len(ranked) > e.cfg.TopN {
		ranked = ranked[:e.cfg.TopN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	e.logger.DebugContext(ctx, "top customers calculated",
		"engine", e.Name(),
		"in_window", len(byCustomer),
		"ranked", len(ranked),
	)
	return &kpi.TopCustomersResult{
		Customers:     ranked,
		SegmentCounts: segments,
		WindowStart:   start,
		WindowEnd:     reference,
	}, nil
}
