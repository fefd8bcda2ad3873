package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"retailkpi/internal/kpi"
)

// RepeatCustomers groups enriched orders by customer and reports customers
// with two or more orders. Zero customers is a defined result, not an error.
func (e *Engine) RepeatCustomers(ctx context.Context) (*kpi.RepeatCustomersResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type accum struct {
		orderCount int
		totalSpend decimal.Decimal
	}
	byCustomer := make(map[string]*accum)
	for _, o := range e.snap.Enriched {
		a, ok := byCustomer[o.CustomerID]
		if !ok {
			a = &accum{totalSpend: decimal.Zero}
			byCustomer[o.CustomerID] = a
		}
		a.orderCount++
		a.totalSpend = a.totalSpend.Add(o.TotalAmount)
	}

	res := &kpi.RepeatCustomersResult{
		TotalCustomerCount:         len(byCustomer),
		RevenueFromRepeatCustomers: decimal.Zero,
		Customers:                  []kpi.RepeatCustomer{},
	}
	for id, a := range byCustomer {
		if a.orderCount < 2 {
			continue
		}
		res.RepeatCustomerCount++
		res.RevenueFromRepeatCustomers = res.RevenueFromRepeatCustomers.Add(a.totalSpend)
		res.Customers = append(res.Customers, kpi.RepeatCustomer{
			CustomerID: id,
			OrderCount: a.orderCount,
			TotalSpend: a.totalSpend,
		})
	}

	// Descending spend, ties broken by ascending customer id.
	sort.Slice(res.Customers, func(i, j int) bool {
		ci, cj := res.Customers[i], res.Customers[j]
		if !ci.TotalSpend.Equal(cj.TotalSpend) {
			return ci.TotalSpend.GreaterThan(cj.TotalSpend)
		}
		return ci.CustomerID < cj.CustomerID
	})

	res.RetentionRate = kpi.RetentionRate(res.RepeatCustomerCount, res.TotalCustomerCount)

	e.logger.DebugContext(ctx, "repeat customers calculated",
		"engine", e.Name(),
		"repeat", res.RepeatCustomerCount,
		"total", res.TotalCustomerCount,
	)
	return res, nil
}
