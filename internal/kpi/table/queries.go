package table

import (
	"context"
	"fmt"
	"time"

	"retailkpi/internal/kpi"
)

// Every query joins orders to customers on the normalized mobile number.
// The inner join excludes unmatched orders, mirroring snapshot enrichment.

// RepeatCustomers aggregates order counts and spend per customer in SQL and
// keeps customers with two or more orders.
func (e *Engine) RepeatCustomers(ctx context.Context) (*kpi.RepeatCustomersResult, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT c.customer_id, COUNT(o.order_id), SUM(o.total_amount_scaled)
		FROM orders o
		JOIN customers c ON c.mobile_number = o.mobile_number
		GROUP BY c.customer_id
		ORDER BY SUM(o.total_amount_scaled) DESC, c.customer_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query repeat customers: %w", err)
	}
	defer rows.Close()

	res := &kpi.RepeatCustomersResult{
		RevenueFromRepeatCustomers: unscaleAmount(0),
		Customers:                  []kpi.RepeatCustomer{},
	}
	for rows.Next() {
		var (
			id     string
			count  int
			scaled int64
		)
		if err := rows.Scan(&id, &count, &scaled); err != nil {
			return nil, fmt.Errorf("scan repeat customer row: %w", err)
		}
		res.TotalCustomerCount++
		if count < 2 {
			continue
		}
		spend := unscaleAmount(scaled)
		res.RepeatCustomerCount++
		res.RevenueFromRepeatCustomers = res.RevenueFromRepeatCustomers.Add(spend)
		res.Customers = append(res.Customers, kpi.RepeatCustomer{
			CustomerID: id,
			OrderCount: count,
			TotalSpend: spend,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repeat customer rows: %w", err)
	}

	res.RetentionRate = kpi.RetentionRate(res.RepeatCustomerCount, res.TotalCustomerCount)
	return res, nil
}

// MonthlyTrends buckets joined orders by calendar month in SQL; growth rates
// come from the shared finishing helpers.
func (e *Engine) MonthlyTrends(ctx context.Context) (*kpi.MonthlyTrendsResult, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT substr(o.order_date_time, 1, 7), COUNT(o.order_id), SUM(o.total_amount_scaled)
		FROM orders o
		JOIN customers c ON c.mobile_number = o.mobile_number
		GROUP BY 1
		ORDER BY 1 ASC`)
	if err != nil {
		return nil, fmt.Errorf("query monthly trends: %w", err)
	}
	defer rows.Close()

	months := []kpi.MonthBucket{}
	for rows.Next() {
		var (
			month  string
			count  int
			scaled int64
		)
		if err := rows.Scan(&month, &count, &scaled); err != nil {
			return nil, fmt.Errorf("scan month bucket: %w", err)
		}
		months = append(months, kpi.MonthBucket{
			Month:      month,
			OrderCount: count,
			Revenue:    unscaleAmount(scaled),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate month buckets: %w", err)
	}

	months = kpi.FinishMonthlyTrends(months)
	return &kpi.MonthlyTrendsResult{
		Months:           months,
		AvgMonthlyGrowth: kpi.AvgMonthlyGrowth(months),
	}, nil
}

// RegionalRevenue aggregates revenue, order count and distinct customers per
// region in SQL, sorted by descending revenue then region name.
func (e *Engine) RegionalRevenue(ctx context.Context) (*kpi.RegionalRevenueResult, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT c.region, SUM(o.total_amount_scaled), COUNT(o.order_id), COUNT(DISTINCT c.customer_id)
		FROM orders o
		JOIN customers c ON c.mobile_number = o.mobile_number
		GROUP BY c.region
		ORDER BY SUM(o.total_amount_scaled) DESC, c.region ASC`)
	if err != nil {
		return nil, fmt.Errorf("query regional revenue: %w", err)
	}
	defer rows.Close()

	res := &kpi.RegionalRevenueResult{Regions: []kpi.RegionBucket{}}
	for rows.Next() {
		var (
			region    string
			scaled    int64
			orders    int
			customers int
		)
		if err := rows.Scan(&region, &scaled, &orders, &customers); err != nil {
			return nil, fmt.Errorf("scan region bucket: %w", err)
		}
		revenue := unscaleAmount(scaled)
		res.Regions = append(res.Regions, kpi.RegionBucket{
			Region:        region,
			Revenue:       revenue,
			OrderCount:    orders,
			CustomerCount: customers,
			AvgOrder:      kpi.AvgOrder(revenue, orders),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate region buckets: %w", err)
	}

	res.TotalRegions = len(res.Regions)
	if res.TotalRegions > 0 {
		res.TopRegion = res.Regions[0].Region
	}
	return res, nil
}

// TopCustomers ranks customers by spend inside the inclusive trailing window
// ending at the reference timestamp.
func (e *Engine) TopCustomers(ctx context.Context, reference time.Time) (*kpi.TopCustomersResult, error) {
	start := e.cfg.WindowStart(reference)
	from, to := formatWindow(start, reference)

	rows, err := e.db.QueryContext(ctx, `
		SELECT c.customer_id, c.customer_name, c.region,
		       SUM(o.total_amount_scaled), COUNT(o.order_id)
		FROM orders o
		JOIN customers c ON c.mobile_number = o.mobile_number
		WHERE o.order_date_time BETWEEN ? AND ?
		GROUP BY c.customer_id, c.customer_name, c.region
		ORDER BY SUM(o.total_amount_scaled) DESC, c.customer_id ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query top customers: %w", err)
	}
	defer rows.Close()

	ranked := []kpi.TopCustomer{}
	segments := map[string]int{
		kpi.SegmentVIP:       0,
		kpi.SegmentHighValue: 0,
		kpi.SegmentRegular:   0,
	}
	for rows.Next() {
		var (
			tc     kpi.TopCustomer
			scaled int64
		)
		if err := rows.Scan(&tc.CustomerID, &tc.CustomerName, &tc.Region, &scaled, &tc.OrderCount); err != nil {
			return nil, fmt.Errorf("scan top customer row: %w", err)
		}
		tc.TotalSpent = unscaleAmount(scaled)
		tc.Segment = e.cfg.Segment(tc.TotalSpent)
		segments[tc.Segment]++
		ranked = append(ranked, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top customer rows: %w", err)
	}

	if len(ranked) > e.cfg.TopN {
		ranked = ranked[:e.cfg.TopN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return &kpi.TopCustomersResult{
		Customers:     ranked,
		SegmentCounts: segments,
		WindowStart:   start,
		WindowEnd:     reference,
	}, nil
}
