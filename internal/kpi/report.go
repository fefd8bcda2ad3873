package kpi

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Provenance records the input row counts a KPI result was computed from.
type Provenance struct {
	CleanCustomers    int `json:"clean_customers"`
	CleanOrders       int `json:"clean_orders"`
	RejectedCustomers int `json:"rejected_customers"`
	RejectedOrders    int `json:"rejected_orders"`
	UnmatchedOrders   int `json:"unmatched_orders"`
}

// KPIResult tags one KPI's result structure with its calculation timestamp
// and provenance block.
type KPIResult struct {
	Name                 string      `json:"name"`
	CalculationTimestamp time.Time   `json:"calculation_timestamp"`
	InputRowCounts       Provenance  `json:"input_row_counts"`
	Data                 interface{} `json:"data"`
}

// Report maps KPI name to its tagged result. This is the structure handed
// to export and report collaborators.
type Report struct {
	RunID       string               `json:"run_id"`
	Engine      string               `json:"engine"`
	Reference   time.Time            `json:"reference_timestamp"`
	GeneratedAt time.Time            `json:"generated_at"`
	KPIs        map[string]KPIResult `json:"kpis"`
}

// RepeatCustomers returns the repeat-customers result from the report.
func (r *Report) RepeatCustomers() *RepeatCustomersResult {
	return r.KPIs[NameRepeatCustomers].Data.(*RepeatCustomersResult)
}

// MonthlyTrends returns the monthly-trends result from the report.
func (r *Report) MonthlyTrends() *MonthlyTrendsResult {
	return r.KPIs[NameMonthlyTrends].Data.(*MonthlyTrendsResult)
}

// RegionalRevenue returns the regional-revenue result from the report.
func (r *Report) RegionalRevenue() *RegionalRevenueResult {
	return r.KPIs[NameRegionalRevenue].Data.(*RegionalRevenueResult)
}

// TopCustomers returns the top-customers result from the report.
func (r *Report) TopCustomers() *TopCustomersResult {
	return r.KPIs[NameTopCustomers].Data.(*TopCustomersResult)
}

// Aggregate runs the four calculators against the strategy and collects
// their results into one report. The calculators are independent and run
// concurrently; any failure or context cancellation aborts the whole run
// with no partial report.
func Aggregate(ctx context.Context, runID string, s Strategy, reference time.Time, prov Provenance) (*Report, error) {
	var (
		repeat   *RepeatCustomersResult
		trends   *MonthlyTrendsResult
		regional *RegionalRevenueResult
		top      *TopCustomersResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if repeat, err = s.RepeatCustomers(gctx); err != nil {
			return fmt.Errorf("repeat customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if trends, err = s.MonthlyTrends(gctx); err != nil {
			return fmt.Errorf("monthly trends: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if regional, err = s.RegionalRevenue(gctx); err != nil {
			return fmt.Errorf("regional revenue: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if top, err = s.TopCustomers(gctx, reference); err != nil {
			return fmt.Errorf("top customers: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Report{
		RunID:       runID,
		Engine:      s.Name(),
		Reference:   reference,
		GeneratedAt: now,
		KPIs: map[string]KPIResult{
			NameRepeatCustomers: {Name: NameRepeatCustomers, CalculationTimestamp: now, InputRowCounts: prov, Data: repeat},
			NameMonthlyTrends:   {Name: NameMonthlyTrends, CalculationTimestamp: now, InputRowCounts: prov, Data: trends},
			NameRegionalRevenue: {Name: NameRegionalRevenue, CalculationTimestamp: now, InputRowCounts: prov, Data: regional},
			NameTopCustomers:    {Name: NameTopCustomers, CalculationTimestamp: now, InputRowCounts: prov, Data: top},
		},
	}, nil
}
