// Package kpi defines the calculation contracts shared by the execution
// strategies: result structures for the four KPIs, the Strategy interface
// both engines implement, and the derivation helpers that keep derived
// ratios identical across engines.
package kpi

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// KPI names used as keys in the aggregated report.
const (
	NameRepeatCustomers = "repeat_customers"
	NameMonthlyTrends   = "monthly_trends"
	NameRegionalRevenue = "regional_revenue"
	NameTopCustomers    = "top_customers"
)

// Strategy is the contract both execution engines implement. Given the same
// validated snapshot and reference timestamp, every implementation must
// produce identical results.
type Strategy interface {
	// Name identifies the engine ("memory" or "table").
	Name() string

	RepeatCustomers(ctx context.Context) (*RepeatCustomersResult, error)
	MonthlyTrends(ctx context.Context) (*MonthlyTrendsResult, error)
	RegionalRevenue(ctx context.Context) (*RegionalRevenueResult, error)
	TopCustomers(ctx context.Context, reference time.Time) (*TopCustomersResult, error)
}

// RepeatCustomer is one row of the repeat-customers sub-listing.
type RepeatCustomer struct {
	CustomerID string          `json:"customer_id"`
	OrderCount int             `json:"order_count"`
	TotalSpend decimal.Decimal `json:"total_spend"`
}

// RepeatCustomersResult is the repeat-customers KPI output. Customer counts
// are over distinct customers with at least one enriched order.
type RepeatCustomersResult struct {
	RepeatCustomerCount        int              `json:"repeat_customer_count"`
	TotalCustomerCount         int              `json:"total_customer_count"`
	RetentionRate              float64          `json:"retention_rate"`
	RevenueFromRepeatCustomers decimal.Decimal  `json:"revenue_from_repeat_customers"`
	Customers                  []RepeatCustomer `json:"customers"`
}

// MonthBucket is one calendar month of order activity, keyed YYYY-MM.
type MonthBucket struct {
	Month      string          `json:"month"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
	GrowthRate float64         `json:"growth_rate"`
}

// MonthlyTrendsResult is the monthly-trends KPI output, buckets sorted
// chronologically ascending.
type MonthlyTrendsResult struct {
	Months           []MonthBucket `json:"months"`
	AvgMonthlyGrowth float64       `json:"avg_monthly_growth"`
}

// RegionBucket aggregates enriched orders for one region.
type RegionBucket struct {
	Region        string          `json:"region"`
	Revenue       decimal.Decimal `json:"revenue"`
	OrderCount    int             `json:"order_count"`
	CustomerCount int             `json:"customer_count"`
	AvgOrder      decimal.Decimal `json:"avg_order"`
}

// RegionalRevenueResult is the regional-revenue KPI output, buckets sorted
// by descending revenue then ascending region name.
type RegionalRevenueResult struct {
	Regions      []RegionBucket `json:"regions"`
	TopRegion    string         `json:"top_region"`
	TotalRegions int            `json:"total_regions"`
}

// TopCustomer is one ranked customer in the trailing spend window.
type TopCustomer struct {
	Rank         int             `json:"rank"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Region       string          `json:"region"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	OrderCount   int             `json:"order_count"`
	Segment      string          `json:"segment"`
}

// TopCustomersResult is the top-customers KPI output. SegmentCounts covers
// every customer active in the window, not only the top-N listing.
type TopCustomersResult struct {
	Customers     []TopCustomer  `json:"customers"`
	SegmentCounts map[string]int `json:"segment_counts"`
	WindowStart   time.Time      `json:"window_start"`
	WindowEnd     time.Time      `json:"window_end"`
}
