package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailkpi/internal/dataset"
	"retailkpi/internal/kpi"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// twoCustomerSnapshot has one repeat customer (North) and one single-order
// customer (South) spread over three months.
func twoCustomerSnapshot() *dataset.Snapshot {
	customers := []dataset.Customer{
		{CustomerID: "CUST001", CustomerName: "Priya Sharma", MobileNumber: "9876543210", Region: "North"},
		{CustomerID: "CUST002", CustomerName: "Rohan Patel", MobileNumber: "8765432109", Region: "South"},
	}
	orders := []dataset.Order{
		{OrderID: "ORD001", MobileNumber: "9876543210", OrderDateTime: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), TotalAmount: amount("100.00")},
		{OrderID: "ORD002", MobileNumber: "9876543210", OrderDateTime: time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC), TotalAmount: amount("150.00")},
		{OrderID: "ORD003", MobileNumber: "8765432109", OrderDateTime: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), TotalAmount: amount("200.00")},
	}
	return dataset.Enrich(customers, orders)
}

func TestEngine_RepeatCustomers(t *testing.T) {
	engine := NewEngine(twoCustomerSnapshot(), kpi.DefaultConfig(), nil)

	res, err := engine.RepeatCustomers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.RepeatCustomerCount)
	assert.Equal(t, 2, res.TotalCustomerCount)
	assert.InDelta(t, 0.5, res.RetentionRate, 1e-9)
	assert.True(t, res.RevenueFromRepeatCustomers.Equal(amount("250.00")),
		"got %s", res.RevenueFromRepeatCustomers)

	require.Len(t, res.Customers, 1)
	assert.Equal(t, "CUST001", res.Customers[0].CustomerID)
	assert.Equal(t, 2, res.Customers[0].OrderCount)
}

func TestEngine_RepeatCustomers_NoOrders(t *testing.T) {
	snap := dataset.Enrich([]dataset.Customer{
		{CustomerID: "CUST001", MobileNumber: "9876543210", Region: "North"},
	}, nil)
	engine := NewEngine(snap, kpi.DefaultConfig(), nil)

	res, err := engine.RepeatCustomers(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.RepeatCustomerCount)
	assert.Zero(t, res.TotalCustomerCount)
	assert.Equal(t, 0.0, res.RetentionRate)
	assert.Empty(t, res.Customers)
}

func TestEngine_MonthlyTrends(t *testing.T) {
	engine := NewEngine(twoCustomerSnapshot(), kpi.DefaultConfig(), nil)

	res, err := engine.MonthlyTrends(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Months, 3)
	assert.Equal(t, "2024-01", res.Months[0].Month)
	assert.Equal(t, "2024-02", res.Months[1].Month)
	assert.Equal(t, "2024-03", res.Months[2].Month)

	assert.Equal(t, 0.0, res.Months[0].GrowthRate)
	assert.InDelta(t, 0.5, res.Months[1].GrowthRate, 1e-9)     // 100 -> 150
	assert.InDelta(t, 1.0/3.0, res.Months[2].GrowthRate, 1e-9) // 150 -> 200
	assert.InDelta(t, (0.5+1.0/3.0)/2, res.AvgMonthlyGrowth, 1e-9)
}

func TestEngine_MonthlyTrends_NoOrders(t *testing.T) {
	snap := dataset.Enrich([]dataset.Customer{
		{CustomerID: "CUST001", MobileNumber: "9876543210", Region: "North"},
	}, nil)
	engine := NewEngine(snap, kpi.DefaultConfig(), nil)

	res, err := engine.MonthlyTrends(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Months)
	assert.Equal(t, 0.0, res.AvgMonthlyGrowth)
}

func TestEngine_RegionalRevenue(t *testing.T) {
	engine := NewEngine(twoCustomerSnapshot(), kpi.DefaultConfig(), nil)

	res, err := engine.RegionalRevenue(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Regions, 2)
	assert.Equal(t, "North", res.TopRegion)
	assert.Equal(t, 2, res.TotalRegions)

	north := res.Regions[0]
	assert.Equal(t, "North", north.Region)
	assert.True(t, north.Revenue.Equal(amount("250.00")), "got %s", north.Revenue)
	assert.Equal(t, 2, north.OrderCount)
	assert.Equal(t, 1, north.CustomerCount)
	assert.True(t, north.AvgOrder.Equal(amount("125.00")), "got %s", north.AvgOrder)

	south := res.Regions[1]
	assert.Equal(t, "South", south.Region)
	assert.True(t, south.Revenue.Equal(amount("200.00")), "got %s", south.Revenue)
}

func TestEngine_RegionalRevenue_RevenueTieBreaksOnName(t *testing.T) {
	customers := []dataset.Customer{
		{CustomerID: "CUST001", MobileNumber: "9876543210", Region: "West"},
		{CustomerID: "CUST002", MobileNumber: "8765432109", Region: "East"},
	}
	orders := []dataset.Order{
		{OrderID: "ORD001", MobileNumber: "9876543210", OrderDateTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), TotalAmount: amount("100.00")},
		{OrderID: "ORD002", MobileNumber: "8765432109", OrderDateTime: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), TotalAmount: amount("100.00")},
	}
	engine := NewEngine(dataset.Enrich(customers, orders), kpi.DefaultConfig(), nil)

	res, err := engine.RegionalRevenue(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Regions, 2)
	assert.Equal(t, "East", res.Regions[0].Region)
	assert.Equal(t, "East", res.TopRegion)
}

func TestEngine_TopCustomers(t *testing.T) {
	reference := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	customers := []dataset.Customer{
		{CustomerID: "CUST001", CustomerName: "Priya Sharma", MobileNumber: "9876543210", Region: "North"},
		{CustomerID: "CUST002", CustomerName: "Rohan Patel", MobileNumber: "8765432109", Region: "South"},
		{CustomerID: "CUST003", CustomerName: "Meera Iyer", MobileNumber: "7654321098", Region: "East"},
	}
	orders := []dataset.Order{
		// In window: VIP spend.
		{OrderID: "ORD001", MobileNumber: "9876543210", OrderDateTime: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), TotalAmount: amount("500.00")},
		{OrderID: "ORD002", MobileNumber: "9876543210", OrderDateTime: time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC), TotalAmount: amount("400.00")},
		// In window: High Value spend.
		{OrderID: "ORD003", MobileNumber: "8765432109", OrderDateTime: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), TotalAmount: amount("600.00")},
		// Outside the window entirely.
		{OrderID: "ORD004", MobileNumber: "7654321098", OrderDateTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), TotalAmount: amount("999.00")},
	}
	engine := NewEngine(dataset.Enrich(customers, orders), kpi.DefaultConfig(), nil)

	res, err := engine.TopCustomers(context.Background(), reference)
	require.NoError(t, err)

	require.Len(t, res.Customers, 2)
	assert.Equal(t, 1, res.Customers[0].Rank)
	assert.Equal(t, "CUST001", res.Customers[0].CustomerID)
	assert.Equal(t, kpi.SegmentVIP, res.Customers[0].Segment)
	assert.True(t, res.Customers[0].TotalSpent.Equal(amount("900.00")))

	assert.Equal(t, 2, res.Customers[1].Rank)
	assert.Equal(t, "CUST002", res.Customers[1].CustomerID)
	assert.Equal(t, kpi.SegmentHighValue, res.Customers[1].Segment)

	assert.Equal(t, 1, res.SegmentCounts[kpi.SegmentVIP])
	assert.Equal(t, 1, res.SegmentCounts[kpi.SegmentHighValue])
	assert.Equal(t, 0, res.SegmentCounts[kpi.SegmentRegular])

	assert.Equal(t, reference, res.WindowEnd)
	assert.Equal(t, reference.AddDate(0, 0, -30), res.WindowStart)
}

func TestEngine_TopCustomers_WindowBoundariesInclusive(t *testing.T) {
	reference := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	start := reference.AddDate(0, 0, -30)

	customers := []dataset.Customer{
		{CustomerID: "CUST001", MobileNumber: "9876543210", Region: "North"},
		{CustomerID: "CUST002", MobileNumber: "8765432109", Region: "South"},
		{CustomerID: "CUST003", MobileNumber: "7654321098", Region: "East"},
	}
	orders := []dataset.Order{
		{OrderID: "ORD001", MobileNumber: "9876543210", OrderDateTime: start, TotalAmount: amount("10.00")},
		{OrderID: "ORD002", MobileNumber: "8765432109", OrderDateTime: reference, TotalAmount: amount("20.00")},
		{OrderID: "ORD003", MobileNumber: "7654321098", OrderDateTime: start.Add(-time.Second), TotalAmount: amount("30.00")},
	}
	engine := NewEngine(dataset.Enrich(customers, orders), kpi.DefaultConfig(), nil)

	res, err := engine.TopCustomers(context.Background(), reference)
	require.NoError(t, err)

	ids := make([]string, 0, len(res.Customers))
	for _, c := range res.Customers {
		ids = append(ids, c.CustomerID)
	}
	assert.ElementsMatch(t, []string{"CUST001", "CUST002"}, ids)
}

func TestEngine_TopCustomers_TruncatesToTopN(t *testing.T) {
	reference := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	customers := make([]dataset.Customer, 0, 5)
	orders := make([]dataset.Order, 0, 5)
	mobiles := []string{"9000000001", "9000000002", "9000000003", "9000000004", "9000000005"}
	for i, m := range mobiles {
		customers = append(customers, dataset.Customer{
			CustomerID:   "CUST00" + string(rune('1'+i)),
			MobileNumber: m,
			Region:       "North",
		})
		orders = append(orders, dataset.Order{
			OrderID:       "ORD00" + string(rune('1'+i)),
			MobileNumber:  m,
			OrderDateTime: reference.AddDate(0, 0, -i),
			TotalAmount:   decimal.NewFromInt(int64(1000 - i*100)),
		})
	}

	cfg := kpi.DefaultConfig()
	cfg.TopN = 2
	engine := NewEngine(dataset.Enrich(customers, orders), cfg, nil)

	res, err := engine.TopCustomers(context.Background(), reference)
	require.NoError(t, err)

	require.Len(t, res.Customers, 2)
	// Segment counts cover all five window customers, not only the top two.
	total := 0
	for _, n := range res.SegmentCounts {
		total += n
	}
	assert.Equal(t, 5, total)
}

func TestEngine_CancelledContext(t *testing.T) {
	engine := NewEngine(twoCustomerSnapshot(), kpi.DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.RepeatCustomers(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
