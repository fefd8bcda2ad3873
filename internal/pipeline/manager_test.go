package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailkpi/internal/kpi"
	"retailkpi/internal/validation"
)

const testCustomersCSV = `customer_id,customer_name,mobile_number,region
CUST001,priya sharma,9876543210,North
CUST002,rohan patel,+91 87654 32109,South
CUST003,broken row,12345,East
`

const testOrdersXML = `<?xml version="1.0" encoding="UTF-8"?>
<orders>
  <order>
    <order_id>ORD001</order_id>
    <mobile_number>9876543210</mobile_number>
    <order_date_time>2024-03-10T09:00:00</order_date_time>
    <sku_id>SKU001</sku_id>
    <sku_count>1</sku_count>
    <total_amount>500.00</total_amount>
  </order>
  <order>
    <order_id>ORD002</order_id>
    <mobile_number>9876543210</mobile_number>
    <order_date_time>2024-03-20T09:00:00</order_date_time>
    <sku_id>SKU002</sku_id>
    <sku_count>2</sku_count>
    <total_amount>400.00</total_amount>
  </order>
  <order>
    <order_id>ORD003</order_id>
    <mobile_number>8765432109</mobile_number>
    <order_date_time>2024-03-15T09:00:00</order_date_time>
    <sku_id>SKU003</sku_id>
    <sku_count>1</sku_count>
    <total_amount>600.00</total_amount>
  </order>
  <order>
    <order_id>ORD004</order_id>
    <mobile_number>9876543210</mobile_number>
    <order_date_time>bogus</order_date_time>
    <sku_id>SKU004</sku_id>
    <sku_count>1</sku_count>
    <total_amount>100.00</total_amount>
  </order>
</orders>
`

func writeExtracts(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	customersPath := filepath.Join(dir, "customers.csv")
	ordersPath := filepath.Join(dir, "orders.xml")
	require.NoError(t, os.WriteFile(customersPath, []byte(testCustomersCSV), 0644))
	require.NoError(t, os.WriteFile(ordersPath, []byte(testOrdersXML), 0644))
	return customersPath, ordersPath
}

func TestManager_Run(t *testing.T) {
	for _, engine := range []string{EngineMemory, EngineTable} {
		t.Run(engine, func(t *testing.T) {
			customersPath, ordersPath := writeExtracts(t)
			m := NewManager(kpi.DefaultConfig(), nil, nil)

			report, err := m.Run(context.Background(), customersPath, ordersPath, RunOptions{
				Engine:    engine,
				Reference: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			require.NotNil(t, report)

			assert.Equal(t, engine, report.Engine)
			assert.NotEmpty(t, report.RunID)

			repeat := report.RepeatCustomers()
			assert.Equal(t, 1, repeat.RepeatCustomerCount)
			assert.Equal(t, 2, repeat.TotalCustomerCount)

			// One customer row and one order row were malformed.
			prov := report.KPIs[kpi.NameRepeatCustomers].InputRowCounts
			assert.Equal(t, 2, prov.CleanCustomers)
			assert.Equal(t, 3, prov.CleanOrders)
			assert.Equal(t, 1, prov.RejectedCustomers)
			assert.Equal(t, 1, prov.RejectedOrders)
			assert.Zero(t, prov.UnmatchedOrders)

			status := m.Status()
			require.NotNil(t, status)
			assert.Equal(t, report.RunID, status.RunID)
			require.NotNil(t, status.FinishedAt)
			require.Len(t, status.Stages, 4)
			for _, stage := range status.Stages {
				assert.Equal(t, StageStatusCompleted, stage.CurrentStatus(), "stage %s", stage.ID)
			}
		})
	}
}

func TestManager_Run_EnginesAgree(t *testing.T) {
	customersPath, ordersPath := writeExtracts(t)
	reference := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	memManager := NewManager(kpi.DefaultConfig(), nil, nil)
	memReport, err := memManager.Run(context.Background(), customersPath, ordersPath, RunOptions{
		Engine: EngineMemory, Reference: reference,
	})
	require.NoError(t, err)

	tblManager := NewManager(kpi.DefaultConfig(), nil, nil)
	tblReport, err := tblManager.Run(context.Background(), customersPath, ordersPath, RunOptions{
		Engine: EngineTable, Reference: reference,
	})
	require.NoError(t, err)

	memTop := memReport.TopCustomers()
	tblTop := tblReport.TopCustomers()
	require.Equal(t, len(memTop.Customers), len(tblTop.Customers))
	for i := range memTop.Customers {
		assert.Equal(t, memTop.Customers[i].CustomerID, tblTop.Customers[i].CustomerID)
		assert.True(t, memTop.Customers[i].TotalSpent.Equal(tblTop.Customers[i].TotalSpent))
	}
}

func TestManager_Run_Idempotent(t *testing.T) {
	customersPath, ordersPath := writeExtracts(t)
	m := NewManager(kpi.DefaultConfig(), nil, nil)
	reference := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	first, err := m.Run(context.Background(), customersPath, ordersPath, RunOptions{Reference: reference})
	require.NoError(t, err)
	second, err := m.Run(context.Background(), customersPath, ordersPath, RunOptions{Reference: reference})
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.True(t, first.RepeatCustomers().RevenueFromRepeatCustomers.Equal(
		second.RepeatCustomers().RevenueFromRepeatCustomers))
	assert.Equal(t, first.RegionalRevenue().TopRegion, second.RegionalRevenue().TopRegion)
}

func TestManager_Run_InvalidConfig(t *testing.T) {
	cfg := kpi.DefaultConfig()
	cfg.TopN = 0
	m := NewManager(cfg, nil, nil)

	_, err := m.Run(context.Background(), "unused.csv", "unused.xml", RunOptions{})
	require.Error(t, err)

	var cfgErr *kpi.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	// Config is rejected before any file is touched, so no run status exists.
	assert.Nil(t, m.Status())
}

func TestManager_Run_UnknownEngine(t *testing.T) {
	m := NewManager(kpi.DefaultConfig(), nil, nil)

	_, err := m.Run(context.Background(), "unused.csv", "unused.xml", RunOptions{Engine: "quantum"})
	require.Error(t, err)

	var cfgErr *kpi.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "engine", cfgErr.Field)
}

func TestManager_Run_MissingFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(kpi.DefaultConfig(), nil, nil)

	_, err := m.Run(context.Background(), filepath.Join(dir, "nope.csv"), filepath.Join(dir, "nope.xml"), RunOptions{})
	require.Error(t, err)

	status := m.Status()
	require.NotNil(t, status)
	assert.NotEmpty(t, status.Error)
	assert.Equal(t, StageStatusFailed, status.Stages[0].CurrentStatus())
}

func TestManager_Run_EmptyOrdersAborts(t *testing.T) {
	dir := t.TempDir()
	customersPath := filepath.Join(dir, "customers.csv")
	ordersPath := filepath.Join(dir, "orders.xml")
	require.NoError(t, os.WriteFile(customersPath, []byte(testCustomersCSV), 0644))
	require.NoError(t, os.WriteFile(ordersPath, []byte(`<?xml version="1.0"?><orders></orders>`), 0644))

	m := NewManager(kpi.DefaultConfig(), nil, nil)
	_, err := m.Run(context.Background(), customersPath, ordersPath, RunOptions{})
	require.Error(t, err)

	var emptyErr *validation.EmptyDatasetError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, "orders", emptyErr.Dataset)
}

func TestManager_Run_CancelledContext(t *testing.T) {
	customersPath, ordersPath := writeExtracts(t)
	m := NewManager(kpi.DefaultConfig(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Run(ctx, customersPath, ordersPath, RunOptions{})
	require.Error(t, err)
}

func TestManager_Status_ReturnsCopy(t *testing.T) {
	customersPath, ordersPath := writeExtracts(t)
	m := NewManager(kpi.DefaultConfig(), nil, nil)

	_, err := m.Run(context.Background(), customersPath, ordersPath, RunOptions{})
	require.NoError(t, err)

	status := m.Status()
	require.NotNil(t, status)
	require.Len(t, status.Stages, 4)

	// Mutating the returned copy must not leak into the manager's state.
	status.Stages[0].Status = StageStatusFailed
	status.Error = "mutated"

	fresh := m.Status()
	assert.Equal(t, StageStatusCompleted, fresh.Stages[0].Status)
	assert.Empty(t, fresh.Error)
}

func TestManager_Status_ConcurrentWithRun(t *testing.T) {
	customersPath, ordersPath := writeExtracts(t)
	m := NewManager(kpi.DefaultConfig(), nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.Run(context.Background(), customersPath, ordersPath, RunOptions{})
		done <- err
	}()

	// Serialize status snapshots while the run mutates stage states.
	for {
		if status := m.Status(); status != nil {
			_, err := json.Marshal(status)
			require.NoError(t, err)
		}
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		default:
		}
	}
}
