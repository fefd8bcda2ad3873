package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailkpi/internal/dataset"
)

func validCustomerRow(row int, id, mobile string) dataset.RawCustomer {
	return dataset.RawCustomer{
		Row:          row,
		CustomerID:   id,
		CustomerName: "test customer",
		MobileNumber: mobile,
		Region:       "North",
	}
}

func validOrderRow(row int, id, mobile string) dataset.RawOrder {
	return dataset.RawOrder{
		Row:           row,
		OrderID:       id,
		MobileNumber:  mobile,
		OrderDateTime: "2024-03-15T10:00:00",
		SKUID:         "SKU001",
		SKUCount:      "2",
		TotalAmount:   "199.99",
	}
}

func TestValidator_CleanRows(t *testing.T) {
	v := New(nil)

	res, err := v.Validate(
		[]dataset.RawCustomer{validCustomerRow(2, "CUST001", "9876543210")},
		[]dataset.RawOrder{validOrderRow(1, "ORD001", "9876543210")},
	)
	require.NoError(t, err)

	require.Len(t, res.Customers, 1)
	require.Len(t, res.Orders, 1)
	assert.Empty(t, res.Rejects)

	cust := res.Customers[0]
	assert.Equal(t, "CUST001", cust.CustomerID)
	assert.Equal(t, "Test Customer", cust.CustomerName)
	assert.Equal(t, "9876543210", cust.MobileNumber)

	order := res.Orders[0]
	assert.Equal(t, 2, order.SKUCount)
	assert.Equal(t, "199.99", order.TotalAmount.StringFixed(2))
}

func TestValidator_CustomerRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dataset.RawCustomer)
		reason RejectReason
	}{
		{
			name:   "missing id",
			mutate: func(c *dataset.RawCustomer) { c.CustomerID = "" },
			reason: ReasonMissingField,
		},
		{
			name:   "missing name",
			mutate: func(c *dataset.RawCustomer) { c.CustomerName = "  " },
			reason: ReasonMissingField,
		},
		{
			name:   "invalid mobile",
			mutate: func(c *dataset.RawCustomer) { c.MobileNumber = "12345" },
			reason: ReasonInvalidMobile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(nil)

			bad := validCustomerRow(3, "CUST002", "8765432109")
			tt.mutate(&bad)

			res, err := v.Validate(
				[]dataset.RawCustomer{validCustomerRow(2, "CUST001", "9876543210"), bad},
				[]dataset.RawOrder{validOrderRow(1, "ORD001", "9876543210")},
			)
			require.NoError(t, err)

			require.Len(t, res.Customers, 1)
			require.Len(t, res.Rejects, 1)
			assert.Equal(t, tt.reason, res.Rejects[0].Reason)
			assert.Equal(t, "customers", res.Rejects[0].Source)
			assert.Equal(t, 3, res.Rejects[0].Row)
		})
	}
}

func TestValidator_DuplicateCustomerID_FirstWins(t *testing.T) {
	v := New(nil)

	res, err := v.Validate(
		[]dataset.RawCustomer{
			validCustomerRow(2, "CUST001", "9876543210"),
			validCustomerRow(3, "CUST001", "8765432109"),
		},
		[]dataset.RawOrder{validOrderRow(1, "ORD001", "9876543210")},
	)
	require.NoError(t, err)

	require.Len(t, res.Customers, 1)
	assert.Equal(t, "9876543210", res.Customers[0].MobileNumber)
	require.Len(t, res.Rejects, 1)
	assert.Equal(t, ReasonDuplicateID, res.Rejects[0].Reason)
}

func TestValidator_DuplicateMobile_LaterCustomerRejected(t *testing.T) {
	v := New(nil)

	res, err := v.Validate(
		[]dataset.RawCustomer{
			validCustomerRow(2, "CUST001", "9876543210"),
			validCustomerRow(3, "CUST002", "9876543210"),
		},
		[]dataset.RawOrder{validOrderRow(1, "ORD001", "9876543210")},
	)
	require.NoError(t, err)

	require.Len(t, res.Customers, 1)
	assert.Equal(t, "CUST001", res.Customers[0].CustomerID)
	require.Len(t, res.Rejects, 1)
	assert.Equal(t, ReasonDuplicateMobile, res.Rejects[0].Reason)
	assert.Contains(t, res.Rejects[0].Detail, "CUST001")
}

func TestValidator_OrderRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dataset.RawOrder)
		reason RejectReason
	}{
		{
			name:   "missing amount",
			mutate: func(o *dataset.RawOrder) { o.TotalAmount = "" },
			reason: ReasonMissingField,
		},
		{
			name:   "bad timestamp",
			mutate: func(o *dataset.RawOrder) { o.OrderDateTime = "not-a-date" },
			reason: ReasonInvalidTimestamp,
		},
		{
			name:   "unparseable amount",
			mutate: func(o *dataset.RawOrder) { o.TotalAmount = "12.3.4" },
			reason: ReasonInvalidAmount,
		},
		{
			name:   "negative amount",
			mutate: func(o *dataset.RawOrder) { o.TotalAmount = "-5.00" },
			reason: ReasonNegativeAmount,
		},
		{
			name:   "amount finer than four decimal places",
			mutate: func(o *dataset.RawOrder) { o.TotalAmount = "100.00001" },
			reason: ReasonAmountPrecision,
		},
		{
			name:   "zero sku count",
			mutate: func(o *dataset.RawOrder) { o.SKUCount = "0" },
			reason: ReasonInvalidSKUCount,
		},
		{
			name:   "invalid mobile",
			mutate: func(o *dataset.RawOrder) { o.MobileNumber = "abc" },
			reason: ReasonInvalidMobile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(nil)

			bad := validOrderRow(2, "ORD002", "9876543210")
			tt.mutate(&bad)

			res, err := v.Validate(
				[]dataset.RawCustomer{validCustomerRow(2, "CUST001", "9876543210")},
				[]dataset.RawOrder{validOrderRow(1, "ORD001", "9876543210"), bad},
			)
			require.NoError(t, err)

			require.Len(t, res.Orders, 1)
			require.Len(t, res.Rejects, 1)
			assert.Equal(t, tt.reason, res.Rejects[0].Reason)
			assert.Equal(t, "orders", res.Rejects[0].Source)
		})
	}
}

func TestValidator_TrailingZeroAmountKept(t *testing.T) {
	v := New(nil)

	order := validOrderRow(1, "ORD001", "9876543210")
	order.TotalAmount = "100.00000"

	res, err := v.Validate(
		[]dataset.RawCustomer{validCustomerRow(1, "CUST001", "9876543210")},
		[]dataset.RawOrder{order},
	)
	require.NoError(t, err)

	require.Len(t, res.Orders, 1)
	assert.Empty(t, res.Rejects)
	assert.True(t, res.Orders[0].TotalAmount.Equal(decimal.NewFromInt(100)))
}

func TestValidator_DuplicateOrderID_FirstWins(t *testing.T) {
	v := New(nil)

	first := validOrderRow(1, "ORD001", "9876543210")
	second := validOrderRow(2, "ORD001", "9876543210")
	second.TotalAmount = "999.00"

	res, err := v.Validate(
		[]dataset.RawCustomer{validCustomerRow(2, "CUST001", "9876543210")},
		[]dataset.RawOrder{first, second},
	)
	require.NoError(t, err)

	require.Len(t, res.Orders, 1)
	assert.Equal(t, "199.99", res.Orders[0].TotalAmount.StringFixed(2))
}

func TestValidator_MissingSKUCountDefaultsToOne(t *testing.T) {
	v := New(nil)

	order := validOrderRow(1, "ORD001", "9876543210")
	order.SKUCount = ""

	res, err := v.Validate(
		[]dataset.RawCustomer{validCustomerRow(2, "CUST001", "9876543210")},
		[]dataset.RawOrder{order},
	)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, 1, res.Orders[0].SKUCount)
}

func TestValidator_EmptyDatasets(t *testing.T) {
	t.Run("all customers rejected", func(t *testing.T) {
		v := New(nil)

		_, err := v.Validate(
			[]dataset.RawCustomer{validCustomerRow(2, "", "9876543210")},
			[]dataset.RawOrder{validOrderRow(1, "ORD001", "9876543210")},
		)
		require.Error(t, err)

		var emptyErr *EmptyDatasetError
		require.ErrorAs(t, err, &emptyErr)
		assert.Equal(t, "customers", emptyErr.Dataset)
		assert.Equal(t, 1, emptyErr.Input)
		assert.Equal(t, 1, emptyErr.Rejected)
	})

	t.Run("no order rows at all", func(t *testing.T) {
		v := New(nil)

		_, err := v.Validate(
			[]dataset.RawCustomer{validCustomerRow(2, "CUST001", "9876543210")},
			nil,
		)
		require.Error(t, err)

		var emptyErr *EmptyDatasetError
		require.ErrorAs(t, err, &emptyErr)
		assert.Equal(t, "orders", emptyErr.Dataset)
	})
}
