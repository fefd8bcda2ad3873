package dataset

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegionUnknown is the explicit bucket for customers whose region label is
// not one of the known regions. Unclassified rows are kept, not dropped.
const RegionUnknown = "Unknown"

// KnownRegions is the finite set of region labels accepted as-is.
var KnownRegions = []string{"North", "South", "East", "West", "Central", "Northeast"}

// Customer is the canonical in-memory representation of one customer row.
type Customer struct {
	CustomerID       string     `json:"customer_id"`
	CustomerName     string     `json:"customer_name"`
	MobileNumber     string     `json:"mobile_number"` // normalized, digits only
	Region           string     `json:"region"`
	RegistrationDate *time.Time `json:"registration_date,omitempty"`
}

// Order is the canonical in-memory representation of one order row.
type Order struct {
	OrderID       string          `json:"order_id"`
	MobileNumber  string          `json:"mobile_number"` // normalized, digits only
	OrderDateTime time.Time       `json:"order_date_time"` // always UTC
	SKUID         string          `json:"sku_id"`
	SKUCount      int             `json:"sku_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// EnrichedOrder is an order joined with its matching customer attributes.
type EnrichedOrder struct {
	Order
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Region       string `json:"region"`
}

// Snapshot is the immutable per-run view of the validated datasets.
// It is built once after validation and shared read-only by every
// calculator; a new pipeline run always starts from a fresh Snapshot.
type Snapshot struct {
	Customers []Customer      `json:"-"`
	Orders    []Order         `json:"-"`
	Enriched  []EnrichedOrder `json:"-"`

	UnmatchedOrders   int `json:"unmatched_orders"`
	RejectedCustomers int `json:"rejected_customers"`
	RejectedOrders    int `json:"rejected_orders"`
}

// RawCustomer is one customer row as parsed from a CSV extract, before
// validation. All fields are raw strings.
type RawCustomer struct {
	Row              int
	CustomerID       string
	CustomerName     string
	MobileNumber     string
	Region           string
	RegistrationDate string
}

// RawOrder is one order row as parsed from an XML extract, before validation.
type RawOrder struct {
	Row           int
	OrderID       string
	MobileNumber  string
	OrderDateTime string
	SKUID         string
	SKUCount      string
	TotalAmount   string
}

// TotalRevenue sums TotalAmount over all enriched orders.
func (s *Snapshot) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, o := range s.Enriched {
		total = total.Add(o.TotalAmount)
	}
	return total
}
