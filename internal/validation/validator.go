// Package validation checks structural and semantic integrity of the raw
// customer and order datasets before any KPI runs. Checks are applied
// independently per row: a bad row lands in the reject ledger and the run
// continues. The only fatal condition is a dataset left empty after
// filtering.
package validation

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"retailkpi/internal/dataset"
)

// RejectReason is the machine-readable reason code recorded in the ledger.
type RejectReason string

const (
	ReasonMissingField     RejectReason = "missing_field"
	ReasonDuplicateID      RejectReason = "duplicate_id"
	ReasonDuplicateMobile  RejectReason = "duplicate_mobile"
	ReasonInvalidMobile    RejectReason = "invalid_mobile"
	ReasonInvalidTimestamp RejectReason = "invalid_timestamp"
	ReasonInvalidAmount    RejectReason = "invalid_amount"
	ReasonNegativeAmount   RejectReason = "negative_amount"
	ReasonAmountPrecision  RejectReason = "amount_precision"
	ReasonInvalidSKUCount  RejectReason = "invalid_sku_count"
)

// maxAmountDecimals bounds order amount precision. The relational store
// keeps amounts in 1e4 minor units, so finer values cannot be represented
// there and are rejected up front. Trailing zeros beyond the limit are fine.
const maxAmountDecimals = 4

// Reject is one reject-ledger entry: a row reference plus a reason code.
type Reject struct {
	Source string       `json:"source"` // "customers" or "orders"
	Row    int          `json:"row"`
	Ref    string       `json:"ref"` // customer_id / order_id when known
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

// Result holds the cleaned datasets and the reject ledger for one run.
type Result struct {
	Customers []dataset.Customer `json:"-"`
	Orders    []dataset.Order    `json:"-"`
	Rejects   []Reject           `json:"rejects"`
}

// CustomerRejects counts ledger entries from the customers dataset.
func (r *Result) CustomerRejects() int {
	n := 0
	for _, rej := range r.Rejects {
		if rej.Source == "customers" {
			n++
		}
	}
	return n
}

// OrderRejects counts ledger entries from the orders dataset.
func (r *Result) OrderRejects() int {
	return len(r.Rejects) - r.CustomerRejects()
}

// EmptyDatasetError signals that no usable rows remain after filtering.
// The run aborts; no partial KPI output is produced.
type EmptyDatasetError struct {
	Dataset  string
	Input    int
	Rejected int
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s dataset empty after validation: %d input rows, %d rejected",
		e.Dataset, e.Input, e.Rejected)
}

// Validator applies the row-level checks and builds the reject ledger.
type Validator struct {
	logger *slog.Logger
}

// New creates a Validator. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate cleans both datasets row by row. It returns an error only when a
// clean dataset is empty after filtering; individual bad rows never abort
// the run.
func (v *Validator) Validate(rawCustomers []dataset.RawCustomer, rawOrders []dataset.RawOrder) (*Result, error) {
	res := &Result{}

	v.validateCustomers(rawCustomers, res)
	v.validateOrders(rawOrders, res)

	v.logger.Info("validation completed",
		"clean_customers", len(res.Customers),
		"clean_orders", len(res.Orders),
		"rejects", len(res.Rejects),
	)

	if len(res.Customers) == 0 {
		return res, &EmptyDatasetError{Dataset: "customers", Input: len(rawCustomers), Rejected: res.CustomerRejects()}
	}
	if len(res.Orders) == 0 {
		return res, &EmptyDatasetError{Dataset: "orders", Input: len(rawOrders), Rejected: res.OrderRejects()}
	}
	return res, nil
}

func (v *Validator) validateCustomers(rows []dataset.RawCustomer, res *Result) {
	seenIDs := make(map[string]struct{}, len(rows))
	seenMobiles := make(map[string]string, len(rows)) // mobile -> first customer_id

	for _, row := range rows {
		id := strings.TrimSpace(row.CustomerID)
		name := strings.TrimSpace(row.CustomerName)
		if id == "" || name == "" || strings.TrimSpace(row.MobileNumber) == "" {
			v.reject(res, Reject{Source: "customers", Row: row.Row, Ref: id, Reason: ReasonMissingField})
			continue
		}

		// First occurrence of a duplicate id wins; ties break on order of
		// appearance so reruns are deterministic.
		if _, dup := seenIDs[id]; dup {
			v.reject(res, Reject{Source: "customers", Row: row.Row, Ref: id, Reason: ReasonDuplicateID})
			continue
		}

		mobile, ok := dataset.NormalizeMobile(row.MobileNumber)
		if !ok {
			v.reject(res, Reject{Source: "customers", Row: row.Row, Ref: id, Reason: ReasonInvalidMobile,
				Detail: row.MobileNumber})
			continue
		}

		// Two customers sharing one mobile cannot be disambiguated by the
		// join; the later row is rejected rather than silently merged.
		if firstID, dup := seenMobiles[mobile]; dup {
			v.reject(res, Reject{Source: "customers", Row: row.Row, Ref: id, Reason: ReasonDuplicateMobile,
				Detail: fmt.Sprintf("mobile already used by %s", firstID)})
			continue
		}

		cust := dataset.Customer{
			CustomerID:   id,
			CustomerName: dataset.NormalizeName(name),
			MobileNumber: mobile,
			Region:       dataset.NormalizeRegion(row.Region),
		}
		if reg := strings.TrimSpace(row.RegistrationDate); reg != "" {
			if t, err := dataset.ParseOrderTime(reg); err == nil {
				cust.RegistrationDate = &t
			}
		}

		seenIDs[id] = struct{}{}
		seenMobiles[mobile] = id
		res.Customers = append(res.Customers, cust)
	}
}

func (v *Validator) validateOrders(rows []dataset.RawOrder, res *Result) {
	seenIDs := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		id := strings.TrimSpace(row.OrderID)
		if id == "" || strings.TrimSpace(row.MobileNumber) == "" ||
			strings.TrimSpace(row.OrderDateTime) == "" || strings.TrimSpace(row.TotalAmount) == "" {
			v.reject(res, Reject{Source: "orders", Row: row.Row, Ref: id, Reason: ReasonMissingField})
			continue
		}

		if _, dup := seenIDs[id]; dup {
			v.reject(res, Reject{Source: "orders", Row: row.Row, Ref: id, Reason: ReasonDuplicateID})
			continue
		}

		mobile, ok := dataset.NormalizeMobile(row.MobileNumber)
		if !ok {
			v.reject(res, Reject{Source: "orders", Row: row.Row, Ref: id, Reason: ReasonInvalidMobile,
				Detail: row.MobileNumber})
			continue
		}

		orderedAt, err := dataset.ParseOrderTime(row.OrderDateTime)
		if err != nil {
			v.reject(res, Reject{Source: "orders", Row: row.Row, Ref: id, Reason: ReasonInvalidTimestamp,
				Detail: row.OrderDateTime})
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(row.TotalAmount))
		if err != nil {
			v.reject(res, Reject{Source: "orders", Row: row.Row, Ref: id, Reason: ReasonInvalidAmount,
				Detail: row.TotalAmount})
			continue
		}
		if amount.IsNegative() {
			v.reject(res, Reject{Source: "orders", Row: row.Row, Ref: id, Reason: ReasonNegativeAmount,
				Detail: row.TotalAmount})
			continue
		}
		if !amount.Equal(amount.Round(maxAmountDecimals)) {
			v.reject(res, Reject{Source: "orders", Row: row.Row, Ref: id, Reason: ReasonAmountPrecision,
				Detail: row.TotalAmount})
			continue
		}

		skuCount := 1
		if s := strings.TrimSpace(row.SKUCount); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				v.reject(res, Reject{Source: "orders", Row: row.Row, Ref: id, Reason: ReasonInvalidSKUCount,
					Detail: row.SKUCount})
				continue
			}
			skuCount = n
		}

		seenIDs[id] = struct{}{}
		res.Orders = append(res.Orders, dataset.Order{
			OrderID:       id,
			MobileNumber:  mobile,
			OrderDateTime: orderedAt,
			SKUID:         strings.TrimSpace(row.SKUID),
			SKUCount:      skuCount,
			TotalAmount:   amount,
		})
	}
}

func (v *Validator) reject(res *Result, rej Reject) {
	res.Rejects = append(res.Rejects, rej)
	v.logger.Warn("row rejected",
		"source", rej.Source,
		"row", rej.Row,
		"ref", rej.Ref,
		"reason", string(rej.Reason),
	)
}
