// Package table implements the KPI strategy over a relational store. The
// validated snapshot is loaded into SQLite tables once per run and every
// calculator is a set-oriented aggregation query; derived ratios come from
// the same shared helpers the in-memory engine uses, so both strategies
// produce identical results.
package table

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"retailkpi/internal/dataset"
	"retailkpi/internal/kpi"
)

// Monetary amounts are stored as integers scaled by 10^4 so SQL SUM stays
// exact. Values with more than four decimal places are refused at load.
const amountScale = 4

// timeLayout is the stored timestamp format. RFC3339 UTC strings compare
// lexicographically, which keeps BETWEEN filters correct.
const timeLayout = "2006-01-02T15:04:05Z"

const schema = `
CREATE TABLE customers (
	customer_id   TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL,
	mobile_number TEXT NOT NULL UNIQUE,
	region        TEXT NOT NULL
);
CREATE INDEX idx_customers_region ON customers(region);

CREATE TABLE orders (
	order_id             TEXT PRIMARY KEY,
	mobile_number        TEXT NOT NULL,
	order_date_time      TEXT NOT NULL,
	sku_id               TEXT NOT NULL,
	sku_count            INTEGER NOT NULL,
	total_amount_scaled  INTEGER NOT NULL CHECK (total_amount_scaled >= 0)
);
CREATE INDEX idx_orders_mobile ON orders(mobile_number);
CREATE INDEX idx_orders_date ON orders(order_date_time);
`

// Engine computes the four KPIs with SQL aggregation over a per-run
// read-only snapshot of the validated data.
type Engine struct {
	db     *sql.DB
	cfg    kpi.Config
	logger *slog.Logger
}

// NewEngine opens the backing store, creates the schema and loads the
// snapshot. The default DSN is an in-memory database scoped to the run.
// Close must be called when the run finishes.
func NewEngine(ctx context.Context, snap *dataset.Snapshot, cfg kpi.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A pooled second connection would see a different in-memory database.
	db.SetMaxOpenConns(1)

	e := &Engine{db: db, cfg: cfg, logger: logger}
	if err := e.load(ctx, snap); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Name identifies the engine in reports and logs.
func (e *Engine) Name() string { return "table" }

// Close releases the backing store.
func (e *Engine) Close() error { return e.db.Close() }

func (e *Engine) load(ctx context.Context, snap *dataset.Snapshot) error {
	if _, err := e.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load tx: %w", err)
	}
	defer tx.Rollback()

	custStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO customers (customer_id, customer_name, mobile_number, region) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare customer insert: %w", err)
	}
	defer custStmt.Close()
	for _, c := range snap.Customers {
		if _, err := custStmt.ExecContext(ctx, c.CustomerID, c.CustomerName, c.MobileNumber, c.Region); err != nil {
			return fmt.Errorf("insert customer %s: %w", c.CustomerID, err)
		}
	}

	orderStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO orders (order_id, mobile_number, order_date_time, sku_id, sku_count, total_amount_scaled)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare order insert: %w", err)
	}
	defer orderStmt.Close()
	for _, o := range snap.Orders {
		scaled, err := scaleAmount(o.TotalAmount)
		if err != nil {
			return fmt.Errorf("order %s: %w", o.OrderID, err)
		}
		if _, err := orderStmt.ExecContext(ctx,
			o.OrderID, o.MobileNumber, o.OrderDateTime.UTC().Format(timeLayout),
			o.SKUID, o.SKUCount, scaled); err != nil {
			return fmt.Errorf("insert order %s: %w", o.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load tx: %w", err)
	}

	e.logger.DebugContext(ctx, "snapshot loaded into table engine",
		"customers", len(snap.Customers),
		"orders", len(snap.Orders),
	)
	return nil
}

// scaleAmount converts a decimal amount into stored integer minor units.
func scaleAmount(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(amountScale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s exceeds %d decimal places", d, amountScale)
	}
	return shifted.IntPart(), nil
}

// unscaleAmount converts stored integer minor units back to a decimal.
func unscaleAmount(scaled int64) decimal.Decimal {
	return decimal.New(scaled, -amountScale)
}

// formatWindow renders the inclusive window bounds for a BETWEEN filter.
func formatWindow(start, end time.Time) (string, string) {
	return start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)
}

var _ kpi.Strategy = (*Engine)(nil)
