// Package memory implements the KPI strategy over the in-memory snapshot,
// grouping with maps and sorting deterministically. It is the tabular
// counterpart to the relational engine in kpi/table.
package memory

import (
	"log/slog"

	"retailkpi/internal/dataset"
	"retailkpi/internal/kpi"
)

// Engine computes the four KPIs directly over the enriched snapshot.
type Engine struct {
	snap   *dataset.Snapshot
	cfg    kpi.Config
	logger *slog.Logger
}

// NewEngine creates an in-memory engine over an immutable snapshot.
func NewEngine(snap *dataset.Snapshot, cfg kpi.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{snap: snap, cfg: cfg, logger: logger}
}

// Name identifies the engine in reports and logs.
func (e *Engine) Name() string { return "memory" }

var _ kpi.Strategy = (*Engine)(nil)
