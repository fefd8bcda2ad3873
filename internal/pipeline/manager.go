// Package pipeline orchestrates one run: parse the raw extracts, validate
// them into an immutable snapshot, enrich orders with customer attributes,
// then run the four KPI calculators through the selected execution strategy.
// A run is all-or-nothing: no partial report is ever returned.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"retailkpi/internal/dataprocessing"
	"retailkpi/internal/dataset"
	"retailkpi/internal/kpi"
	"retailkpi/internal/kpi/memory"
	"retailkpi/internal/kpi/table"
	"retailkpi/internal/validation"
)

// Engine names accepted in RunOptions.
const (
	EngineMemory = "memory"
	EngineTable  = "table"
)

// RunOptions selects the execution strategy and window anchor for one run.
type RunOptions struct {
	// Engine is "memory" (default) or "table".
	Engine string
	// Reference anchors the trailing spend window; zero means now (UTC).
	Reference time.Time
	// Timeout bounds the whole run; zero means no explicit bound.
	Timeout time.Duration
}

// RunStatus is the observable state of the most recent run.
type RunStatus struct {
	RunID      string        `json:"run_id"`
	Engine     string        `json:"engine"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Stages     []*StageState `json:"stages"`
	Error      string        `json:"error,omitempty"`
}

// Manager runs the pipeline and tracks the state of the latest run.
type Manager struct {
	cfg           kpi.Config
	logger        *slog.Logger
	validator     *validation.Validator
	fileValidator *validation.FileValidator
	tracer        *runTracer
	metrics       *Metrics

	mu      sync.RWMutex
	lastRun *RunStatus
}

// NewManager creates a pipeline manager. A nil metrics value registers the
// pipeline metrics on a private registry, which keeps tests independent.
func NewManager(cfg kpi.Config, logger *slog.Logger, metrics *Metrics) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Manager{
		cfg:           cfg,
		logger:        logger,
		validator:     validation.New(logger),
		fileValidator: validation.NewFileValidator(logger),
		tracer:        newRunTracer(),
		metrics:       metrics,
	}
}

// Status returns a copy of the most recent run's state, or nil before any
// run. Stage states are snapshotted under their locks so the result can be
// serialized while a run is in flight.
func (m *Manager) Status() *RunStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastRun == nil {
		return nil
	}

	status := *m.lastRun
	status.Stages = make([]*StageState, len(m.lastRun.Stages))
	for i, stage := range m.lastRun.Stages {
		status.Stages[i] = stage.Snapshot()
	}
	return &status
}

// Run executes the full pipeline against the given extract files and
// returns the aggregated KPI report. Configuration is checked before any
// data is read; a timeout or cancellation aborts the run with no partial
// result.
func (m *Manager) Run(ctx context.Context, customersPath, ordersPath string, opts RunOptions) (*kpi.Report, error) {
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}

	engine := opts.Engine
	if engine == "" {
		engine = EngineMemory
	}
	if engine != EngineMemory && engine != EngineTable {
		return nil, &kpi.ConfigurationError{Field: "engine", Message: fmt.Sprintf("unknown engine %q", engine)}
	}

	reference := opts.Reference
	if reference.IsZero() {
		reference = time.Now().UTC()
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	status := &RunStatus{
		RunID:     runID,
		Engine:    engine,
		StartedAt: time.Now().UTC(),
		Stages: []*StageState{
			NewStageState(StageParse),
			NewStageState(StageValidate),
			NewStageState(StageEnrich),
			NewStageState(StageCalculate),
		},
	}
	m.setStatus(status)

	ctx, runSpan := m.tracer.startRun(ctx, runID, engine)
	start := time.Now()

	report, err := m.run(ctx, runID, engine, reference, customersPath, ordersPath, status)

	endSpan(runSpan, err)
	m.metrics.RunDuration.Observe(time.Since(start).Seconds())
	m.finishStatus(status, err)
	if err != nil {
		m.metrics.RunsTotal.WithLabelValues(engine, "failed").Inc()
		m.logger.ErrorContext(ctx, "pipeline run failed",
			"run_id", runID,
			"engine", engine,
			"error", err,
		)
		return nil, err
	}

	m.metrics.RunsTotal.WithLabelValues(engine, "completed").Inc()
	m.logger.InfoContext(ctx, "pipeline run completed",
		"run_id", runID,
		"engine", engine,
		"duration", time.Since(start).String(),
	)
	return report, nil
}

func (m *Manager) run(ctx context.Context, runID, engine string, reference time.Time,
	customersPath, ordersPath string, status *RunStatus) (*kpi.Report, error) {

	// Stage 1: check and parse the raw extracts.
	parseState := status.Stages[0]
	parseState.Start()
	stageCtx, span := m.tracer.startStage(ctx, runID, StageParse)
	err := m.fileValidator.ValidateExtractFile(customersPath, ".csv")
	if err == nil {
		err = m.fileValidator.ValidateExtractFile(ordersPath, ".xml")
	}
	if err != nil {
		endSpan(span, err)
		parseState.Fail(err)
		return nil, fmt.Errorf("parse stage: %w", err)
	}
	rawCustomers, err := dataprocessing.ParseCustomersCSV(stageCtx, customersPath)
	if err == nil {
		var rawOrders []dataset.RawOrder
		rawOrders, err = dataprocessing.ParseOrdersXML(stageCtx, ordersPath)
		if err == nil {
			endSpan(span, nil)
			parseState.Complete(fmt.Sprintf("%d customer rows, %d order rows", len(rawCustomers), len(rawOrders)))
			return m.runFromRaw(ctx, runID, engine, reference, rawCustomers, rawOrders, status)
		}
	}
	endSpan(span, err)
	parseState.Fail(err)
	return nil, fmt.Errorf("parse stage: %w", err)
}

func (m *Manager) runFromRaw(ctx context.Context, runID, engine string, reference time.Time,
	rawCustomers []dataset.RawCustomer, rawOrders []dataset.RawOrder, status *RunStatus) (*kpi.Report, error) {

	// Stage 2: row-level validation. Bad rows go to the reject ledger; only
	// an empty clean dataset aborts the run.
	validateState := status.Stages[1]
	validateState.Start()
	stageCtx, span := m.tracer.startStage(ctx, runID, StageValidate)
	cleaned, err := m.validator.Validate(rawCustomers, rawOrders)
	if cleaned != nil {
		m.metrics.RowsRejected.Add(float64(len(cleaned.Rejects)))
	}
	endSpan(span, err)
	if err != nil {
		validateState.Fail(err)
		return nil, fmt.Errorf("validate stage: %w", err)
	}
	validateState.Complete(fmt.Sprintf("%d clean customers, %d clean orders, %d rejects",
		len(cleaned.Customers), len(cleaned.Orders), len(cleaned.Rejects)))

	// Stage 3: derive the enriched snapshot, once, shared by all calculators.
	enrichState := status.Stages[2]
	enrichState.Start()
	stageCtx, span = m.tracer.startStage(ctx, runID, StageEnrich)
	snap := dataset.Enrich(cleaned.Customers, cleaned.Orders)
	snap.RejectedCustomers = cleaned.CustomerRejects()
	snap.RejectedOrders = cleaned.OrderRejects()
	m.metrics.OrdersUnmatched.Add(float64(snap.UnmatchedOrders))
	if snap.UnmatchedOrders > 0 {
		m.logger.WarnContext(stageCtx, "orders without matching customer excluded from enrichment",
			"run_id", runID,
			"unmatched", snap.UnmatchedOrders,
		)
	}
	endSpan(span, nil)
	enrichState.Complete(fmt.Sprintf("%d enriched orders, %d unmatched", len(snap.Enriched), snap.UnmatchedOrders))

	// Stage 4: run the four calculators through the selected strategy.
	calcState := status.Stages[3]
	calcState.Start()
	stageCtx, span = m.tracer.startStage(ctx, runID, StageCalculate)
	report, err := m.calculate(stageCtx, runID, engine, reference, snap)
	endSpan(span, err)
	if err != nil {
		calcState.Fail(err)
		return nil, fmt.Errorf("calculate stage: %w", err)
	}
	calcState.Complete("4 KPIs calculated")
	return report, nil
}

func (m *Manager) calculate(ctx context.Context, runID, engine string, reference time.Time,
	snap *dataset.Snapshot) (*kpi.Report, error) {

	var strategy kpi.Strategy
	switch engine {
	case EngineTable:
		tableEngine, err := table.NewEngine(ctx, snap, m.cfg, m.logger)
		if err != nil {
			return nil, fmt.Errorf("build table engine: %w", err)
		}
		defer tableEngine.Close()
		strategy = tableEngine
	default:
		strategy = memory.NewEngine(snap, m.cfg, m.logger)
	}

	prov := kpi.Provenance{
		CleanCustomers:    len(snap.Customers),
		CleanOrders:       len(snap.Orders),
		RejectedCustomers: snap.RejectedCustomers,
		RejectedOrders:    snap.RejectedOrders,
		UnmatchedOrders:   snap.UnmatchedOrders,
	}
	return kpi.Aggregate(ctx, runID, strategy, reference, prov)
}

func (m *Manager) setStatus(status *RunStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = status
}

// finishStatus records the run outcome under the manager lock so concurrent
// Status calls never observe a half-written result.
func (m *Manager) finishStatus(status *RunStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	status.FinishedAt = &now
	if err != nil {
		status.Error = err.Error()
	}
}
