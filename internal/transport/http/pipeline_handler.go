package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "retailkpi/internal/errors"
	"retailkpi/internal/kpi"
	"retailkpi/internal/pipeline"
)

// PipelineHandler triggers pipeline runs and serves the resulting reports.
type PipelineHandler struct {
	manager *pipeline.Manager
	cfg     RunDefaults
	logger  *slog.Logger

	mu         sync.RWMutex
	lastReport *kpi.Report
	running    bool
}

// RunDefaults are the extract locations and engine used when the run
// request does not override them.
type RunDefaults struct {
	CustomersFile string
	OrdersFile    string
	Engine        string
	Timeout       time.Duration
}

// NewPipelineHandler creates a pipeline handler.
func NewPipelineHandler(manager *pipeline.Manager, defaults RunDefaults, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{
		manager: manager,
		cfg:     defaults,
		logger:  logger,
	}
}

// RegisterRoutes registers the pipeline routes.
func (h *PipelineHandler) RegisterRoutes(r chi.Router) {
	r.Route("/pipeline", func(r chi.Router) {
		r.Post("/run", h.Run)
		r.Get("/status", h.Status)
	})
	r.Get("/report", h.Report)
}

// RunRequest is the body of POST /api/pipeline/run. All fields are
// optional; absent fields fall back to the configured defaults.
type RunRequest struct {
	Engine        string `json:"engine,omitempty"`
	Reference     string `json:"reference,omitempty"`
	CustomersFile string `json:"customers_file,omitempty"`
	OrdersFile    string `json:"orders_file,omitempty"`
}

// Bind implements render.Binder.
func (req *RunRequest) Bind(r *http.Request) error {
	return nil
}

// RunResponse wraps a completed run.
type RunResponse struct {
	Success bool        `json:"success"`
	Report  *kpi.Report `json:"report"`
}

// Run executes the pipeline synchronously and stores the report.
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &RunRequest{}
	if r.ContentLength > 0 {
		if err := render.Bind(r, req); err != nil {
			apierrors.WriteError(w, apierrors.InvalidRequestWithError(err))
			return
		}
	}

	engine := req.Engine
	if engine == "" {
		engine = h.cfg.Engine
	}
	if engine != pipeline.EngineMemory && engine != pipeline.EngineTable {
		apierrors.WriteError(w, apierrors.ErrInvalidEngine(engine))
		return
	}

	var reference time.Time
	if req.Reference != "" {
		parsed, err := time.Parse(time.RFC3339, req.Reference)
		if err != nil {
			apierrors.WriteError(w, apierrors.NewWithDetails(http.StatusBadRequest,
				"INVALID_PARAMETER", "reference must be RFC 3339", err.Error()))
			return
		}
		reference = parsed.UTC()
	}

	customersFile := req.CustomersFile
	if customersFile == "" {
		customersFile = h.cfg.CustomersFile
	}
	ordersFile := req.OrdersFile
	if ordersFile == "" {
		ordersFile = h.cfg.OrdersFile
	}

	// One run at a time; the pipeline shares a single status slot.
	if !h.tryStartRun() {
		apierrors.WriteError(w, apierrors.ErrRunInProgress)
		return
	}
	defer h.finishRun()

	h.logger.InfoContext(ctx, "pipeline run requested",
		"engine", engine,
		"customers_file", customersFile,
		"orders_file", ordersFile,
	)

	report, err := h.manager.Run(ctx, customersFile, ordersFile, pipeline.RunOptions{
		Engine:    engine,
		Reference: reference,
		Timeout:   h.cfg.Timeout,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "pipeline run failed", "error", err)
		apierrors.WriteError(w, apierrors.FromError(err))
		return
	}

	h.mu.Lock()
	h.lastReport = report
	h.mu.Unlock()

	render.JSON(w, r, &RunResponse{Success: true, Report: report})
}

// Status returns the stage-level state of the latest run.
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.manager.Status()
	if status == nil {
		apierrors.WriteError(w, apierrors.ErrNoRunFound)
		return
	}
	render.JSON(w, r, status)
}

// Report returns the most recent KPI report.
func (h *PipelineHandler) Report(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	report := h.lastReport
	h.mu.RUnlock()

	if report == nil {
		apierrors.WriteError(w, apierrors.ErrNoReport)
		return
	}
	render.JSON(w, r, report)
}

func (h *PipelineHandler) tryStartRun() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return false
	}
	h.running = true
	return true
}

func (h *PipelineHandler) finishRun() {
	h.mu.Lock()
	h.running = false
	h.mu.Unlock()
}
