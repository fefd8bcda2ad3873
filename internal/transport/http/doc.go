// Package http exposes the pipeline and its reports over a chi router.
//
// Routes:
//
//	GET  /healthz              liveness probe
//	GET  /metrics              Prometheus metrics
//	POST /api/pipeline/run     execute the pipeline and store the report
//	GET  /api/pipeline/status  stage-level state of the latest run
//	GET  /api/report           the most recent KPI report
package http
