// Package exporter writes KPI reports to disk: one CSV per KPI, a JSON
// dump of the full report, an optional reject ledger, and a single XLSX
// workbook with one sheet per KPI.
package exporter
