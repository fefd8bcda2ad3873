package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"retailkpi/internal/kpi"
)

// Sheet names of the report workbook.
const (
	sheetSummary  = "Summary"
	sheetRepeat   = "Repeat Customers"
	sheetTrends   = "Monthly Trends"
	sheetRegional = "Regional Revenue"
	sheetTop      = "Top Customers"
)

// ExcelWriter renders the full report as a single XLSX workbook.
type ExcelWriter struct {
	outputDir string
	logger    *slog.Logger
}

// NewExcelWriter creates an Excel writer rooted at outputDir.
func NewExcelWriter(outputDir string, logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{outputDir: outputDir, logger: logger}
}

// WriteReport writes the workbook as report.xlsx under the output
// directory and returns the full path.
func (w *ExcelWriter) WriteReport(report *kpi.Report) (string, error) {
	fullPath := filepath.Join(w.outputDir, "report.xlsx")
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummarySheet(f, report); err != nil {
		return "", err
	}
	if err := w.writeRepeatSheet(f, report.RepeatCustomers()); err != nil {
		return "", err
	}
	if err := w.writeTrendsSheet(f, report.MonthlyTrends()); err != nil {
		return "", err
	}
	if err := w.writeRegionalSheet(f, report.RegionalRevenue()); err != nil {
		return "", err
	}
	if err := w.writeTopSheet(f, report.TopCustomers()); err != nil {
		return "", err
	}

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("wrote report workbook",
		slog.String("path", fullPath),
		slog.String("run_id", report.RunID))
	return fullPath, nil
}

func (w *ExcelWriter) writeSummarySheet(f *excelize.File, report *kpi.Report) error {
	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}

	prov := report.KPIs[kpi.NameRepeatCustomers].InputRowCounts
	rows := [][]interface{}{
		{"Run ID", report.RunID},
		{"Engine", report.Engine},
		{"Reference", formatTime(report.Reference)},
		{"Generated At", formatTime(report.GeneratedAt)},
		{},
		{"Clean customers", prov.CleanCustomers},
		{"Clean orders", prov.CleanOrders},
		{"Rejected customers", prov.RejectedCustomers},
		{"Rejected orders", prov.RejectedOrders},
		{"Unmatched orders", prov.UnmatchedOrders},
	}
	return writeRows(f, sheetSummary, rows)
}

func (w *ExcelWriter) writeRepeatSheet(f *excelize.File, result *kpi.RepeatCustomersResult) error {
	if _, err := f.NewSheet(sheetRepeat); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Repeat customers", result.RepeatCustomerCount},
		{"Total customers", result.TotalCustomerCount},
		{"Retention rate", result.RetentionRate},
		{"Repeat revenue", result.RevenueFromRepeatCustomers.StringFixed(2)},
		{},
		{"Customer ID", "Orders", "Total Spend"},
	}
	for _, c := range result.Customers {
		rows = append(rows, []interface{}{c.CustomerID, c.OrderCount, c.TotalSpend.StringFixed(2)})
	}
	return writeRows(f, sheetRepeat, rows)
}

func (w *ExcelWriter) writeTrendsSheet(f *excelize.File, result *kpi.MonthlyTrendsResult) error {
	if _, err := f.NewSheet(sheetTrends); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Average monthly growth", result.AvgMonthlyGrowth},
		{},
		{"Month", "Orders", "Revenue", "Growth Rate"},
	}
	for _, m := range result.Months {
		rows = append(rows, []interface{}{m.Month, m.OrderCount, m.Revenue.StringFixed(2), m.GrowthRate})
	}
	return writeRows(f, sheetTrends, rows)
}

func (w *ExcelWriter) writeRegionalSheet(f *excelize.File, result *kpi.RegionalRevenueResult) error {
	if _, err := f.NewSheet(sheetRegional); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Top region", result.TopRegion},
		{"Regions with activity", result.TotalRegions},
		{},
		{"Region", "Revenue", "Orders", "Customers", "Avg Order"},
	}
	for _, r := range result.Regions {
		rows = append(rows, []interface{}{
			r.Region, r.Revenue.StringFixed(2), r.OrderCount, r.CustomerCount, r.AvgOrder.StringFixed(2),
		})
	}
	return writeRows(f, sheetRegional, rows)
}

func (w *ExcelWriter) writeTopSheet(f *excelize.File, result *kpi.TopCustomersResult) error {
	if _, err := f.NewSheet(sheetTop); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Window start", formatTime(result.WindowStart)},
		{"Window end", formatTime(result.WindowEnd)},
	}
	// Segment counts in a stable order.
	segments := make([]string, 0, len(result.SegmentCounts))
	for segment := range result.SegmentCounts {
		segments = append(segments, segment)
	}
	sort.Strings(segments)
	for _, segment := range segments {
		rows = append(rows, []interface{}{segment + " customers", result.SegmentCounts[segment]})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Rank", "Customer ID", "Name", "Region", "Total Spent", "Orders", "Segment"},
	)
	for _, c := range result.Customers {
		rows = append(rows, []interface{}{
			c.Rank, c.CustomerID, c.CustomerName, c.Region, c.TotalSpent.StringFixed(2), c.OrderCount, c.Segment,
		})
	}
	return writeRows(f, sheetTop, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
