package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"retailkpi/internal/kpi"
	"retailkpi/internal/validation"
)

// CSVWriter writes report artifacts into the output directory.
type CSVWriter struct {
	outputDir string
	logger    *slog.Logger
}

// NewCSVWriter creates a CSV writer rooted at outputDir.
func NewCSVWriter(outputDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{outputDir: outputDir, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file under the output directory.
func (w *CSVWriter) WriteCSV(fileName string, options WriteOptions) error {
	fullPath := w.resolvePath(fileName)

	w.logger.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return writer.Error()
}

// WriteReport writes every KPI of the report as its own CSV file plus a
// JSON dump of the whole report. File names are fixed per KPI.
func (w *CSVWriter) WriteReport(report *kpi.Report) error {
	if err := w.writeRepeatCustomers(report.RepeatCustomers()); err != nil {
		return err
	}
	if err := w.writeMonthlyTrends(report.MonthlyTrends()); err != nil {
		return err
	}
	if err := w.writeRegionalRevenue(report.RegionalRevenue()); err != nil {
		return err
	}
	if err := w.writeTopCustomers(report.TopCustomers()); err != nil {
		return err
	}
	return w.WriteReportJSON(report)
}

// WriteReportJSON dumps the full report as indented JSON.
func (w *CSVWriter) WriteReportJSON(report *kpi.Report) error {
	fullPath := w.resolvePath("report.json")
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(fullPath, data, 0644)
}

// WriteRejects writes the reject ledger so bad input rows can be audited.
func (w *CSVWriter) WriteRejects(rejects []validation.Reject) error {
	records := make([][]string, 0, len(rejects))
	for _, rej := range rejects {
		records = append(records, []string{
			rej.Source,
			strconv.Itoa(rej.Row),
			rej.Ref,
			string(rej.Reason),
			rej.Detail,
		})
	}
	return w.WriteCSV("rejects.csv", WriteOptions{
		Headers: []string{"source", "row", "ref", "reason", "detail"},
		Records: records,
	})
}

func (w *CSVWriter) writeRepeatCustomers(result *kpi.RepeatCustomersResult) error {
	records := make([][]string, 0, len(result.Customers))
	for _, c := range result.Customers {
		records = append(records, []string{
			c.CustomerID,
			strconv.Itoa(c.OrderCount),
			c.TotalSpend.StringFixed(2),
		})
	}
	return w.WriteCSV("repeat_customers.csv", WriteOptions{
		Headers:   []string{"customer_id", "order_count", "total_spend"},
		Records:   records,
		BOMPrefix: true,
	})
}

func (w *CSVWriter) writeMonthlyTrends(result *kpi.MonthlyTrendsResult) error {
	records := make([][]string, 0, len(result.Months))
	for _, m := range result.Months {
		records = append(records, []string{
			m.Month,
			strconv.Itoa(m.OrderCount),
			m.Revenue.StringFixed(2),
			formatRate(m.GrowthRate),
		})
	}
	return w.WriteCSV("monthly_trends.csv", WriteOptions{
		Headers:   []string{"month", "order_count", "revenue", "growth_rate"},
		Records:   records,
		BOMPrefix: true,
	})
}

func (w *CSVWriter) writeRegionalRevenue(result *kpi.RegionalRevenueResult) error {
	records := make([][]string, 0, len(result.Regions))
	for _, r := range result.Regions {
		records = append(records, []string{
			r.Region,
			r.Revenue.StringFixed(2),
			strconv.Itoa(r.OrderCount),
			strconv.Itoa(r.CustomerCount),
			r.AvgOrder.StringFixed(2),
		})
	}
	return w.WriteCSV("regional_revenue.csv", WriteOptions{
		Headers:   []string{"region", "revenue", "order_count", "customer_count", "avg_order"},
		Records:   records,
		BOMPrefix: true,
	})
}

func (w *CSVWriter) writeTopCustomers(result *kpi.TopCustomersResult) error {
	records := make([][]string, 0, len(result.Customers))
	for _, c := range result.Customers {
		records = append(records, []string{
			strconv.Itoa(c.Rank),
			c.CustomerID,
			c.CustomerName,
			c.Region,
			c.TotalSpent.StringFixed(2),
			strconv.Itoa(c.OrderCount),
			c.Segment,
		})
	}
	return w.WriteCSV("top_customers.csv", WriteOptions{
		Headers:   []string{"rank", "customer_id", "customer_name", "region", "total_spent", "order_count", "segment"},
		Records:   records,
		BOMPrefix: true,
	})
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 6, 64)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// resolvePath joins fileName onto the output directory unless it is
// already absolute.
func (w *CSVWriter) resolvePath(fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(w.outputDir, fileName)
}
