// Command pipeline runs the full KPI pipeline once against a pair of
// extract files and writes the report artifacts to the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"retailkpi/internal/config"
	"retailkpi/internal/exporter"
	"retailkpi/internal/infrastructure"
	"retailkpi/internal/kpi"
	"retailkpi/internal/pipeline"
	"retailkpi/internal/validation"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file")
	customersFile := flag.String("customers", "", "customer extract CSV (defaults to configured path)")
	ordersFile := flag.String("orders", "", "order extract XML (defaults to configured path)")
	engine := flag.String("engine", "", "calculation engine: memory or table (defaults to configured engine)")
	outputDir := flag.String("out", "", "output directory for report artifacts (defaults to configured path)")
	reference := flag.String("ref", "", "reference timestamp for the trailing window, RFC 3339 (defaults to now)")
	topN := flag.Int("top", 0, "override the top-N listing size")
	excel := flag.Bool("excel", true, "also write the XLSX workbook")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if *customersFile == "" {
		*customersFile = cfg.Paths.CustomersFile
	}
	if *ordersFile == "" {
		*ordersFile = cfg.Paths.OrdersFile
	}
	if *engine == "" {
		*engine = cfg.Pipeline.Engine
	}
	if *outputDir == "" {
		*outputDir = cfg.Paths.OutputDir
	}

	kpiCfg := cfg.KPIConfig()
	if *topN > 0 {
		kpiCfg.TopN = *topN
	}

	var refTime time.Time
	if *reference != "" {
		parsed, err := time.Parse(time.RFC3339, *reference)
		if err != nil {
			logger.Error("invalid reference timestamp", "value", *reference, "error", err)
			os.Exit(1)
		}
		refTime = parsed.UTC()
	}

	logger.Info("starting pipeline run",
		"customers_file", *customersFile,
		"orders_file", *ordersFile,
		"engine", *engine,
		"output_dir", *outputDir)

	manager := pipeline.NewManager(kpiCfg, logger, nil)

	ctx := context.Background()
	report, err := manager.Run(ctx, *customersFile, *ordersFile, pipeline.RunOptions{
		Engine:    *engine,
		Reference: refTime,
		Timeout:   cfg.Pipeline.RunTimeout,
	})
	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	if err := validation.NewFileValidator(logger).ValidateOutputDirectory(*outputDir); err != nil {
		logger.Error("output directory check failed", "error", err)
		os.Exit(1)
	}

	csvWriter := exporter.NewCSVWriter(*outputDir, logger)
	if err := csvWriter.WriteReport(report); err != nil {
		logger.Error("failed to write CSV report", "error", err)
		os.Exit(1)
	}

	if *excel {
		excelWriter := exporter.NewExcelWriter(*outputDir, logger)
		if _, err := excelWriter.WriteReport(report); err != nil {
			logger.Error("failed to write XLSX workbook", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("pipeline run completed",
		"run_id", report.RunID,
		"engine", report.Engine,
		"output_dir", *outputDir)

	printSummary(report)
}

// printSummary prints a human-readable digest of the report to stdout.
func printSummary(report *kpi.Report) {
	repeat := report.RepeatCustomers()
	trends := report.MonthlyTrends()
	regional := report.RegionalRevenue()
	top := report.TopCustomers()

	fmt.Println("\n=== KPI REPORT ===")
	fmt.Printf("Run %s (engine: %s)\n\n", report.RunID, report.Engine)

	fmt.Printf("Repeat customers: %d of %d (retention %.1f%%), revenue %s\n",
		repeat.RepeatCustomerCount, repeat.TotalCustomerCount,
		repeat.RetentionRate*100, repeat.RevenueFromRepeatCustomers.StringFixed(2))

	fmt.Printf("Monthly trends:   %d months, avg growth %.1f%%\n",
		len(trends.Months), trends.AvgMonthlyGrowth*100)

	fmt.Printf("Regional revenue: top region %s across %d regions\n",
		regional.TopRegion, regional.TotalRegions)

	fmt.Printf("Top customers:    %d listed, window %s to %s\n",
		len(top.Customers),
		top.WindowStart.Format("2006-01-02"), top.WindowEnd.Format("2006-01-02"))
}
