// Package dataprocessing reads the daily extract files into raw rows for
// the validation layer. It is deliberately forgiving: syntactic cleanup and
// semantic checks belong to validation, not to parsing.
package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"retailkpi/internal/dataset"
)

// customerColumns are the headers a customer extract must carry. Column
// order is free; extra columns are ignored.
var customerColumns = []string{"customer_id", "customer_name", "mobile_number", "region"}

// ParseCustomersCSV reads a customer CSV extract into raw rows. Row numbers
// are 1-based data rows (the header is row 0).
func ParseCustomersCSV(ctx context.Context, path string) ([]dataset.RawCustomer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open customer extract: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	// Rows with missing fields are validation's concern, not a parse error.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read customer header: %w", err)
	}
	index, err := headerIndex(header, customerColumns)
	if err != nil {
		return nil, err
	}
	regDateCol := columnIndex(header, "registration_date")

	var rows []dataset.RawCustomer
	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read customer row %d: %w", rowNum, err)
		}
		row := dataset.RawCustomer{
			Row:          rowNum,
			CustomerID:   field(record, index["customer_id"]),
			CustomerName: field(record, index["customer_name"]),
			MobileNumber: field(record, index["mobile_number"]),
			Region:       field(record, index["region"]),
		}
		if regDateCol >= 0 {
			row.RegistrationDate = field(record, regDateCol)
		}
		rows = append(rows, row)
	}

	slog.Default().InfoContext(ctx, "customer extract parsed",
		"path", path,
		"rows", len(rows),
	)
	return rows, nil
}

// headerIndex maps required column names to their positions.
func headerIndex(header, required []string) (map[string]int, error) {
	index := make(map[string]int, len(required))
	for _, name := range required {
		col := columnIndex(header, name)
		if col < 0 {
			return nil, fmt.Errorf("customer extract missing column %q", name)
		}
		index[name] = col
	}
	return index, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
