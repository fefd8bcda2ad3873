package dataprocessing

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"

	"retailkpi/internal/dataset"
)

// orderDocument mirrors the <orders><order>...</order></orders> extract
// layout. All leaf values stay raw strings for the validation layer.
type orderDocument struct {
	XMLName xml.Name       `xml:"orders"`
	Orders  []orderElement `xml:"order"`
}

type orderElement struct {
	OrderID       string `xml:"order_id"`
	MobileNumber  string `xml:"mobile_number"`
	OrderDateTime string `xml:"order_date_time"`
	SKUID         string `xml:"sku_id"`
	SKUCount      string `xml:"sku_count"`
	TotalAmount   string `xml:"total_amount"`
}

// ParseOrdersXML reads an order XML extract into raw rows. Row numbers are
// 1-based document order.
func ParseOrdersXML(ctx context.Context, path string) ([]dataset.RawOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open order extract: %w", err)
	}

	var doc orderDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse order extract: %w", err)
	}

	rows := make([]dataset.RawOrder, 0, len(doc.Orders))
	for i, o := range doc.Orders {
		rows = append(rows, dataset.RawOrder{
			Row:           i + 1,
			OrderID:       o.OrderID,
			MobileNumber:  o.MobileNumber,
			OrderDateTime: o.OrderDateTime,
			SKUID:         o.SKUID,
			SKUCount:      o.SKUCount,
			TotalAmount:   o.TotalAmount,
		})
	}

	slog.Default().InfoContext(ctx, "order extract parsed",
		"path", path,
		"rows", len(rows),
	)
	return rows, nil
}
