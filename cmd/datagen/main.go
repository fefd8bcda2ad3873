// Command datagen writes seeded sample extracts for local runs and demos.
// A fraction of the generated rows is deliberately malformed so the
// validation stage has something to reject.
package main

import (
	"encoding/csv"
	"encoding/xml"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"retailkpi/internal/dataset"
)

type orderXML struct {
	OrderID       string `xml:"order_id"`
	MobileNumber  string `xml:"mobile_number"`
	OrderDateTime string `xml:"order_date_time"`
	SKUID         string `xml:"sku_id"`
	SKUCount      string `xml:"sku_count"`
	TotalAmount   string `xml:"total_amount"`
}

type ordersXML struct {
	XMLName xml.Name   `xml:"orders"`
	Orders  []orderXML `xml:"order"`
}

var firstNames = []string{"Aarav", "Diya", "Ishaan", "Meera", "Rohan", "Priya", "Kabir", "Ananya", "Vikram", "Sneha"}
var lastNames = []string{"Sharma", "Patel", "Reddy", "Iyer", "Gupta", "Nair", "Singh", "Das", "Mehta", "Rao"}

func main() {
	outDir := flag.String("out", "data", "directory to write customers.csv and orders.xml into")
	customers := flag.Int("customers", 50, "number of customer rows")
	orders := flag.Int("orders", 400, "number of order rows")
	seed := flag.Int64("seed", 42, "random seed, fixed for reproducible extracts")
	dirtyRate := flag.Float64("dirty", 0.05, "fraction of rows generated malformed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	mobiles, err := writeCustomers(rng, filepath.Join(*outDir, "customers.csv"), *customers, *dirtyRate)
	if err != nil {
		slog.Error("failed to write customers extract", "error", err)
		os.Exit(1)
	}

	if err := writeOrders(rng, filepath.Join(*outDir, "orders.xml"), mobiles, *orders, *dirtyRate); err != nil {
		slog.Error("failed to write orders extract", "error", err)
		os.Exit(1)
	}

	slog.Info("sample extracts written",
		"dir", *outDir,
		"customers", *customers,
		"orders", *orders,
		"seed", *seed)
}

// writeCustomers writes the customer CSV and returns the valid mobile
// numbers so orders can reference them.
func writeCustomers(rng *rand.Rand, path string, count int, dirtyRate float64) ([]string, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"customer_id", "customer_name", "mobile_number", "region", "registration_date"}); err != nil {
		return nil, err
	}

	var mobiles []string
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("CUST%04d", i)
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		mobile := randomMobile(rng)
		region := dataset.KnownRegions[rng.Intn(len(dataset.KnownRegions))]
		registered := time.Date(2023, time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)

		if rng.Float64() < dirtyRate {
			// Corrupt one field so the row lands in the reject ledger.
			switch rng.Intn(3) {
			case 0:
				mobile = "12345" // too short
			case 1:
				id = ""
			case 2:
				region = "Atlantis" // unknown region maps to Unknown, still valid
			}
		}

		record := []string{id, name, mobile, region, registered.Format("2006-01-02")}
		if err := w.Write(record); err != nil {
			return nil, err
		}
		if id != "" && len(mobile) == 10 {
			mobiles = append(mobiles, mobile)
		}
	}
	return mobiles, w.Error()
}

func writeOrders(rng *rand.Rand, path string, mobiles []string, count int, dirtyRate float64) error {
	doc := ordersXML{Orders: make([]orderXML, 0, count)}
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	for i := 1; i <= count; i++ {
		mobile := mobiles[rng.Intn(len(mobiles))]
		placed := base.Add(time.Duration(rng.Intn(365*24)) * time.Hour)
		amount := decimal.NewFromInt(int64(50 + rng.Intn(2000))).Add(decimal.New(int64(rng.Intn(100)), -2))
		order := orderXML{
			OrderID:       fmt.Sprintf("ORD%05d", i),
			MobileNumber:  mobile,
			OrderDateTime: placed.Format("2006-01-02T15:04:05"),
			SKUID:         fmt.Sprintf("SKU%03d", 1+rng.Intn(200)),
			SKUCount:      fmt.Sprintf("%d", 1+rng.Intn(5)),
			TotalAmount:   amount.StringFixed(2),
		}

		if rng.Float64() < dirtyRate {
			switch rng.Intn(3) {
			case 0:
				order.TotalAmount = "-10.00"
			case 1:
				order.OrderDateTime = "not-a-date"
			case 2:
				order.MobileNumber = "0000000000" // no matching customer
			}
		}

		doc.Orders = append(doc.Orders, order)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), data...), 0644)
}

// randomMobile produces a valid 10-digit Indian mobile number.
func randomMobile(rng *rand.Rand) string {
	first := []byte{'6', '7', '8', '9'}[rng.Intn(4)]
	digits := make([]byte, 10)
	digits[0] = first
	for i := 1; i < 10; i++ {
		digits[i] = byte('0' + rng.Intn(10))
	}
	return string(digits)
}
