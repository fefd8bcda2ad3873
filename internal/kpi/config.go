package kpi

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Customer segment labels assigned by the top-customers calculator.
const (
	SegmentVIP       = "VIP"
	SegmentHighValue = "High Value"
	SegmentRegular   = "Regular"
)

// Config holds the calculator thresholds. It is passed explicitly into each
// engine at construction and never mutated afterwards.
type Config struct {
	TopN               int             `json:"top_n" yaml:"top_n"`
	VIPThreshold       decimal.Decimal `json:"vip_threshold" yaml:"vip_threshold"`
	HighValueThreshold decimal.Decimal `json:"high_value_threshold" yaml:"high_value_threshold"`
	WindowDays         int             `json:"window_days" yaml:"window_days"`
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		TopN:               10,
		VIPThreshold:       decimal.NewFromInt(800),
		HighValueThreshold: decimal.NewFromInt(500),
		WindowDays:         30,
	}
}

// ConfigurationError signals invalid threshold or window configuration.
// It is fatal and aborts the run before validation starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Validate checks the thresholds before any pipeline work happens.
func (c Config) Validate() error {
	if c.TopN <= 0 {
		return &ConfigurationError{Field: "top_n", Message: "must be positive"}
	}
	if c.WindowDays <= 0 {
		return &ConfigurationError{Field: "window_days", Message: "must be positive"}
	}
	if c.VIPThreshold.IsNegative() || c.HighValueThreshold.IsNegative() {
		return &ConfigurationError{Field: "thresholds", Message: "must be non-negative"}
	}
	if c.VIPThreshold.LessThan(c.HighValueThreshold) {
		return &ConfigurationError{Field: "vip_threshold", Message: "must be >= high_value_threshold"}
	}
	return nil
}

// Segment classifies a customer by their spend inside the window.
func (c Config) Segment(totalSpent decimal.Decimal) string {
	switch {
	case totalSpent.GreaterThanOrEqual(c.VIPThreshold):
		return SegmentVIP
	case totalSpent.GreaterThanOrEqual(c.HighValueThreshold):
		return SegmentHighValue
	default:
		return SegmentRegular
	}
}
