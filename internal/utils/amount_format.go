package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPrecision is the number of decimals amounts are shown with.
const DisplayPrecision = 2

// FormatAmount renders an amount with a fixed number of decimals.
// Example: 12.3456 returns "12.35", -5 returns "-5.00"
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(DisplayPrecision)
}

// DisplayName is the upper-cased, trimmed form names are exported with.
func DisplayName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
