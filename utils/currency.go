package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders amount as rupees with thousands separators and two
// decimals, e.g. 12500.5 -> "Rs. 12,500.50".
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	parts := strings.SplitN(amount.StringFixed(2), ".", 2)
	integerPart := parts[0]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	return "Rs. " + sign + strings.Join(groups, ",") + "." + parts[1]
}
