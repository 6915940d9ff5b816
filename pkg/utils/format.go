// Package utils provides shared formatting helpers for CLI output.
package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatRupees renders an amount in Indian currency format (lakhs, crores
// grouping), rounded to the paise.
func FormatRupees(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	if negative {
		amount = amount.Neg()
	}

	str := amount.StringFixed(2)
	parts := strings.Split(str, ".")
	intPart := parts[0]
	decPart := parts[1]

	result := "₹" + formatIndianNumber(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// formatIndianNumber groups an integer string in the Indian numbering
// system: last three digits, then groups of two.
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	s = s[:n-3]

	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatPercent renders a percentage to two decimal places.
func FormatPercent(value decimal.Decimal) string {
	return value.StringFixed(2) + "%"
}

// FormatCompact renders an amount in compact Indian form (L/Cr).
func FormatCompact(amount decimal.Decimal) string {
	abs := amount.Abs()
	crore := decimal.NewFromInt(10000000)
	lakh := decimal.NewFromInt(100000)

	switch {
	case abs.GreaterThanOrEqual(crore):
		return amount.Div(crore).StringFixed(2) + " Cr"
	case abs.GreaterThanOrEqual(lakh):
		return amount.Div(lakh).StringFixed(2) + " L"
	default:
		return FormatRupees(amount)
	}
}
