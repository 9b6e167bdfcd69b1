// Package core provides the sales domain types and their display helpers.
//
// Amounts are decimal.Decimal throughout; this file holds the Brazilian
// formatting used by the dashboard cards ("R$ 1.234,56", "66,7%").
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Hundred is the percentage multiplier.
func Hundred() decimal.Decimal { return hundred }

// FormatBRL formats an amount as Brazilian reais with two decimals.
//
// Examples:
//
//	FormatBRL(1234.5)   -> "R$ 1.234,50"
//	FormatBRL(-0.456)   -> "-R$ 0,46"
func FormatBRL(d decimal.Decimal) string {
	s := formatDecimal(d, 2)
	if strings.HasPrefix(s, "-") {
		return "-R$ " + s[1:]
	}
	return "R$ " + s
}

// FormatPercent formats a percentage with one decimal place, e.g. "66,7%".
func FormatPercent(d decimal.Decimal) string {
	return formatDecimal(d, 1) + "%"
}

// FormatSignedPercent is FormatPercent with an explicit "+" for positive values.
func FormatSignedPercent(d decimal.Decimal) string {
	s := FormatPercent(d)
	if d.Round(1).IsPositive() {
		return "+" + s
	}
	return s
}

// FormatCount formats an integer with "." thousands separators.
func FormatCount(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := groupThousands(strconv.FormatInt(n, 10))
	if neg {
		return "-" + s
	}
	return s
}

func formatDecimal(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	out := groupThousands(intPart)
	if frac != "" {
		out += "," + frac
	}
	if neg && strings.Trim(out, "0.,") != "" {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
