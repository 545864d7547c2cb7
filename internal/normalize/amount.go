// Package normalize converts raw statement tokens into typed values.
//
// All functions are pure and safe for concurrent use. Amount parsing reports
// failure through a boolean instead of returning zero, so callers can tell an
// absent amount from a zero one. Date normalization never fails: it returns
// the cleaned input when no layout matches.
package normalize

import (
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// MaxAmountDigits is the largest digit count accepted as a monetary amount.
// Longer runs are account or reference numbers.
const MaxAmountDigits = 11

var (
	currencyReplacer = strings.NewReplacer(
		"U$S", "", "US$", "", "USD", "", "ARS", "", "AR$", "",
		"$", "", "\u20ac", "", " ", "", "\u00a0", "", "\u200b", "", "\t", "",
	)
	minusReplacer = strings.NewReplacer("\u2212", "-", "\u2013", "-")

	amountShape = regexp.MustCompile(`^\d+(?:[.,]\d+)*$`)

	argentineFormatter = money.NewFormatter(2, ",", ".", "", "1")
)

// ParseAmount parses a monetary token such as "1.234,56", "(1.234,56)",
// "1.234,56-", "-$ 1,234.56" or "1234.56". The boolean is false when the
// token does not have a monetary shape.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	s = minusReplacer.Replace(strings.ToUpper(s))
	s = currencyReplacer.Replace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	if !amountShape.MatchString(s) {
		return decimal.Zero, false
	}
	if countDigits(s) > MaxAmountDigits {
		return decimal.Zero, false
	}

	numeric, ok := canonicalNumber(s)
	if !ok {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(numeric)
	if err != nil {
		return decimal.Zero, false
	}
	if negative && !value.IsZero() {
		value = value.Neg()
	}
	return value, true
}

// ParseAmountOrZero parses a token, returning zero when it is not monetary
func ParseAmountOrZero(s string) decimal.Decimal {
	v, _ := ParseAmount(s)
	return v
}

// IsAmount reports whether the token has a monetary shape
func IsAmount(s string) bool {
	_, ok := ParseAmount(s)
	return ok
}

// canonicalNumber rewrites grouping and decimal separators into a plain
// dot-decimal number. The rightmost separator wins when both are present.
func canonicalNumber(s string) (string, bool) {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 == 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	if strings.Count(s, ".") > 1 || strings.Contains(s, ",") {
		return "", false
	}
	return s, true
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// FormatAmount renders an amount in Argentine notation (1.234,56)
func FormatAmount(d decimal.Decimal) string {
	return argentineFormatter.Format(toCents(d))
}

// FormatMoney renders an amount with the currency symbol of the given ISO code
func FormatMoney(d decimal.Decimal, currency string) string {
	if money.GetCurrency(currency) == nil {
		return FormatAmount(d)
	}
	return money.New(toCents(d), currency).Display()
}

func toCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}
