package model

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultCurrencySymbol prefixes formatted amounts when no symbol is configured
const DefaultCurrencySymbol = "₹"

var currencyPattern = regexp.MustCompile(`(?:₹|Rs\.?|INR|USD|\$)\s?\d+(?:,\d+)*(?:\.\d+)?`)

// ExtractCurrency returns the first currency literal in text unchanged, or "" when none
func ExtractCurrency(text string) string {
	return currencyPattern.FindString(text)
}

// ParseAmount converts a currency literal into whole units, dropping any fraction.
// The second value is false when the literal holds no digits.
func ParseAmount(literal string) (int64, bool) {
	if i := strings.LastIndex(literal, "."); i >= 0 && i+1 < len(literal) && isDigits(literal[i+1:]) {
		literal = literal[:i]
	}
	var digits strings.Builder
	for _, r := range literal {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// FormatAmount renders whole units with thousands separators, e.g. ₹45,000
func FormatAmount(amount int64, symbol string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + symbol + b.String()
}
