package proposal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const currency = "S/"

var amounts = message.NewPrinter(language.English)

// Soles formats an amount with two decimals and thousands separators,
// e.g. "S/ 1,234.56".
func Soles(d decimal.Decimal) string {
	return currency + " " + amounts.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// WholeSoles formats an amount rounded to units, e.g. "S/ 1,235".
func WholeSoles(d decimal.Decimal) string {
	return currency + " " + amounts.Sprintf("%.0f", d.Round(0).InexactFloat64())
}

// ParseSoles reads an amount written by Soles or WholeSoles.
func ParseSoles(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, currency) {
		return decimal.Zero, fmt.Errorf("amount %q has no %s prefix", s, currency)
	}
	digits := strings.ReplaceAll(strings.TrimSpace(strings.TrimPrefix(s, currency)), ",", "")
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}
