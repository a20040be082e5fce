package invoice

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes every formatted amount
const CurrencySymbol = "Rp"

// FormatCurrency renders an amount for display in a document.
// Zero renders as an empty string, integral amounts are thousands-grouped
// without decimals and fractional amounts carry exactly two decimals.
func FormatCurrency(amount decimal.Decimal) string {
	if amount.IsZero() {
		return ""
	}

	p := message.NewPrinter(language.English)
	if amount.IsInteger() {
		return CurrencySymbol + " " + p.Sprintf("%d", amount.IntPart())
	}

	f, _ := amount.Round(2).Float64()
	return CurrencySymbol + " " + p.Sprintf("%.2f", f)
}

// FormatQuantity renders integral quantities without a decimal part
func FormatQuantity(q decimal.Decimal) string {
	if q.IsInteger() {
		return q.StringFixed(0)
	}
	return q.String()
}
