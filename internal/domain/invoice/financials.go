package invoice

import "github.com/shopspring/decimal"

var (
	// LateFeeRate is the fixed surcharge applied to the subtotal
	LateFeeRate = decimal.RequireFromString("0.02")

	hundred = decimal.NewFromInt(100)
)

// Totals are the computed amounts behind a record's Financials
type Totals struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Discount   decimal.Decimal
	LateFee    decimal.Decimal
	GrandTotal decimal.Decimal
}

// ComputeTotals derives the invoice totals from its items.
// taxRate is a percentage; the late fee is LateFeeRate of the subtotal.
func ComputeTotals(items []Item, taxRate, discount decimal.Decimal, applyLateFee bool) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total)
	}

	tax := subtotal.Mul(taxRate).Div(hundred)

	lateFee := decimal.Zero
	if applyLateFee {
		lateFee = subtotal.Mul(LateFeeRate)
	}

	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Discount:   discount,
		LateFee:    lateFee,
		GrandTotal: subtotal.Add(tax).Sub(discount).Add(lateFee),
	}
}

// Financials formats the totals for the template
func (t Totals) Financials() Financials {
	return Financials{
		Subtotal:   FormatCurrency(t.Subtotal),
		Tax:        FormatCurrency(t.Tax),
		Discount:   FormatCurrency(t.Discount),
		LateFee:    FormatCurrency(t.LateFee),
		GrandTotal: FormatCurrency(t.GrandTotal),
	}
}
