// Package billing computes order totals with Indian GST semantics. All math
// runs on decimals; nothing here touches the database.
package billing

import (
	"github.com/shopspring/decimal"
)

var (
	oneHundred = decimal.NewFromInt(100)
	two        = decimal.NewFromInt(2)
)

// Line is one priced order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int32
}

// Totals is a fully computed bill. CGST and SGST always split the tax amount
// evenly; Tax is their sum.
type Totals struct {
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	CGST           decimal.Decimal
	SGST           decimal.Decimal
	Discount       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
}

// Compute builds totals forward from line prices. taxRate is a percentage
// (5 means 5%); pass zero to skip tax entirely. The grand total never goes
// below zero no matter how large the discount is.
func Compute(lines []Line, taxRate, deliveryCharge, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity)))
	}

	tax := subtotal.Mul(taxRate).Div(oneHundred)
	half := tax.Div(two)

	total := subtotal.Add(tax).Add(deliveryCharge).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal,
		Tax:            tax,
		CGST:           half,
		SGST:           half,
		Discount:       discount,
		DeliveryCharge: deliveryCharge,
		Total:          total,
	}
}

// Breakdown reverses a tax-inclusive grand total back into its components.
// It is the inverse of Compute for the same rate, delivery charge and
// discount: Compute(...).Total fed back through Breakdown reproduces the
// original subtotal and tax.
func Breakdown(total, taxRate, deliveryCharge, discount decimal.Decimal) Totals {
	pre := total.Sub(deliveryCharge).Add(discount)
	subtotal := pre.Mul(oneHundred).Div(oneHundred.Add(taxRate))
	tax := pre.Sub(subtotal)
	half := tax.Div(two)

	return Totals{
		Subtotal:       subtotal,
		Tax:            tax,
		CGST:           half,
		SGST:           half,
		Discount:       discount,
		DeliveryCharge: deliveryCharge,
		Total:          total,
	}
}
