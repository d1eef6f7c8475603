package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ReceiptLine is one printable order line.
type ReceiptLine struct {
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
}

// Receipt carries everything needed to render a printable bill.
type Receipt struct {
	RestaurantName    string
	RestaurantAddress string
	OrderNumber       string
	SourceInfo        string
	PlacedAt          string
	Lines             []ReceiptLine
	Totals            Totals
	PaymentMethod     string
}

const receiptWidth = 40

// Format renders the receipt as fixed-width text suitable for a thermal
// printer.
func (r Receipt) Format() string {
	var b strings.Builder

	center := func(s string) {
		pad := (receiptWidth - len(s)) / 2
		if pad < 0 {
			pad = 0
		}
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(s)
		b.WriteString("\n")
	}
	rule := func() {
		b.WriteString(strings.Repeat("-", receiptWidth))
		b.WriteString("\n")
	}
	row := func(label, value string) {
		gap := receiptWidth - len(label) - len(value)
		if gap < 1 {
			gap = 1
		}
		b.WriteString(label)
		b.WriteString(strings.Repeat(" ", gap))
		b.WriteString(value)
		b.WriteString("\n")
	}

	center(r.RestaurantName)
	if r.RestaurantAddress != "" {
		center(r.RestaurantAddress)
	}
	rule()
	row("Order", r.OrderNumber)
	if r.SourceInfo != "" {
		row("Source", r.SourceInfo)
	}
	if r.PlacedAt != "" {
		row("Placed", r.PlacedAt)
	}
	rule()
	for _, l := range r.Lines {
		amount := l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
		row(fmt.Sprintf("%s x%d", l.Name, l.Quantity), amount.StringFixed(2))
	}
	rule()
	row("Subtotal", r.Totals.Subtotal.StringFixed(2))
	if r.Totals.Tax.IsPositive() {
		row("CGST", r.Totals.CGST.StringFixed(2))
		row("SGST", r.Totals.SGST.StringFixed(2))
	}
	if r.Totals.Discount.IsPositive() {
		row("Discount", "-"+r.Totals.Discount.StringFixed(2))
	}
	if r.Totals.DeliveryCharge.IsPositive() {
		row("Delivery", r.Totals.DeliveryCharge.StringFixed(2))
	}
	rule()
	row("TOTAL", r.Totals.Total.StringFixed(2))
	if r.PaymentMethod != "" {
		row("Paid by", r.PaymentMethod)
	}

	return b.String()
}
