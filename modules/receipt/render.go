package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

const ruleWidth = 48

// Render formats a receipt as plain text.
func Render(req RenderReceiptRequest) []byte {
	var buf bytes.Buffer
	rule := strings.Repeat("=", ruleWidth)

	fmt.Fprintln(&buf, rule)
	fmt.Fprintln(&buf, "RECEIPT")
	fmt.Fprintln(&buf, rule)
	fmt.Fprintf(&buf, "Purchase:  %s\n", req.PurchaseID)
	fmt.Fprintf(&buf, "Reference: %s\n", req.Reference)
	fmt.Fprintf(&buf, "Status:    %s\n", req.Status)
	fmt.Fprintf(&buf, "Ordered:   %s\n", formatTime(req.CreatedAt))
	fmt.Fprintf(&buf, "Paid:      %s\n", formatTime(req.PaidAt))
	fmt.Fprintf(&buf, "Payment:   %s %s\n", req.PaymentMethod, req.MaskedAccount)
	fmt.Fprintf(&buf, "Ship to:   %s\n", req.ShippingAddress)
	fmt.Fprintln(&buf, strings.Repeat("-", ruleWidth))

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Item\tQty\tUnit\tTotal\t")
	for _, l := range req.Lines {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", l.ProductName, l.Quantity, l.UnitPrice, l.LineTotal)
	}
	tw.Flush()

	fmt.Fprintln(&buf, strings.Repeat("-", ruleWidth))
	fmt.Fprintf(&buf, "TOTAL: %s\n", req.Total)
	fmt.Fprintln(&buf, rule)
	return buf.Bytes()
}

// Key returns the storage key of the receipt of a purchase.
func Key(purchaseID string) string {
	return "receipt_" + purchaseID + ".txt"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
