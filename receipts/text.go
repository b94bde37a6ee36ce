package receipts

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// TextRenderer produces fixed-width plain text for thermal printers.
type TextRenderer struct {
	Profile config.Restaurant
	Width   int
}

func NewTextRenderer(profile config.Restaurant) *TextRenderer {
	return &TextRenderer{Profile: profile, Width: 42}
}

func (r *TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

func (r *TextRenderer) Render(receipt *models.Receipt, order *models.Order) ([]byte, error) {
	var b strings.Builder
	rule := strings.Repeat("-", r.Width)

	for _, line := range header(r.Profile) {
		b.WriteString(r.center(line))
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Receipt: %s\n", receipt.ReceiptNumber)
	fmt.Fprintf(&b, "Order #%d  %s\n", order.ID, tableLabel(order))
	fmt.Fprintf(&b, "%s\n", receipt.CreatedAt.Format("02 Jan 2006 15:04"))
	b.WriteString(rule + "\n")

	for _, line := range receipt.Bill.Lines {
		name := fmt.Sprintf("%dx %s", line.Quantity, line.Name)
		if line.ComplimentaryQty > 0 {
			name += fmt.Sprintf(" (%d comp)", line.ComplimentaryQty)
		}
		b.WriteString(r.row(name, utils.FormatCurrency(line.Amount)))
	}
	for _, free := range receipt.Bill.FreeLines {
		b.WriteString(r.row(fmt.Sprintf("%dx %s (free)", free.Quantity, free.Name), utils.FormatCurrency(free.ReportedValue)))
	}
	b.WriteString(rule + "\n")

	for _, row := range totals(receipt) {
		b.WriteString(r.row(row.label, row.amount))
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Paid by %s\n", receipt.PaymentMethod)
	if r.Profile.Footer != "" {
		b.WriteString(r.center(r.Profile.Footer))
	}
	return []byte(b.String()), nil
}

// Widths below are terminal columns, not bytes, so Devanagari or CJK dish names
// line up and are never cut mid-rune.
func (r *TextRenderer) center(s string) string {
	if pad := (r.Width - runewidth.StringWidth(s)) / 2; pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s + "\n"
}

// row right-aligns amount, truncating label if the two would overlap.
func (r *TextRenderer) row(label, amount string) string {
	amountWidth := runewidth.StringWidth(amount)
	space := r.Width - amountWidth - 1
	if space < 1 {
		return label + " " + amount + "\n"
	}
	label = runewidth.Truncate(label, space, "")
	pad := r.Width - runewidth.StringWidth(label) - amountWidth
	return label + strings.Repeat(" ", pad) + amount + "\n"
}
