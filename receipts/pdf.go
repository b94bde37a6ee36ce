package receipts

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	paperWidth = 80.0
	margin     = 4.0
	lineHeight = 4.5
)

// PDFRenderer lays a receipt out on 80mm roll paper.
type PDFRenderer struct {
	Profile config.Restaurant
}

func NewPDFRenderer(profile config.Restaurant) *PDFRenderer {
	return &PDFRenderer{Profile: profile}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Render(receipt *models.Receipt, order *models.Order) ([]byte, error) {
	bill := receipt.Bill
	// long orders grow the page instead of breaking it
	height := 110.0 + float64(len(bill.Lines)+len(bill.FreeLines)+len(bill.CustomTaxes))*lineHeight

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: paperWidth, Ht: height},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetCreationDate(receipt.CreatedAt)
	pdf.SetTitle(receipt.ReceiptNumber, true)
	pdf.AddPage()

	width := paperWidth - 2*margin

	pdf.SetFont("Helvetica", "B", 11)
	for i, line := range header(r.Profile) {
		if i == 1 {
			pdf.SetFont("Helvetica", "", 8)
		}
		pdf.CellFormat(width, lineHeight+1, line, "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(width, lineHeight, "Receipt: "+receipt.ReceiptNumber, "", 1, "L", false, 0, "")
	pdf.CellFormat(width, lineHeight, fmt.Sprintf("Order #%d  %s", order.ID, tableLabel(order)), "", 1, "L", false, 0, "")
	pdf.CellFormat(width, lineHeight, receipt.CreatedAt.Format("02 Jan 2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(width*0.55, lineHeight, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(width*0.12, lineHeight, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(width*0.33, lineHeight, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, line := range bill.Lines {
		name := line.Name
		if line.ComplimentaryQty > 0 {
			name = fmt.Sprintf("%s (%d comp)", name, line.ComplimentaryQty)
		}
		pdf.CellFormat(width*0.55, lineHeight, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(width*0.12, lineHeight, fmt.Sprint(line.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(width*0.33, lineHeight, utils.FormatCurrency(line.Amount), "", 1, "R", false, 0, "")
	}
	for _, free := range bill.FreeLines {
		pdf.CellFormat(width*0.55, lineHeight, free.Name+" (free)", "", 0, "L", false, 0, "")
		pdf.CellFormat(width*0.12, lineHeight, fmt.Sprint(free.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(width*0.33, lineHeight, utils.FormatCurrency(free.ReportedValue), "", 1, "R", false, 0, "")
	}
	pdf.Ln(1)

	for _, row := range totals(receipt) {
		if row.strong {
			pdf.SetFont("Helvetica", "B", 9)
		}
		pdf.CellFormat(width*0.6, lineHeight, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(width*0.4, lineHeight, row.amount, "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.Ln(1)
	pdf.CellFormat(width, lineHeight, "Paid by "+receipt.PaymentMethod, "", 1, "L", false, 0, "")
	if r.Profile.Footer != "" {
		pdf.Ln(2)
		pdf.CellFormat(width, lineHeight, r.Profile.Footer, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt %s: %w", receipt.ReceiptNumber, err)
	}
	return buf.Bytes(), nil
}

type totalRow struct {
	label  string
	amount string
	strong bool
}

// totals lists the summary rows shared by every renderer. Zero adjustments are
// left off.
func totals(receipt *models.Receipt) []totalRow {
	bill := receipt.Bill
	rows := []totalRow{{label: "Subtotal", amount: utils.FormatCurrency(bill.Subtotal)}}
	if bill.LoyaltyDiscount.IsPositive() {
		rows = append(rows, totalRow{label: fmt.Sprintf("Loyalty (%s%%)", bill.LoyaltyPercent.String()), amount: "-" + utils.FormatCurrency(bill.LoyaltyDiscount)})
	}
	if bill.ManualDiscount.IsPositive() {
		rows = append(rows, totalRow{label: "Discount", amount: "-" + utils.FormatCurrency(bill.ManualDiscount)})
	}
	if bill.Tax.IsPositive() {
		rows = append(rows, totalRow{label: "VAT", amount: utils.FormatCurrency(bill.Tax)})
	}
	if bill.ServiceCharge.IsPositive() {
		rows = append(rows, totalRow{label: "Service charge", amount: utils.FormatCurrency(bill.ServiceCharge)})
	}
	for _, tax := range bill.CustomTaxes {
		rows = append(rows, totalRow{label: fmt.Sprintf("%s (%s%%)", tax.Name, tax.Percentage.String()), amount: utils.FormatCurrency(tax.Amount)})
	}
	rows = append(rows, totalRow{label: "Total", amount: utils.FormatCurrency(bill.GrandTotal), strong: true})
	return rows
}
