// Package reports renders customer-facing exports of ledger data.
package reports

import (
	"fmt"
	"io"
	"strconv"

	"github.com/phpdave11/gofpdf"

	"github.com/fidelicard/loyalty/internal/ledger"
	"github.com/fidelicard/loyalty/internal/models"
)

// maxStatementRows caps the entries rendered on a statement.
const maxStatementRows = 200

// WriteStatement renders a customer's credit statement as a PDF.
func WriteStatement(w io.Writer, customer *models.Customer, info *ledger.Info, entries []models.HistoryEntry) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(20, 20, 20)
	pdf.Cell(0, 10, "Loyalty Credit Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Customer: "+customer.Name)
	pdf.Ln(5)
	pdf.Cell(0, 6, "Card: "+customer.CardID)
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Credits: %d", info.Credits))
	pdf.Ln(5)
	if info.Expired {
		pdf.Cell(0, 6, "Status: Expired since "+info.ExpiresOn)
	} else {
		pdf.Cell(0, 6, fmt.Sprintf("Status: Active, %s day(s) left (expires %s)", info.DaysRemaining, info.ExpiresOn))
	}
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 10)

	colW := []float64{50, 70, 30, 32}
	pdf.CellFormat(colW[0], 8, "DATE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colW[1], 8, "MERCHANT", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[2], 8, "AMOUNT", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colW[3], 8, "ENTRY", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
	for i, entry := range entries {
		if i >= maxStatementRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, "truncated", "1", 1, "C", false, 0, "")
			break
		}
		amount := strconv.Itoa(entry.Amount)
		if entry.Amount > 0 {
			amount = "+" + amount
		}
		pdf.CellFormat(colW[0], 8, entry.CreatedAt.Format("02/01/2006 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 8, entry.MerchantLabel, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[2], 8, amount, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[3], 8, strconv.FormatUint(entry.ID, 10), "1", 1, "C", false, 0, "")
	}
	if len(entries) == 0 {
		pdf.CellFormat(0, 8, "no entries", "1", 1, "C", false, 0, "")
	}

	return pdf.Output(w)
}
