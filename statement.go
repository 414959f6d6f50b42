package bankxatm

import (
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

var statementColumns = []struct {
	title string
	width float64
}{
	{"Date (UTC)", 45},
	{"Transaction", 45},
	{"Amount", 45},
	{"Balance", 45},
}

// WriteStatement renders the account history as an A4 PDF.
func WriteStatement(w io.Writer, snap *AccountSnapshot) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Account statement", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Account statement")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr("Customer: "+snap.Username))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Generated: "+time.Now().UTC().Format(time.RFC1123))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Current balance: "+snap.Balance.StringFixed(2))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range statementColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, r := range snap.History {
		amount := "-"
		if r.Amount.Valid {
			amount = r.Amount.Decimal.StringFixed(2)
		}
		pdf.CellFormat(45, 6, r.At.Format("2006-01-02 15:04:05"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, string(r.Kind), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, amount, "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, r.Balance.Decimal.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if len(snap.History) == 0 {
		pdf.CellFormat(180, 6, "No transactions", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
