// Package reports generates medical report PDFs and keeps them in a file store.
package reports

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/medivuno/telehealth-server/internal/models"
)

// Document is everything printed on a report.
type Document struct {
	Report  *models.Report
	Patient *models.User
	Doctor  *models.User
}

// Render lays out a single report as an A4 PDF.
func Render(doc Document) ([]byte, error) {
	r := doc.Report
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(r.Title, true)
	pdf.SetAuthor(doc.Doctor.FullName(), true)
	pdf.SetCreationDate(r.CreatedAt)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Report %s - page %d", r.ID, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(r.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, tr(value), "", 1, "L", false, 0, "")
	}
	field("Patient:", doc.Patient.FullName())
	if doc.Patient.DateOfBirth != nil {
		field("Date of birth:", doc.Patient.DateOfBirth.Format("2006-01-02"))
	}
	field("Doctor:", "Dr. "+doc.Doctor.FullName())
	if doc.Doctor.Specialty != "" {
		field("Specialty:", doc.Doctor.Specialty)
	}
	field("Date:", r.Date.Format("January 2, 2006"))
	field("Type:", r.Type)
	pdf.Ln(6)

	section := func(heading, body string) {
		if body == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 9, heading, "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(body), "", "L", false)
		pdf.Ln(4)
	}
	section("Findings", r.Findings)
	section("Recommendations", r.Recommendations)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("reports: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
