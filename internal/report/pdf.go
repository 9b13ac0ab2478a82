// ============================================================================
// internal/report/pdf.go
// Renders a report card document to a single fixed-layout A4 PDF page
// ============================================================================

package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin   = 10.0
	contentWidth = 190.0 // A4 width (210mm) minus both margins
	rowHeight    = 8.0
)

// RenderPDF renders the document into a PDF sized to A4 portrait. The table
// column widths scale to page width; CDF sections with many subjects get a
// smaller font rather than overflowing.
func RenderPDF(doc *Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	style := SanitizeStyle(doc.Style)

	renderHeader(pdf, doc, style)
	for _, section := range doc.Sections {
		renderSection(pdf, section, style)
	}
	renderSignatures(pdf, doc, style)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func renderHeader(pdf *fpdf.Fpdf, doc *Document, style Style) {
	// Logo only when it resolves to a local file; web assets are skipped
	if doc.LogoPath != "" {
		if _, err := os.Stat(doc.LogoPath); err == nil {
			pdf.ImageOptions(doc.LogoPath, pageMargin, pageMargin, 0, 12,
				false, fpdf.ImageOptions{AllowNegativePosition: false}, 0, "")
		}
	}

	r, g, b := hexToRGB(style.BodyText)
	pdf.SetTextColor(r, g, b)

	if doc.InstituteName != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(contentWidth, 8, doc.InstituteName, "", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentWidth, 10, doc.Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentWidth/2, 7, "Name: "+doc.StudentName, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, 7, "Roll No: "+doc.RollNo, "", 1, "R", false, 0, "")
	pdf.Ln(4)
}

func renderSection(pdf *fpdf.Fpdf, section TableSection, style Style) {
	tr, tg, tb := hexToRGB(style.BodyText)
	pdf.SetTextColor(tr, tg, tb)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentWidth, 8, section.Heading, "", 1, "C", false, 0, "")

	if len(section.Columns) == 0 {
		return
	}

	colWidth := contentWidth / float64(len(section.Columns))
	fontSize := 10.0
	if len(section.Columns) > 9 {
		fontSize = 7.5
	}

	// Header row
	hr, hg, hb := hexToRGB(style.HeaderBG)
	pdf.SetFillColor(hr, hg, hb)
	hr, hg, hb = hexToRGB(style.HeaderText)
	pdf.SetTextColor(hr, hg, hb)
	pdf.SetFont("Helvetica", "B", fontSize)
	for _, col := range section.Columns {
		pdf.CellFormat(colWidth, rowHeight, col, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// Data row
	pdf.SetTextColor(tr, tg, tb)
	pdf.SetFont("Helvetica", "", fontSize)
	for _, cell := range section.Row {
		pdf.CellFormat(colWidth, rowHeight, cell, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.Ln(6)
}

func renderSignatures(pdf *fpdf.Fpdf, doc *Document, style Style) {
	// Fixed three-column block near the page bottom
	_, pageHeight := pdf.GetPageSize()
	y := pageHeight - 35
	if pdf.GetY() > y {
		y = pdf.GetY() + 20
	}
	pdf.SetY(y)

	r, g, b := hexToRGB(style.BodyText)
	pdf.SetTextColor(r, g, b)
	pdf.SetDrawColor(r, g, b)
	pdf.SetFont("Helvetica", "", 10)

	colWidth := contentWidth / 3
	for i, label := range doc.Signatures {
		x := pageMargin + float64(i)*colWidth
		pdf.Line(x+10, y, x+colWidth-10, y)
		pdf.SetXY(x, y+2)
		pdf.CellFormat(colWidth, 6, label, "", 0, "C", false, 0, "")
	}
}
