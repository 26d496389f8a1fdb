package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/halcyonsec/vantage/api/schemas"
)

// pdfSynthesizer renders the primary document format.
type pdfSynthesizer struct{}

func (s *pdfSynthesizer) Format() schemas.ReportFormat { return schemas.FormatPDF }

func (s *pdfSynthesizer) Synthesize(scan *schemas.Scan, findings []schemas.Finding, overlay *schemas.EnhancementOverlay) (*schemas.Artifact, error) {
	m := newRenderModel(scan, findings, overlay)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Title block.
	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, m.title(), "", "L", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(0, 5, m.subtitle(), "", "L", false)
	pdf.Ln(4)
	pdf.SetTextColor(0, 0, 0)

	// Executive summary, when the overlay produced one.
	if summary := m.summary(); summary != "" {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "Executive Summary", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, summary, "", "L", false)
		pdf.Ln(4)
	}

	// Severity overview.
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Findings Overview", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range m.severityBreakdown() {
		pdf.CellFormat(0, 5, fmt.Sprintf("%s: %d", row.severity, row.count), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Findings, in store order.
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Findings", "", 1, "L", false, 0, "")
	for i, f := range m.findings {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s [%s]", i+1, f.Name, f.Severity), "", "L", false)

		if f.CVSSScore > 0 {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, fmt.Sprintf("CVSS %.1f %s", f.CVSSScore, f.CVSSVector), "", "L", false)
		}

		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, m.description(f), "", "L", false)

		if rem := m.remediation(f); rem != "" {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(0, 6, "Remediation", "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, rem, "", "L", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: pdf rendering: %v", schemas.ErrGenerationFailed, err)
	}

	return &schemas.Artifact{
		Bytes:       buf.Bytes(),
		ContentType: contentTypes[schemas.FormatPDF],
		Filename:    Filename(scan, schemas.FormatPDF),
	}, nil
}
