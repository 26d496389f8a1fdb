package report

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/beevik/etree"

	"github.com/halcyonsec/vantage/api/schemas"
)

// OOXML namespaces used by the word-processor format.
const (
	nsWordprocessing = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes   = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// docxSynthesizer renders the word-processor document format. The package is
// a zip container holding a minimal WordprocessingML part set.
type docxSynthesizer struct{}

func (s *docxSynthesizer) Format() schemas.ReportFormat { return schemas.FormatDOCX }

func (s *docxSynthesizer) Synthesize(scan *schemas.Scan, findings []schemas.Finding, overlay *schemas.EnhancementOverlay) (*schemas.Artifact, error) {
	m := newRenderModel(scan, findings, overlay)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		doc  *etree.Document
	}{
		{"[Content_Types].xml", docxContentTypes()},
		{"_rels/.rels", packageRels("word/document.xml", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument")},
		{"word/document.xml", s.buildDocument(m)},
	}
	for _, part := range parts {
		if err := writeXMLPart(zw, part.name, part.doc); err != nil {
			return nil, fmt.Errorf("%w: docx part %s: %v", schemas.ErrGenerationFailed, part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: docx container: %v", schemas.ErrGenerationFailed, err)
	}

	return &schemas.Artifact{
		Bytes:       buf.Bytes(),
		ContentType: contentTypes[schemas.FormatDOCX],
		Filename:    Filename(scan, schemas.FormatDOCX),
	}, nil
}

// buildDocument assembles word/document.xml: title, summary, severity
// overview, then the findings in store order.
func (s *docxSynthesizer) buildDocument(m *renderModel) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsWordprocessing)
	body := root.CreateElement("w:body")

	addParagraph(body, m.title(), true)
	addParagraph(body, m.subtitle(), false)

	if summary := m.summary(); summary != "" {
		addParagraph(body, "Executive Summary", true)
		addParagraph(body, summary, false)
	}

	addParagraph(body, "Findings Overview", true)
	for _, row := range m.severityBreakdown() {
		addParagraph(body, fmt.Sprintf("%s: %d", row.severity, row.count), false)
	}

	addParagraph(body, "Findings", true)
	for i, f := range m.findings {
		addParagraph(body, fmt.Sprintf("%d. %s [%s]", i+1, f.Name, f.Severity), true)
		if f.CVSSScore > 0 {
			addParagraph(body, fmt.Sprintf("CVSS %.1f %s", f.CVSSScore, f.CVSSVector), false)
		}
		addParagraph(body, m.description(f), false)
		if rem := m.remediation(f); rem != "" {
			addParagraph(body, "Remediation: "+rem, false)
		}
	}

	return doc
}

// addParagraph appends one w:p run; bold toggles heading-like emphasis.
func addParagraph(body *etree.Element, text string, bold bool) {
	p := body.CreateElement("w:p")
	r := p.CreateElement("w:r")
	if bold {
		rPr := r.CreateElement("w:rPr")
		rPr.CreateElement("w:b")
	}
	t := r.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
}

// docxContentTypes declares the default and document part content types.
func docxContentTypes() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	types := doc.CreateElement("Types")
	types.CreateAttr("xmlns", nsContentTypes)

	rels := types.CreateElement("Default")
	rels.CreateAttr("Extension", "rels")
	rels.CreateAttr("ContentType", "application/vnd.openxmlformats-package.relationships+xml")

	xml := types.CreateElement("Default")
	xml.CreateAttr("Extension", "xml")
	xml.CreateAttr("ContentType", "application/xml")

	main := types.CreateElement("Override")
	main.CreateAttr("PartName", "/word/document.xml")
	main.CreateAttr("ContentType", "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml")

	return doc
}

// packageRels builds a package-level relationship part pointing at the main
// document part.
func packageRels(target, relType string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	rels := doc.CreateElement("Relationships")
	rels.CreateAttr("xmlns", nsRelationships)

	rel := rels.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)

	return doc
}

// writeXMLPart serializes one etree document into the zip container.
func writeXMLPart(zw *zip.Writer, name string, doc *etree.Document) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = doc.WriteTo(w)
	return err
}
