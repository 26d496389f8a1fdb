package report

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/beevik/etree"

	"github.com/halcyonsec/vantage/api/schemas"
)

const (
	nsPresentation = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawing      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsOfficeRel    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// pptxSynthesizer renders the slide-deck format: a title slide, a severity
// overview slide, then one slide per finding in store order.
type pptxSynthesizer struct{}

func (s *pptxSynthesizer) Format() schemas.ReportFormat { return schemas.FormatPPTX }

func (s *pptxSynthesizer) Synthesize(scan *schemas.Scan, findings []schemas.Finding, overlay *schemas.EnhancementOverlay) (*schemas.Artifact, error) {
	m := newRenderModel(scan, findings, overlay)
	slides := s.buildSlides(m)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		doc  *etree.Document
	}{
		{"[Content_Types].xml", pptxContentTypes(len(slides))},
		{"_rels/.rels", packageRels("ppt/presentation.xml", nsOfficeRel + "/officeDocument")},
		{"ppt/presentation.xml", presentationPart(len(slides))},
		{"ppt/_rels/presentation.xml.rels", presentationRels(len(slides))},
	}
	for i, slide := range slides {
		parts = append(parts, struct {
			name string
			doc  *etree.Document
		}{fmt.Sprintf("ppt/slides/slide%d.xml", i+1), slide})
	}

	for _, part := range parts {
		if err := writeXMLPart(zw, part.name, part.doc); err != nil {
			return nil, fmt.Errorf("%w: pptx part %s: %v", schemas.ErrGenerationFailed, part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: pptx container: %v", schemas.ErrGenerationFailed, err)
	}

	return &schemas.Artifact{
		Bytes:       buf.Bytes(),
		ContentType: contentTypes[schemas.FormatPPTX],
		Filename:    Filename(scan, schemas.FormatPPTX),
	}, nil
}

func (s *pptxSynthesizer) buildSlides(m *renderModel) []*etree.Document {
	var slides []*etree.Document

	titleLines := []string{m.subtitle()}
	if summary := m.summary(); summary != "" {
		titleLines = append(titleLines, summary)
	}
	slides = append(slides, slidePart(m.title(), titleLines))

	var overviewLines []string
	for _, row := range m.severityBreakdown() {
		overviewLines = append(overviewLines, fmt.Sprintf("%s: %d", row.severity, row.count))
	}
	slides = append(slides, slidePart("Findings Overview", overviewLines))

	for _, f := range m.findings {
		lines := []string{fmt.Sprintf("Severity: %s", f.Severity)}
		if f.CVSSScore > 0 {
			lines = append(lines, fmt.Sprintf("CVSS %.1f %s", f.CVSSScore, f.CVSSVector))
		}
		lines = append(lines, m.description(f))
		if rem := m.remediation(f); rem != "" {
			lines = append(lines, "Remediation: "+rem)
		}
		slides = append(slides, slidePart(f.Name, lines))
	}

	return slides
}

// slidePart builds one p:sld with a title shape and a body shape.
func slidePart(title string, lines []string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	sld := doc.CreateElement("p:sld")
	sld.CreateAttr("xmlns:p", nsPresentation)
	sld.CreateAttr("xmlns:a", nsDrawing)
	sld.CreateAttr("xmlns:r", nsOfficeRel)

	spTree := sld.CreateElement("p:cSld").CreateElement("p:spTree")
	grpProps(spTree)

	addTextShape(spTree, 2, "Title", title, []string{})
	addTextShape(spTree, 3, "Body", "", lines)

	return doc
}

// grpProps emits the mandatory shape-tree group header.
func grpProps(spTree *etree.Element) {
	nv := spTree.CreateElement("p:nvGrpSpPr")
	cNv := nv.CreateElement("p:cNvPr")
	cNv.CreateAttr("id", "1")
	cNv.CreateAttr("name", "")
	nv.CreateElement("p:cNvGrpSpPr")
	nv.CreateElement("p:nvPr")
	spTree.CreateElement("p:grpSpPr")
}

// addTextShape emits a text box; head renders first, then one paragraph per line.
func addTextShape(spTree *etree.Element, id int, name, head string, lines []string) {
	sp := spTree.CreateElement("p:sp")

	nv := sp.CreateElement("p:nvSpPr")
	cNv := nv.CreateElement("p:cNvPr")
	cNv.CreateAttr("id", fmt.Sprintf("%d", id))
	cNv.CreateAttr("name", name)
	nv.CreateElement("p:cNvSpPr")
	nv.CreateElement("p:nvPr")
	sp.CreateElement("p:spPr")

	txBody := sp.CreateElement("p:txBody")
	txBody.CreateElement("a:bodyPr")

	paragraphs := lines
	if head != "" {
		paragraphs = append([]string{head}, lines...)
	}
	for _, line := range paragraphs {
		p := txBody.CreateElement("a:p")
		r := p.CreateElement("a:r")
		t := r.CreateElement("a:t")
		t.SetText(line)
	}
	if len(paragraphs) == 0 {
		txBody.CreateElement("a:p")
	}
}

func pptxContentTypes(slideCount int) *etree.Document {
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
	main.CreateAttr("PartName", "/ppt/presentation.xml")
	main.CreateAttr("ContentType", "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml")

	for i := 1; i <= slideCount; i++ {
		slide := types.CreateElement("Override")
		slide.CreateAttr("PartName", fmt.Sprintf("/ppt/slides/slide%d.xml", i))
		slide.CreateAttr("ContentType", "application/vnd.openxmlformats-officedocument.presentationml.slide+xml")
	}

	return doc
}

func presentationPart(slideCount int) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	pres := doc.CreateElement("p:presentation")
	pres.CreateAttr("xmlns:p", nsPresentation)
	pres.CreateAttr("xmlns:r", nsOfficeRel)

	sldIdLst := pres.CreateElement("p:sldIdLst")
	for i := 1; i <= slideCount; i++ {
		sldId := sldIdLst.CreateElement("p:sldId")
		sldId.CreateAttr("id", fmt.Sprintf("%d", 255+i))
		sldId.CreateAttr("r:id", fmt.Sprintf("rId%d", i))
	}

	sldSz := pres.CreateElement("p:sldSz")
	sldSz.CreateAttr("cx", "12192000")
	sldSz.CreateAttr("cy", "6858000")

	return doc
}

func presentationRels(slideCount int) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	rels := doc.CreateElement("Relationships")
	rels.CreateAttr("xmlns", nsRelationships)

	for i := 1; i <= slideCount; i++ {
		rel := rels.CreateElement("Relationship")
		rel.CreateAttr("Id", fmt.Sprintf("rId%d", i))
		rel.CreateAttr("Type", nsOfficeRel+"/slide")
		rel.CreateAttr("Target", fmt.Sprintf("slides/slide%d.xml", i))
	}

	return doc
}
