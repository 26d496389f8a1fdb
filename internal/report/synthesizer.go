// Package report synthesizes binary report artifacts from a scan's findings,
// optionally overlaid with enhancement output. Formats form a closed set;
// every format consumes the same inputs and yields self-contained bytes plus
// a content type and canonical filename. Synthesis is deterministic for a
// given input, modulo the generation timestamp embedded in the artifact, and
// never reorders findings.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/halcyonsec/vantage/api/schemas"
)

// Synthesizer renders one report format.
type Synthesizer interface {
	// Synthesize builds the artifact. Rendering failures surface wrapped in
	// schemas.ErrGenerationFailed and are not retried.
	Synthesize(scan *schemas.Scan, findings []schemas.Finding, overlay *schemas.EnhancementOverlay) (*schemas.Artifact, error)
	// Format identifies the format this synthesizer produces.
	Format() schemas.ReportFormat
}

// New creates a synthesizer for the requested format.
func New(format schemas.ReportFormat) (Synthesizer, error) {
	switch format {
	case schemas.FormatPDF:
		return &pdfSynthesizer{}, nil
	case schemas.FormatDOCX:
		return &docxSynthesizer{}, nil
	case schemas.FormatPPTX:
		return &pptxSynthesizer{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// contentTypes labels each format's artifact.
var contentTypes = map[schemas.ReportFormat]string{
	schemas.FormatPDF:  "application/pdf",
	schemas.FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	schemas.FormatPPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// ContentType returns the MIME label for a format.
func ContentType(format schemas.ReportFormat) string {
	return contentTypes[format]
}

// Filename derives the canonical artifact filename from scan identity and format.
func Filename(scan *schemas.Scan, format schemas.ReportFormat) string {
	return fmt.Sprintf("vantage-report-%s.%s", scan.ID, format)
}

// renderModel is the format-independent view of one report: the scan, its
// findings in store order, and the effective text for each finding after
// overlay resolution.
type renderModel struct {
	scan        *schemas.Scan
	findings    []schemas.Finding
	overlay     *schemas.EnhancementOverlay
	generatedAt time.Time
}

func newRenderModel(scan *schemas.Scan, findings []schemas.Finding, overlay *schemas.EnhancementOverlay) *renderModel {
	return &renderModel{
		scan:        scan,
		findings:    findings,
		overlay:     overlay,
		generatedAt: time.Now().UTC(),
	}
}

// description returns the enhanced description when the overlay has one for
// this finding, otherwise the original.
func (m *renderModel) description(f schemas.Finding) string {
	if m.overlay != nil {
		if text, ok := m.overlay.Descriptions[f.ID]; ok {
			return text
		}
	}
	return f.Description
}

// remediation mirrors description for remediation text.
func (m *renderModel) remediation(f schemas.Finding) string {
	if m.overlay != nil {
		if text, ok := m.overlay.Remediations[f.ID]; ok {
			return text
		}
	}
	return f.Remediation
}

// summary returns the generated executive summary, or "" when none exists.
func (m *renderModel) summary() string {
	if m.overlay != nil {
		return m.overlay.Summary
	}
	return ""
}

// severityCount is one overview row: a severity and how often it occurs.
type severityCount struct {
	severity schemas.Severity
	count    int
}

// severityBreakdown tallies findings per severity for overview sections,
// ranked most severe first. Unknown severities sort after the known set.
func (m *renderModel) severityBreakdown() []severityCount {
	counts := make(map[schemas.Severity]int)
	for _, f := range m.findings {
		counts[f.Severity]++
	}

	breakdown := make([]severityCount, 0, len(counts))
	for sev, n := range counts {
		breakdown = append(breakdown, severityCount{severity: sev, count: n})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		ri, rj := schemas.SeverityRank(breakdown[i].severity), schemas.SeverityRank(breakdown[j].severity)
		if ri != rj {
			return ri < rj
		}
		return breakdown[i].severity < breakdown[j].severity
	})
	return breakdown
}

func (m *renderModel) title() string {
	return fmt.Sprintf("Security Assessment Report: %s", m.scan.Target)
}

func (m *renderModel) subtitle() string {
	return fmt.Sprintf("Scan %s (%s) - generated %s",
		m.scan.ID, m.scan.Kind, m.generatedAt.Format(time.RFC3339))
}
