package enhance

import (
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/halcyonsec/vantage/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Evidence truncation bounds keep prompts inside sane token budgets.
const (
	maxRequestEvidence  = 1500
	maxResponseEvidence = 1000
	maxNotesEvidence    = 500
)

// topFindingsInSummary caps how many findings the summary prompt names.
const topFindingsInSummary = 5

const descriptionSystemPrompt = "You are a senior application security analyst. " +
	"Rewrite vulnerability descriptions for a technical audience: clear prose, " +
	"concrete impact, no markdown, no JSON, no preamble."

const remediationSystemPrompt = "You are a senior application security analyst. " +
	"Rewrite remediation guidance as direct, actionable steps in plain prose. " +
	"No markdown, no JSON, no preamble."

const summarySystemPrompt = "You are a senior application security analyst " +
	"writing the executive summary of a penetration test report. Plain prose, " +
	"suitable for non-technical leadership, no markdown, no preamble."

// truncate cuts s to at most n bytes, marking the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n[... truncated ...]"
}

// evidenceSection renders the finding's evidence blob, bounded, for prompt
// inclusion. Malformed evidence is omitted rather than failing the prompt.
func evidenceSection(f schemas.Finding) string {
	if len(f.Evidence) == 0 {
		return ""
	}
	var ev schemas.FindingEvidence
	if err := json.Unmarshal(f.Evidence, &ev); err != nil {
		return ""
	}

	var b strings.Builder
	if ev.Request != "" {
		fmt.Fprintf(&b, "\nHTTP request:\n%s\n", truncate(ev.Request, maxRequestEvidence))
	}
	if ev.Response != "" {
		fmt.Fprintf(&b, "\nHTTP response:\n%s\n", truncate(ev.Response, maxResponseEvidence))
	}
	if ev.Notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", truncate(ev.Notes, maxNotesEvidence))
	}
	return b.String()
}

func findingHeader(scan *schemas.Scan, f schemas.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s (%s scan)\n", scan.Target, scan.Kind)
	fmt.Fprintf(&b, "Vulnerability: %s\n", f.Name)
	fmt.Fprintf(&b, "Severity: %s\n", f.Severity)
	if f.CVSSScore > 0 {
		fmt.Fprintf(&b, "CVSS: %.1f (%s)\n", f.CVSSScore, f.CVSSVector)
	}
	if len(f.CWE) > 0 {
		fmt.Fprintf(&b, "CWE: %s\n", strings.Join(f.CWE, ", "))
	}
	return b.String()
}

func buildDescriptionPrompt(scan *schemas.Scan, f schemas.Finding) string {
	var b strings.Builder
	b.WriteString(findingHeader(scan, f))
	fmt.Fprintf(&b, "\nCurrent description:\n%s\n", f.Description)
	b.WriteString(evidenceSection(f))
	b.WriteString("\nRewrite the description above.")
	return b.String()
}

func buildRemediationPrompt(scan *schemas.Scan, f schemas.Finding) string {
	var b strings.Builder
	b.WriteString(findingHeader(scan, f))
	fmt.Fprintf(&b, "\nCurrent remediation guidance:\n%s\n", f.Remediation)
	b.WriteString("\nRewrite the remediation guidance above.")
	return b.String()
}

// buildSummaryPrompt aggregates the finding set: severity counts plus the
// top findings ranked by descending CVSS score, ties keeping store order.
func buildSummaryPrompt(scan *schemas.Scan, findings []schemas.Finding) string {
	counts := make(map[schemas.Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	present := make([]schemas.Severity, 0, len(counts))
	for sev := range counts {
		present = append(present, sev)
	}
	sort.Slice(present, func(i, j int) bool {
		ri, rj := schemas.SeverityRank(present[i]), schemas.SeverityRank(present[j])
		if ri != rj {
			return ri < rj
		}
		return present[i] < present[j]
	})

	ranked := make([]schemas.Finding, len(findings))
	copy(ranked, findings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CVSSScore > ranked[j].CVSSScore
	})
	if len(ranked) > topFindingsInSummary {
		ranked = ranked[:topFindingsInSummary]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Security assessment of %s (%s scan).\n\nFindings by severity:\n", scan.Target, scan.Kind)
	for _, sev := range present {
		fmt.Fprintf(&b, "- %s: %d\n", sev, counts[sev])
	}

	b.WriteString("\nMost significant findings:\n")
	for i, f := range ranked {
		fmt.Fprintf(&b, "%d. %s (%s", i+1, f.Name, f.Severity)
		if f.CVSSScore > 0 {
			fmt.Fprintf(&b, ", CVSS %.1f", f.CVSSScore)
		}
		b.WriteString(")\n")
	}

	b.WriteString("\nWrite an executive summary of this assessment.")
	return b.String()
}
