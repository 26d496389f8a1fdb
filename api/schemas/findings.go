package schemas

import (
	"encoding/json"
	"time"
)

// -- Finding Schemas --

// Severity represents the severity level of a security finding, ranging from
// critical to informational. The values are lowercase to align with database ENUMs.
type Severity string

// Constants defining the standard severity levels for findings.
const (
	SeverityCritical Severity = "critical" // Represents a critical vulnerability.
	SeverityHigh     Severity = "high"     // Represents a high-severity vulnerability.
	SeverityMedium   Severity = "medium"   // Represents a medium-severity vulnerability.
	SeverityLow      Severity = "low"      // Represents a low-severity vulnerability.
	SeverityInfo     Severity = "info"     // Represents an informational finding.
)

// SeverityRank orders severities for aggregation, critical first. Unknown
// severities sort last.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 4
	case SeverityInfo:
		return 5
	default:
		return 99
	}
}

// Finding encapsulates all the details of a single security vulnerability
// identified by a scan. Findings are written once by the analysis engine and
// are read-only to the report pipeline; enhanced text derived from them is
// never written back. This struct maps directly to the `findings` table.
type Finding struct {
	ID     string `json:"id"`      // Unique identifier for the finding.
	ScanID string `json:"scan_id"` // The ID of the scan that produced this finding.

	// ObservedAt is the timestamp when the finding was discovered.
	ObservedAt time.Time `json:"observed_at"`

	Name        string   `json:"name"`        // Descriptive name for the vulnerability (e.g., "Reflected XSS").
	Severity    Severity `json:"severity"`    // The severity level of the finding.
	Description string   `json:"description"` // A detailed description of the vulnerability.

	// CVSSScore and CVSSVector carry the CVSS v3 assessment when the engine
	// produced one. A zero score with an empty vector means "not scored".
	CVSSScore  float64 `json:"cvss_score,omitempty"`
	CVSSVector string  `json:"cvss_vector,omitempty"`

	// CWE holds relevant Common Weakness Enumeration identifiers.
	CWE []string `json:"cwe,omitempty"`

	// Evidence provides structured, machine-readable proof of the
	// vulnerability, stored as JSONB in the database. The expected shape is
	// FindingEvidence, but the pipeline tolerates arbitrary JSON.
	Evidence json.RawMessage `json:"evidence,omitempty"`

	Remediation string `json:"remediation,omitempty"` // Suggested steps for remediation.
}

// FindingEvidence is the conventional shape of Finding.Evidence: the raw HTTP
// exchange that demonstrated the issue plus any free-form notes.
type FindingEvidence struct {
	Request  string `json:"request,omitempty"`
	Response string `json:"response,omitempty"`
	Notes    string `json:"notes,omitempty"`
}
