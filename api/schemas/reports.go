package schemas

import "time"

// -- Report Schemas --

// ReportFormat is the closed set of artifact formats the synthesizer emits.
type ReportFormat string

const (
	FormatPDF  ReportFormat = "pdf"  // Primary document format.
	FormatDOCX ReportFormat = "docx" // Word-processor document.
	FormatPPTX ReportFormat = "pptx" // Slide deck.
)

// ReportMode selects whether synthesis overlays provider-generated text.
type ReportMode string

const (
	ModeBaseline ReportMode = "baseline" // Original finding text only.
	ModeLLM      ReportMode = "llm"      // Best-effort enhanced text overlay.
)

// ReportKey addresses one synthesized artifact. Only the default combination
// (FormatPDF, ModeBaseline, ImageProcessing=false) is ever cached; every
// other combination is recomputed per request by design.
type ReportKey struct {
	ScanID          string       `json:"scan_id"`
	Format          ReportFormat `json:"format"`
	Mode            ReportMode   `json:"mode"`
	ImageProcessing bool         `json:"image_processing"`
}

// Cacheable reports whether this key is the single combination retained by
// the report cache.
func (k ReportKey) Cacheable() bool {
	return k.Format == FormatPDF && k.Mode == ModeBaseline && !k.ImageProcessing
}

// ArtifactRecord is a cache entry pointing at a stored artifact.
type ArtifactRecord struct {
	ScanID    string    `json:"scan_id"`
	Path      string    `json:"path"` // Storage-collaborator address of the bytes.
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is a fully synthesized report returned to the caller.
type Artifact struct {
	Bytes       []byte `json:"-"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

// EnhancementOverlay is the ephemeral output of one enhancement pipeline
// invocation: generated replacement text keyed by finding id, plus an
// optional executive summary. It is never persisted and is recomputed on
// every request that asks for it.
type EnhancementOverlay struct {
	Descriptions map[string]string `json:"descriptions,omitempty"`
	Remediations map[string]string `json:"remediations,omitempty"`
	Summary      string            `json:"summary,omitempty"`
}

// Empty reports whether the overlay carries no generated text at all.
func (o *EnhancementOverlay) Empty() bool {
	return o == nil || (len(o.Descriptions) == 0 && len(o.Remediations) == 0 && o.Summary == "")
}

// CapabilitySnapshot describes the enhancement provider at probe time. It is
// recomputed on every probe and never cached. ProviderConfigured false is a
// normal state, not an error.
type CapabilitySnapshot struct {
	ProviderConfigured bool   `json:"provider_configured"`
	VisionSupported    bool   `json:"vision_supported"`
	Provider           string `json:"provider,omitempty"`
	Model              string `json:"model,omitempty"`
}

// TrackingUpdate is one progress observation surfaced by a polling session.
type TrackingUpdate struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"` // 0-100, monotonically non-decreasing.
}
