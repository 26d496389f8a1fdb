// Package schemas holds the canonical data types and collaborator contracts
// shared across the pipeline. Implementation packages depend on these
// interfaces rather than on each other, which keeps the dependency graph
// acyclic and makes every collaborator mockable in tests.
package schemas

import "context"

// Store is the read model over scans and findings plus the single conditional
// write the lifecycle manager needs. Findings are immutable once written by
// the analysis engine; this pipeline never inserts or deletes them.
type Store interface {
	// GetScan returns the scan row, or ErrNotFound.
	GetScan(ctx context.Context, scanID string) (*Scan, error)

	// GetFindingsByScanID returns the scan's findings in the store's native
	// order (ascending observation time). The pipeline must not reorder them.
	GetFindingsByScanID(ctx context.Context, scanID string) ([]Finding, error)

	// UpdateScanStatus applies a compare-and-swap status update: the write
	// succeeds only if the stored status still equals from. It reports
	// whether a row was updated, letting the lifecycle manager distinguish a
	// lost race from an unknown scan.
	UpdateScanStatus(ctx context.Context, scanID string, from, to ScanStatus, errMsg string) (bool, error)
}

// GenerationOptions controls the provider's text generation.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	MaxOutputTokens int     `json:"max_output_tokens"` // Hard completion length cap; 0 means provider default.
}

// GenerationRequest encapsulates one completion request to the provider.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"` // Instructions for the model's persona and task.
	UserPrompt   string            `json:"user_prompt"`   // The specific task input.
	Options      GenerationOptions `json:"options"`
}

// LLMClient is the narrow contract the enhancement pipeline holds on the
// text-generation provider. Reachability problems surface here, lazily, as
// ErrProviderUnavailable / ErrProviderFailed; the capability probe never
// performs network calls.
type LLMClient interface {
	// Generate produces a text completion for the request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// ArtifactStorage is byte-stream persistence addressed by opaque path.
type ArtifactStorage interface {
	Write(data []byte) (path string, err error)
	Exists(path string) bool
	Read(path string) ([]byte, error)
}

// ReportCache maps a report key to a previously stored artifact location.
// Only the single cacheable key combination is ever stored; Lookup for any
// other key must miss.
type ReportCache interface {
	// Lookup returns the cached record for the key, or (nil, nil) on miss.
	Lookup(ctx context.Context, key ReportKey) (*ArtifactRecord, error)
	// Store upserts the record for the key's scan id. Last writer wins.
	Store(ctx context.Context, key ReportKey, rec ArtifactRecord) error
}
