// Package capability answers "what can the enhancement provider do right
// now" without side effects. The probe only inspects configuration: whether a
// provider is reachable is discovered lazily on the first generate call, not
// here. An unconfigured provider yields a normal snapshot, never an error.
package capability

import (
	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/config"
)

// Probe builds a capability snapshot from the provider configuration. The
// snapshot is recomputed on every call and never cached.
func Probe(cfg config.ProviderConfig) schemas.CapabilitySnapshot {
	snap := schemas.CapabilitySnapshot{
		ProviderConfigured: cfg.Configured(),
	}
	if !snap.ProviderConfigured {
		return snap
	}

	snap.Provider = string(cfg.Name)
	snap.Model = cfg.Model
	for _, m := range cfg.VisionModels {
		if m == cfg.Model {
			snap.VisionSupported = true
			break
		}
	}
	return snap
}
