package schemas

import "time"

// -- Scan Schemas --

// ScanStatus tracks a scan through its lifecycle. The values are lowercase to
// align with database ENUMs.
type ScanStatus string

const (
	StatusQueued    ScanStatus = "queued"    // Accepted, waiting for the engine.
	StatusRunning   ScanStatus = "running"   // The engine is actively scanning.
	StatusCompleted ScanStatus = "completed" // The engine finished normally.
	StatusFailed    ScanStatus = "failed"    // The engine aborted with an error.
	StatusStopped   ScanStatus = "stopped"   // A caller terminated the scan early.
)

// ScanKind is the closed set of supported assessment types.
type ScanKind string

const (
	ScanKindWeb    ScanKind = "web"
	ScanKindMobile ScanKind = "mobile"
)

// TestAccount holds one credential pair used for authenticated and
// authorization-boundary testing.
type TestAccount struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Role     string `json:"role,omitempty" mapstructure:"role"`
}

// ScanSettings is the engine-facing configuration captured when the scan was
// created. The report pipeline treats it as opaque descriptive data.
type ScanSettings struct {
	RateLimit      int           `json:"rate_limit,omitempty"`      // Requests per second ceiling.
	RecursionDepth int           `json:"recursion_depth,omitempty"` // Crawl depth.
	ActiveChecks   bool          `json:"active_checks,omitempty"`   // Intrusive test toggles.
	TestAccounts   []TestAccount `json:"test_accounts,omitempty"`
}

// Scan is one security-assessment run against a target. Status is owned by
// the lifecycle manager and mutated only through its transitions; the row is
// never deleted by the report pipeline.
type Scan struct {
	ID      string     `json:"id"`
	OwnerID string     `json:"owner_id"`
	Kind    ScanKind   `json:"kind"`
	Target  string     `json:"target"`
	Status  ScanStatus `json:"status"`

	Settings ScanSettings `json:"settings"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // Set on completed/stopped.
	Error       string     `json:"error,omitempty"`        // Set on failed.
}

// IsTerminal reports whether no further lifecycle transition is legal.
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}
