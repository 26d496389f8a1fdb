// Package lifecycle owns the scan status state machine. Every status change
// in the system flows through Manager.Transition, which validates the move
// against the transition graph and applies it atomically through the store's
// conditional update. Terminal states are frozen: once a scan is completed,
// failed, or stopped, no further transition is legal.
package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
)

// successors defines the legal transition graph:
// queued -> running -> {completed | failed | stopped}.
// A queued scan must pass through running before it can end; there are no
// shortcut edges out of queued.
var successors = map[schemas.ScanStatus][]schemas.ScanStatus{
	schemas.StatusQueued:  {schemas.StatusRunning},
	schemas.StatusRunning: {schemas.StatusCompleted, schemas.StatusFailed, schemas.StatusStopped},
}

// ValidTransition reports whether moving from one status to another is legal.
func ValidTransition(from, to schemas.ScanStatus) bool {
	for _, s := range successors[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsReportEligible reports whether a scan in the given status may have
// reports synthesized for it. Stopped scans qualify: partial results are
// usable. Failed scans never do.
func IsReportEligible(status schemas.ScanStatus) bool {
	return status == schemas.StatusCompleted || status == schemas.StatusStopped
}

// Manager applies lifecycle transitions against the store.
type Manager struct {
	store  schemas.Store
	logger *zap.Logger
}

// NewManager builds a lifecycle manager over the given store.
func NewManager(store schemas.Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.Named("lifecycle"),
	}
}

// Transition moves the scan to a new status. The source status is read first
// and then used as the compare value for the store's conditional update, so
// two concurrent transitions from the same source state cannot both succeed:
// the loser observes zero updated rows and fails with ErrIllegalTransition.
//
// errMsg is required when transitioning into failed and ignored otherwise.
// The store attaches the completion timestamp on completed/stopped.
func (m *Manager) Transition(ctx context.Context, scanID string, to schemas.ScanStatus, errMsg string) error {
	scan, err := m.store.GetScan(ctx, scanID)
	if err != nil {
		return err
	}

	from := scan.Status
	if from.IsTerminal() {
		return fmt.Errorf("%w: scan %s is already %s", schemas.ErrIllegalTransition, scanID, from)
	}
	if !ValidTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", schemas.ErrIllegalTransition, from, to)
	}
	if to == schemas.StatusFailed && errMsg == "" {
		return fmt.Errorf("%w: transition to failed requires an error message", schemas.ErrIllegalTransition)
	}

	updated, err := m.store.UpdateScanStatus(ctx, scanID, from, to, errMsg)
	if err != nil {
		return fmt.Errorf("failed to apply transition %s -> %s: %w", from, to, err)
	}
	if !updated {
		// A concurrent transition won the race.
		m.logger.Warn("Lost scan transition race",
			zap.String("scan_id", scanID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return fmt.Errorf("%w: scan %s left state %s concurrently", schemas.ErrIllegalTransition, scanID, from)
	}

	return nil
}

// EnsureReportEligible loads the scan and verifies a report may be produced
// for it, mapping ineligible states to ErrNotReady.
func (m *Manager) EnsureReportEligible(ctx context.Context, scanID string) (*schemas.Scan, error) {
	scan, err := m.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if !IsReportEligible(scan.Status) {
		return nil, fmt.Errorf("%w: scan %s is %s", schemas.ErrNotReady, scanID, scan.Status)
	}
	return scan, nil
}
