// -- cmd/track.go --
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/observability"
	"github.com/halcyonsec/vantage/internal/poller"
	"github.com/halcyonsec/vantage/internal/service"
)

// trackOptions carries the track command's flag values.
type trackOptions struct {
	scanID  string
	ownerID string
}

func newTrackCmd(provider serviceProvider) *cobra.Command {
	opts := &trackOptions{}

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Follow a scan's analysis progress until it finishes",
		Long: `Poll the external analysis engine for the scan's status until it reaches a
terminal state or the polling budget is exhausted. Progress only ever moves
forward; transient engine errors consume attempts but do not abort tracking.
Observed terminal outcomes are recorded against the scan's lifecycle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrack(cmd, provider, opts)
		},
	}

	cmd.Flags().StringVar(&opts.scanID, "scan-id", "", "ID of the scan to track (required)")
	cmd.Flags().StringVar(&opts.ownerID, "owner", "", "owner ID to authorize against (empty skips the check)")
	_ = cmd.MarkFlagRequired("scan-id")

	return cmd
}

// runTrack is the testable core of the track command.
func runTrack(cmd *cobra.Command, provider serviceProvider, opts *trackOptions) error {
	logger := observability.GetLogger()
	ctx := cmd.Context()

	svc, cleanup, err := provider(ctx, appConfig)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := svc.StartTracking(ctx, opts.ownerID, opts.scanID)
	if err != nil {
		if errors.Is(err, schemas.ErrNotFound) {
			return fmt.Errorf("scan %s not found", opts.scanID)
		}
		return err
	}

	var lastStatus string
	for update := range session.Updates() {
		lastStatus = update.Status
		fmt.Fprintf(cmd.OutOrStdout(), "[%3d%%] %s\n", update.Progress, update.Status)
	}

	switch err := session.Err(); {
	case err == nil:
		recordOutcome(ctx, svc, opts.scanID, schemas.ScanStatus(lastStatus), "", logger)
		fmt.Fprintln(cmd.OutOrStdout(), "Analysis finished.")
		return nil
	case errors.Is(err, poller.ErrScanFailed):
		recordOutcome(ctx, svc, opts.scanID, schemas.StatusFailed, "analysis engine reported scan failure", logger)
		return fmt.Errorf("scan %s failed during analysis", opts.scanID)
	case errors.Is(err, schemas.ErrPollTimeout):
		// Not terminal: the external job may still finish; nothing to record.
		return fmt.Errorf("gave up tracking scan %s: polling budget exhausted", opts.scanID)
	default:
		return err
	}
}

// recordOutcome persists an observed terminal status through the lifecycle
// manager. The engine side may already have recorded it; losing that race is
// expected and not worth surfacing to the operator.
func recordOutcome(ctx context.Context, svc *service.Service, scanID string, to schemas.ScanStatus, errMsg string, logger *zap.Logger) {
	if !to.IsTerminal() {
		return
	}
	if err := svc.Lifecycle().Transition(ctx, scanID, to, errMsg); err != nil {
		logger.Debug("Terminal status already recorded",
			zap.String("scan_id", scanID), zap.String("status", string(to)), zap.Error(err))
	}
}
