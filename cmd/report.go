// -- cmd/report.go --
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/api/schemas"
	"github.com/halcyonsec/vantage/internal/config"
	"github.com/halcyonsec/vantage/internal/observability"
)

// reportOptions carries the report command's flag values.
type reportOptions struct {
	scanID          string
	ownerID         string
	format          string
	mode            string
	imageProcessing bool
	outputPath      string
}

func newReportCmd(provider serviceProvider) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Synthesize a report artifact for a finished scan",
		Long: `Synthesize a report artifact for a scan that has reached a report-eligible
state (completed or stopped). The default pdf/baseline report is cached; all
other format and mode combinations are synthesized fresh on every request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, provider, opts)
		},
	}

	cmd.Flags().StringVar(&opts.scanID, "scan-id", "", "ID of the scan to report on (required)")
	cmd.Flags().StringVar(&opts.ownerID, "owner", "", "owner ID to authorize against (empty skips the check)")
	cmd.Flags().StringVar(&opts.format, "format", "pdf", "report format: pdf, docx, or pptx")
	cmd.Flags().StringVar(&opts.mode, "mode", "baseline", "content mode: baseline or llm")
	cmd.Flags().BoolVar(&opts.imageProcessing, "image-processing", false, "request image-processing variant of the report")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "write the artifact to this path (default: canonical filename in cwd)")
	_ = cmd.MarkFlagRequired("scan-id")

	return cmd
}

// runReport is the testable core of the report command.
func runReport(cmd *cobra.Command, provider serviceProvider, opts *reportOptions) error {
	logger := observability.GetLogger()
	ctx := cmd.Context()

	format, mode, err := parseReportSelection(opts.format, opts.mode)
	if err != nil {
		return err
	}

	svc, cleanup, err := provider(ctx, appConfig)
	if err != nil {
		return err
	}
	defer cleanup()

	artifact, err := svc.DownloadReport(ctx, opts.ownerID, opts.scanID, format, mode, opts.imageProcessing)
	if err != nil {
		return classifyReportError(err, opts.scanID)
	}

	outputPath := opts.outputPath
	if outputPath == "" {
		outputPath = artifact.Filename
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, artifact.Bytes, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", outputPath, err)
	}

	logger.Info("Report written",
		zap.String("scan_id", opts.scanID),
		zap.String("format", string(format)),
		zap.String("mode", string(mode)),
		zap.String("path", outputPath),
		zap.Int("bytes", len(artifact.Bytes)))
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d bytes)\n", outputPath, len(artifact.Bytes))
	return nil
}

func parseReportSelection(format, mode string) (schemas.ReportFormat, schemas.ReportMode, error) {
	var f schemas.ReportFormat
	switch format {
	case "pdf":
		f = schemas.FormatPDF
	case "docx":
		f = schemas.FormatDOCX
	case "pptx":
		f = schemas.FormatPPTX
	default:
		return "", "", fmt.Errorf("unsupported format %q (expected pdf, docx, or pptx)", format)
	}

	var m schemas.ReportMode
	switch mode {
	case "baseline":
		m = schemas.ModeBaseline
	case "llm":
		m = schemas.ModeLLM
	default:
		return "", "", fmt.Errorf("unsupported mode %q (expected baseline or llm)", mode)
	}
	return f, m, nil
}

// classifyReportError rewraps service errors with operator-facing context.
func classifyReportError(err error, scanID string) error {
	switch {
	case errors.Is(err, schemas.ErrNotFound):
		return fmt.Errorf("scan %s not found", scanID)
	case errors.Is(err, schemas.ErrForbidden):
		return fmt.Errorf("scan %s belongs to a different owner", scanID)
	case errors.Is(err, schemas.ErrNotReady):
		return fmt.Errorf("scan %s has not finished; reports require a completed or stopped scan", scanID)
	default:
		return err
	}
}

// appConfig is set by the root command; this hook exists so command tests can
// install a config without running the root PersistentPreRunE.
func setConfigForTest(cfg config.Interface) { appConfig = cfg }
