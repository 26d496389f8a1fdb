// -- cmd/capabilities.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonsec/vantage/internal/capability"
)

func newCapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Show the configured enhancement provider's abilities",
		Long: `Report what the configured enhancement provider can do, derived entirely
from configuration. No network calls are made: an unreachable provider and a
capable one look the same here, and an unconfigured provider is a normal
result, not an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot := capability.Probe(appConfig.Provider())
			out := cmd.OutOrStdout()

			if !snapshot.ProviderConfigured {
				fmt.Fprintln(out, "Enhancement provider: not configured")
				fmt.Fprintln(out, "Reports will use baseline content only.")
				return nil
			}

			fmt.Fprintf(out, "Enhancement provider: %s\n", snapshot.Provider)
			fmt.Fprintf(out, "Model:                %s\n", snapshot.Model)
			fmt.Fprintf(out, "Vision:               %s\n", yesNo(snapshot.VisionSupported))
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
