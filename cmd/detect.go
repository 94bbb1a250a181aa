package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-recon/internal/scan"
	"github.com/khanhnv2901/seca-recon/internal/target"
)

var detectCmd = &cobra.Command{
	Use:          "detect <url>",
	Short:        "Report which platform a site runs (wordpress, joomla or web)",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := target.Normalize(args[0])
		orch := &scan.Orchestrator{
			Retries: cliConfig.Defaults.Retries,
			Logger:  logger.Desugar(),
		}

		name, err := orch.Detect(cmd.Context(), url, cliConfig.Timeout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", colorInfo(url+":"), colorSuccess(name))
		return nil
	},
}
