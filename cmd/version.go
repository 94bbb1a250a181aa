package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-recon/internal/platform"
)

// Version information (injected at build time via -ldflags)
// These default values indicate a development build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Display detailed version information for seca-recon",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !cliConfig.Defaults.Verbose {
			fmt.Fprintf(out, "seca-recon version %s\n", Version)
			return
		}

		techs, _ := platform.Technologies()
		fmt.Fprintf(out, `seca-recon Version Information:
  Version:      %s
  Git Commit:   %s
  Build Date:   %s
  Go Version:   %s
  OS/Arch:      %s/%s
  Compiler:     %s
  Platforms:    %v
  Technologies: %d
`, Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.Compiler,
			platform.Names(), len(techs))
	},
}
