package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-recon/internal/metrics"
	"github.com/khanhnv2901/seca-recon/internal/platform"
	"github.com/khanhnv2901/seca-recon/internal/scan"
	"github.com/khanhnv2901/seca-recon/internal/target"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan targets for platform details, exposures and open ports",
	Long: `Scan one or more URLs. Choose the platform explicitly or let "auto"
verify WordPress, then Joomla, and fall back to the generic web probe.`,
}

// scanCommand builds the subcommand for one platform name.
func scanCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:          name + " <url>...",
		Short:        short,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, name, args)
		},
	}
}

func runScan(cmd *cobra.Command, platformName string, args []string) error {
	cfg := cliConfig
	ports, err := parsePorts(cfg.Scan.Ports)
	if err != nil {
		return err
	}

	targets := make([]string, len(args))
	for i, a := range args {
		targets[i] = target.Normalize(a)
	}

	var m *metrics.Metrics
	if cfg.Scan.MetricsFile != "" {
		m = metrics.New()
	}

	orch := &scan.Orchestrator{
		Retries:        cfg.Defaults.Retries,
		CheckTimeout:   cfg.CheckTimeout(),
		MaxPortWorkers: cfg.Scan.MaxPortWorkers,
		Logger:         logger.Desugar(),
		Metrics:        m,
	}

	var progress *progressPrinter
	if len(targets) > 1 && !cfg.Scan.JSON {
		progress = newProgressPrinter(cmd.ErrOrStderr(), len(targets), "scan")
		progress.Start()
	}

	runner := &scan.Runner{
		Concurrency: cfg.Scan.Concurrency,
		RateLimit:   cfg.Scan.RateLimit,
	}
	if progress != nil {
		runner.Progress = func(o scan.Outcome, d time.Duration) {
			progress.Increment(o.Err != nil, o.Result != nil && len(o.Result.Errors) > 0, d)
		}
	}

	logger.Infow("scan started", "platform", platformName, "targets", len(targets), "ports", ports)
	outcomes := runner.RunAll(cmd.Context(), targets, func(ctx context.Context, t string) (*scan.Result, error) {
		return orch.Run(ctx, scan.Request{
			Target:   t,
			Platform: platformName,
			Ports:    ports,
			Timeout:  cfg.Timeout(),
		})
	})
	if progress != nil {
		progress.Stop()
	}

	results := make([]*scan.Result, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			logger.Errorw("scan failed", "target", o.Target, zap.Error(o.Err))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", colorError("Error:"), o.Target, o.Err)
			continue
		}
		results = append(results, o.Result)
	}

	out := cmd.OutOrStdout()
	if cfg.Scan.JSON {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printResult(out, r, cfg.Defaults.Verbose)
		}
	}

	if m != nil {
		if err := writeMetricsFile(cfg.Scan.MetricsFile, m); err != nil {
			return err
		}
		logger.Infow("metrics written", "path", cfg.Scan.MetricsFile)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d target(s) could not be scanned", failed, len(targets))
	}
	return nil
}

func init() {
	flags := scanCmd.PersistentFlags()
	flags.StringVarP(&cliConfig.Scan.Ports, "ports", "p", cliConfig.Scan.Ports, "TCP ports to probe, e.g. 80,443,8000-8010")
	flags.IntVarP(&cliConfig.Scan.Concurrency, "concurrency", "c", cliConfig.Scan.Concurrency, "max targets scanned concurrently")
	flags.IntVarP(&cliConfig.Scan.RateLimit, "rate-limit", "r", cliConfig.Scan.RateLimit, "targets started per second (0 = unlimited)")
	flags.IntVar(&cliConfig.Scan.CheckTimeoutSecs, "check-timeout", cliConfig.Scan.CheckTimeoutSecs, "timeout in seconds for each check of a scan")
	flags.IntVar(&cliConfig.Scan.MaxPortWorkers, "port-workers", cliConfig.Scan.MaxPortWorkers, "concurrent TCP probes per target (max 16)")
	flags.BoolVar(&cliConfig.Scan.JSON, "json", cliConfig.Scan.JSON, "print results as JSON")
	flags.StringVar(&cliConfig.Scan.MetricsFile, "metrics-file", cliConfig.Scan.MetricsFile, "write Prometheus metrics to this file after the run")

	scanCmd.AddCommand(scanCommand(platform.Web, "Generic web scan: metadata, technologies, common exposures"))
	scanCmd.AddCommand(scanCommand(platform.WordPress, "WordPress scan: version, theme, plugins, known exposures"))
	scanCmd.AddCommand(scanCommand(platform.Joomla, "Joomla scan: version, template, components, known exposures"))
	scanCmd.AddCommand(scanCommand(scan.Auto, "Detect the platform, then scan it"))
}
