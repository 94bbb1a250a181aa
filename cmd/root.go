package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string
var logger *zap.SugaredLogger

var rootCmd = &cobra.Command{
	Use:   "seca-recon",
	Short: "CMS reconnaissance: platform detection, versions, exposures and open ports (for authorized testing only)",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// preRun is attached in init; referencing it from the rootCmd literal would
// form an initialization cycle through applyConfigDefaults.
func preRun(cmd *cobra.Command, args []string) error {
	initConfig()
	applyConfigDefaults()

	l, err := newLogger(cliConfig.Defaults.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l.Sugar()
	return nil
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".seca-recon")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SECA_RECON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Execute runs the root command until it completes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = preRun

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seca-recon.yaml)")
	rootCmd.PersistentFlags().IntVarP(&cliConfig.Defaults.TimeoutSecs, "timeout", "t", cliConfig.Defaults.TimeoutSecs, "per-request timeout in seconds")
	rootCmd.PersistentFlags().IntVar(&cliConfig.Defaults.Retries, "retries", cliConfig.Defaults.Retries, "attempts per request on timeout or connection errors")
	rootCmd.PersistentFlags().BoolVarP(&cliConfig.Defaults.Verbose, "verbose", "v", cliConfig.Defaults.Verbose, "verbose output and debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(versionCmd)
}
