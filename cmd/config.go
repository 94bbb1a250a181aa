package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	consts "github.com/khanhnv2901/seca-recon/internal/shared/constants"
)

const (
	defaultTimeoutSecs      = 30
	defaultCheckTimeoutSecs = 300
	defaultPortsSpec        = "80,443"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Scan     ScanRuntimeConfig
}

// DefaultValues apply to every command that touches the network.
type DefaultValues struct {
	TimeoutSecs int
	Retries     int
	Verbose     bool
}

// ScanRuntimeConfig consolidates flag-driven settings for scan commands.
type ScanRuntimeConfig struct {
	Ports            string
	Concurrency      int
	RateLimit        int
	CheckTimeoutSecs int
	MaxPortWorkers   int
	JSON             bool
	MetricsFile      string
}

type defaultOverrides struct {
	TimeoutSecs      *int
	Retries          *int
	Ports            string
	Concurrency      *int
	RateLimit        *int
	CheckTimeoutSecs *int
	MaxPortWorkers   *int
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs: defaultTimeoutSecs,
			Retries:     consts.DefaultRetries,
		},
		Scan: ScanRuntimeConfig{
			Ports:            defaultPortsSpec,
			Concurrency:      1,
			RateLimit:        0,
			CheckTimeoutSecs: defaultCheckTimeoutSecs,
			MaxPortWorkers:   consts.DefaultPortWorkers,
		},
	}
}

// Timeout is the per-request timeout.
func (c *CLIConfig) Timeout() time.Duration {
	return time.Duration(c.Defaults.TimeoutSecs) * time.Second
}

// CheckTimeout bounds each orchestrated check.
func (c *CLIConfig) CheckTimeout() time.Duration {
	return time.Duration(c.Scan.CheckTimeoutSecs) * time.Second
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{}

	intKey := func(key string) *int {
		if !viper.IsSet(key) {
			return nil
		}
		val := viper.GetInt(key)
		return &val
	}

	overrides.TimeoutSecs = intKey("defaults.timeout_secs")
	overrides.Retries = intKey("defaults.retries")
	if viper.IsSet("defaults.ports") {
		overrides.Ports = viper.GetString("defaults.ports")
	}
	overrides.Concurrency = intKey("scan.concurrency")
	overrides.RateLimit = intKey("scan.rate_limit")
	overrides.CheckTimeoutSecs = intKey("scan.check_timeout_secs")
	overrides.MaxPortWorkers = intKey("scan.max_port_workers")

	return overrides
}

// applyConfigDefaults merges config file and environment values into the
// runtime config when the user did not explicitly set the corresponding flag.
func applyConfigDefaults() {
	overrides := loadDefaultOverrides()
	rootFlags := rootCmd.PersistentFlags()
	scanFlags := scanCmd.PersistentFlags()

	if overrides.TimeoutSecs != nil {
		applyIntDefault(rootFlags, "timeout", *overrides.TimeoutSecs, func(v int) {
			cliConfig.Defaults.TimeoutSecs = v
		})
	}
	if overrides.Retries != nil {
		applyIntDefault(rootFlags, "retries", *overrides.Retries, func(v int) {
			cliConfig.Defaults.Retries = v
		})
	}
	if overrides.Ports != "" {
		applyStringDefault(scanFlags, "ports", overrides.Ports, func(v string) {
			cliConfig.Scan.Ports = v
		})
	}
	if overrides.Concurrency != nil {
		applyIntDefault(scanFlags, "concurrency", *overrides.Concurrency, func(v int) {
			cliConfig.Scan.Concurrency = v
		})
	}
	if overrides.RateLimit != nil {
		applyIntDefault(scanFlags, "rate-limit", *overrides.RateLimit, func(v int) {
			cliConfig.Scan.RateLimit = v
		})
	}
	if overrides.CheckTimeoutSecs != nil {
		applyIntDefault(scanFlags, "check-timeout", *overrides.CheckTimeoutSecs, func(v int) {
			cliConfig.Scan.CheckTimeoutSecs = v
		})
	}
	if overrides.MaxPortWorkers != nil {
		applyIntDefault(scanFlags, "port-workers", *overrides.MaxPortWorkers, func(v int) {
			cliConfig.Scan.MaxPortWorkers = v
		})
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
