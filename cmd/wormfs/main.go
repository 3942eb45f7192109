package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/config"
	"github.com/marmos91/wormfs/pkg/registry"
	"github.com/spf13/cobra"
)

// skipSetup marks commands that run without loading the configuration.
const skipSetup = "skip-setup"

var (
	configPath string
	logLevel   string
	jsonOutput bool

	cfg     *config.Config
	reg     *registry.Registry
	metrics *config.MetricsResult
)

// rootCmd loads the configuration and builds the registry before any
// subcommand runs, and closes the stores after it returns.
var rootCmd = &cobra.Command{
	Use:   "wormfs <command>",
	Short: "Write-once-read-many open gate over pluggable metadata stores",
	Long: `wormfs serves shares backed by a metadata store through a pipeline of
layers. With the worm layer enabled, a file whose change time is older than
the share's grace period can still be opened for reading, but every open
asking for write access is refused.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := cmd.Annotations[skipSetup]; ok {
			return nil
		}
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if reg != nil {
			if err := reg.Close(); err != nil {
				logger.Warn("closing stores: %v", err)
			}
		}
		_ = logger.Sync()
	},
}

// setup loads the configuration, configures logging and metrics, then
// builds the registry of stores and shares.
func setup(cmd *cobra.Command) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Logging.Level
	if logLevel != "" {
		level = strings.ToUpper(logLevel)
	}
	// Command output goes to stdout; keep logs off it
	output := cfg.Logging.Output
	if strings.EqualFold(output, "stdout") {
		output = "stderr"
	}
	if err := logger.Configure(level, cfg.Logging.Format, output); err != nil {
		return err
	}

	// Metrics must exist before the registry so stores can be instrumented
	metrics = config.InitializeMetrics(cfg)

	reg, err = config.InitializeRegistry(cmd.Context(), cfg, metrics)
	if err != nil {
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/wormfs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(chmodCmd)
	rootCmd.AddCommand(shellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
