package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Catchawink/blec/pkg/blec"
	"github.com/Catchawink/blec/pkg/config"
)

var (
	version = "dev"
	commit  = "none"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blecctl",
	Short: "BLE central session manager CLI",
	Long: `Command-line front end for the blec session manager:

- Scan and discover nearby BLE peripherals
- Connect to a peripheral's service and read/write characteristics
- Monitor characteristic notifications

Useful for firmware development and protocol exploration.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(monitorCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
}

// loadConfig builds the session config from --config and --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// initHandler initializes the process-wide session manager.
func initHandler(cmd *cobra.Command) (*blec.Handler, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return blec.Init(context.Background(), cfg)
}
