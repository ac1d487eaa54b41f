package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	rootConfig   string
	rootAdapter  string
	rootLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "lockbt [device-name...]",
	Short: "Disconnect Bluetooth devices while the screen is locked",
	Long: `lockbt watches the login session and disconnects the paired Bluetooth
devices whose name contains one of the given names when the screen locks.
The same devices are reconnected when the screen unlocks.

Device names can also be listed under "devices" in
$XDG_CONFIG_HOME/lockbt/config.yaml.`,
	Args:    cobra.ArbitraryArgs,
	RunE:    runDaemon,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// main() prints errors itself
	rootCmd.SilenceErrors = true

	rootCmd.Flags().StringVar(&rootConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/lockbt/config.yaml)")
	rootCmd.Flags().StringVar(&rootAdapter, "adapter", "hci0", "Bluetooth adapter, empty for all adapters")
	rootCmd.Flags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug, info, warn, error, silent)")
}
