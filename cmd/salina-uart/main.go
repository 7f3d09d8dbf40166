// Salina-uart bridges a console's southbridge UART pair to the network.
//
// The bridge daemon owns the EMC command channel and the EFC console,
// exposing both over TCP plus an optional WebSocket/HTTP front end. It
// intercepts a small maintenance vocabulary locally, including the
// unlock sequence that switches the EMC into manufacturing mode.
//
// Usage:
//
//	salina-uart bridge [flags]     run the bridge daemon
//	salina-uart unlock [flags]     one-shot unlock over a local port
//	salina-uart cmd <command...>   send a single command
//	salina-uart console [flags]    interactive console against a bridge
//
// See 'salina-uart --help' for details.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/salina-uart/internal/logging"
	"github.com/muurk/salina-uart/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:     "salina-uart",
	Short:   "Console EMC/EFC UART bridge",
	Version: version.Version,
	Long: `Bridge the console's EMC command channel and EFC console UART to the
network, with built-in support for the manufacturing-mode unlock.

Logging is silent by default; set --log-level or the SALINA_LOG_LEVEL
environment variable to see what the bridge is doing.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(cmdCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("salina-uart %s (commit: %s)\n", version.Version, version.Commit)
	},
}
