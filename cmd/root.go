// Package cmd provides the runloop command-line interface: a Cobra
// command tree over the engine façade, with configuration loaded via
// Viper from runloop.yml (or $RUNLOOP_CONFIG_FILE).
//
// Environment Variables:
//
//	RUNLOOP_CONFIG_FILE: path to a configuration file, overriding the
//	default runloop.yml lookup in the current directory.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/runloop/internal/logging"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "runloop",
	Short: "An incremental, parallel build orchestrator for local dev loops",
	Long: `runloop reads a declarative target graph from runloop.yml, builds
targets in dependency order with maximum available parallelism, skips
any target whose inputs are unchanged since its last successful build,
and can watch the filesystem to rebuild the smallest necessary subset
of targets and restart affected services.

Quick start:
  runloop build <targets...>   One-shot build (stays up while a service runs).
  runloop watch <targets...>   Build, then watch and rebuild on change.
  runloop run <targets...>     Build, start services, watch (the common loop).
  runloop graph <targets...>   Print dependency order and the active set.
  runloop clean [targets...]   Clear recorded fingerprints.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: runloop.yml, or $RUNLOOP_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
}

// newLogger builds the process-wide logger from the --log-level flag.
func newLogger() logging.Logger {
	return logging.New(&logging.Config{
		Level:  logging.ParseLevel(logLevel),
		Format: "text",
		Output: os.Stderr,
	})
}

func exitConfigError(err error) {
	fmt.Fprintln(os.Stderr, "runloop:", err)
	os.Exit(2)
}
