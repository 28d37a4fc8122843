package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/runloop/internal/engine"
)

var buildCmd = &cobra.Command{
	Use:   "build <targets...>",
	Short: "Build one or more targets and their dependencies, then exit unless a service is declared",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuildCommand,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuildCommand(cmd *cobra.Command, args []string) error {
	loaded := loadConfigOrExit(args)
	log := newLogger()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := engine.Run(ctx, engine.Options{
		Graph:    loaded.Graph,
		Roots:    args,
		StateDir: loaded.StateDir(),
		Watch:    false,
		Logger:   log,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "runloop:", err)
		os.Exit(1)
	}
	if result.AnyFailed {
		os.Exit(1)
	}
	return nil
}
