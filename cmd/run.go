package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/runloop/internal/engine"
)

var runCmd = &cobra.Command{
	Use:     "run <targets...>",
	Aliases: []string{"r"},
	Short:   "Build, start declared services, and watch for changes",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRunCommand,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	loaded := loadConfigOrExit(args)
	log := newLogger()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := engine.Run(ctx, engine.Options{
		Graph:    loaded.Graph,
		Roots:    args,
		StateDir: loaded.StateDir(),
		Watch:    true,
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
