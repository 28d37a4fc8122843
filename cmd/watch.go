package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/runloop/internal/engine"
)

var watchCmd = &cobra.Command{
	Use:     "watch <targets...>",
	Aliases: []string{"w"},
	Short:   "Build one or more targets, then rebuild on filesystem change",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runWatchCommand,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
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
