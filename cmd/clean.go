package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/runloop/internal/config"
	"github.com/conneroisu/runloop/internal/fingerprint"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [targets...]",
	Short: "Clear recorded fingerprints, forcing a rebuild on the next invocation",
	RunE:  runCleanCommand,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runCleanCommand(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		exitConfigError(err)
		return nil
	}

	store, err := fingerprint.NewStore(loaded.StateDir())
	if err != nil {
		fmt.Fprintln(os.Stderr, "runloop:", err)
		os.Exit(1)
	}

	if len(args) == 0 {
		if err := store.ClearAll(); err != nil {
			fmt.Fprintln(os.Stderr, "runloop:", err)
			os.Exit(1)
		}
		return nil
	}

	for _, name := range args {
		if _, ok := loaded.Graph.Index(name); !ok {
			exitConfigError(fmt.Errorf("unknown target %q", name))
		}
		if err := store.Clear(name); err != nil {
			fmt.Fprintln(os.Stderr, "runloop:", err)
			os.Exit(1)
		}
	}
	return nil
}
