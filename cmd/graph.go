package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var graphJSON bool

var graphCmd = &cobra.Command{
	Use:   "graph <targets...>",
	Short: "Print the resolved dependency order and active set for targets",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGraphCommand,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "print as JSON")
}

func runGraphCommand(cmd *cobra.Command, args []string) error {
	loaded := loadConfigOrExit(args)

	active, err := loaded.Graph.ActiveSet(args)
	if err != nil {
		exitConfigError(err)
	}

	order, err := loaded.Graph.TopoOrder(active)
	if err != nil {
		exitConfigError(err)
	}

	names := make([]string, len(order))
	for i, idx := range order {
		names[i] = loaded.Graph.Target(idx).Name
	}

	if graphJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"roots":       args,
			"build_order": names,
		})
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
