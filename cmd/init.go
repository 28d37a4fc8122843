package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/runloop/internal/config"
)

const starterConfig = `# runloop.yml — declare your build targets here.
#
# lib:
#   input_paths: [src/lib]
#   build: ["go build ./lib/..."]
#
# api:
#   dependencies: [lib]
#   input_paths: [src/api]
#   build: ["go build -o bin/api ./cmd/api"]
#   service: "./bin/api"
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter runloop.yml in the current directory",
	RunE:  runInitCommand,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInitCommand(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(config.FileName); err == nil {
		return fmt.Errorf("%s already exists", config.FileName)
	}
	if err := os.WriteFile(config.FileName, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", config.FileName, err)
	}
	fmt.Println("wrote", config.FileName)
	return nil
}
