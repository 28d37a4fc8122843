package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/runloop/internal/config"
)

// loadConfigOrExit loads runloop.yml (or exits with the configuration
// error code) and validates that every requested root target exists.
func loadConfigOrExit(roots []string) *config.Loaded {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		exitConfigError(err)
		return nil // unreachable, exitConfigError calls os.Exit
	}

	for _, name := range roots {
		if _, ok := loaded.Graph.Index(name); !ok {
			exitConfigError(fmt.Errorf("unknown target %q", name))
		}
	}
	return loaded
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so a
// running build or watch loop can shut down supervised services
// before the process exits.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
