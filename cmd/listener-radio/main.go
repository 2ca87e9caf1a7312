// Command listener-radio is the entry point for the gossip listener and
// indexer: it loads configuration, wires every subsystem via
// internal/operator, and runs until a SIGINT/SIGTERM shuts it down cleanly.
//
// Usage:
//
//	listener-radio [flags]
//
// See internal/config.BindFlags for the full flag/environment set.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphindexer/gossip-listener/internal/config"
	"github.com/graphindexer/gossip-listener/internal/operator"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. This pattern
// makes it easy to test the binary without calling os.Exit directly.
func run(args []string) int {
	var showVersion bool

	root := &cobra.Command{
		Use:           "listener-radio",
		Short:         "Passive listener and indexer for a gossip-based subgraph radio network",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Printf("listener-radio %s (commit %s)\n", version, commit)
				return nil
			}

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			op, err := operator.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build operator: %w", err)
			}
			return op.Run(cmd.Context())
		},
	}
	config.BindFlags(root.Flags())
	root.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	root.SetArgs(args)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
