// Package cli is the gameworld command line: the dev server plus a handful of
// commands for inspecting and editing the local ledger.
package cli

import (
	"github.com/spf13/cobra"

	"gameworld/internal/config"
)

type runFunc func(cmd *cobra.Command, args []string, a *app) error

// withApp loads configuration, wires the app for one command and tears it
// down afterwards.
func withApp(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args, a)
	}
}

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "gameworld",
		Short:         "Points, achievements and a dev server for the game pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newPointsCmd(),
		newStatsCmd(),
		newPlayCmd(),
		newExportCmd(),
		newImportCmd(),
		newResetCmd(),
		newViewsCmd(),
	)
	return root
}
