package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gameworld/internal/db"
)

func newViewsCmd() *cobra.Command {
	var record bool
	cmd := &cobra.Command{
		Use:   "views [game]",
		Short: "Show view counters, for every game or just one",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().BoolVar(&record, "record", false, "count a view of the game first")
	cmd.RunE = withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		var rows []db.GameViews
		if len(args) == 1 {
			if record {
				if _, err := a.facade.IncrementGameView(ctx, args[0]); err != nil {
					return fmt.Errorf("recording view: %w", err)
				}
			}
			v, err := a.facade.GameViews(ctx, args[0])
			if err != nil {
				return err
			}
			rows = []db.GameViews{v}
		} else {
			if record {
				return fmt.Errorf("--record needs a game")
			}
			all, err := a.facade.AllGameViews(ctx)
			if err != nil {
				return err
			}
			rows = all
		}

		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No views recorded")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GAME\tTOTAL\tSIGNED IN\tGUEST")
		for _, v := range rows {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", v.GameURL, v.TotalViews, v.LoggedViews, v.AnonymousViews)
		}
		return w.Flush()
	})
	return cmd
}
