package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gameworld/internal/achievements"
	"gameworld/internal/events"
	"gameworld/internal/ledger"
)

func newPointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "points",
		Short: "Show the local point total and level",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			total := a.ledger.TotalPoints()
			fmt.Fprintf(cmd.OutOrStdout(), "Points: %d\nLevel:  %d (%d to next level)\n",
				total, ledger.Level(total), ledger.PointsToNextLevel(total))
			return nil
		}),
	}
}

func newStatsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show play statistics and unlocked achievements",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	cmd.RunE = withApp(func(cmd *cobra.Command, args []string, a *app) error {
		stats := a.ledger.Stats()
		if format == "text" {
			return printStats(cmd.OutOrStdout(), stats)
		}
		return encode(cmd.OutOrStdout(), format, stats)
	})
	return cmd
}

func printStats(out io.Writer, s ledger.Stats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Games played:\t%d\n", s.TotalGamesPlayed)
	fmt.Fprintf(w, "Play time:\t%s\n", time.Duration(s.TotalPlayTime)*time.Second)
	if s.FavoriteGame != "" {
		fmt.Fprintf(w, "Favorite game:\t%s\n", s.FavoriteGame)
	}
	fmt.Fprintf(w, "Streak:\t%d\n", s.Streak)
	if s.LastPlayDate != nil {
		fmt.Fprintf(w, "Last played:\t%s\n", s.LastPlayDate.Local().Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(s.Achievements) > 0 {
		fmt.Fprintln(out, "\nAchievements:")
		for _, id := range s.Achievements {
			if d, ok := achievements.Lookup(id); ok {
				fmt.Fprintf(out, "  %s %s - %s\n", d.Icon, d.Title, d.Description)
			} else {
				fmt.Fprintf(out, "  %s\n", id)
			}
		}
	}

	if len(s.GameStats) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GAME\tPLAYS\tPOINTS\tBEST")
		for _, id := range sortedKeys(s.GameStats) {
			g := s.GameStats[id]
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", id, g.PlayCount, g.TotalPoints, g.BestScore)
		}
		return w.Flush()
	}
	return nil
}

func newPlayCmd() *cobra.Command {
	var info ledger.GameInfo
	cmd := &cobra.Command{
		Use:   "play <game> <score>",
		Short: "Record a finished game and credit its points",
		Args:  cobra.ExactArgs(2),
	}
	f := cmd.Flags()
	f.Float64Var(&info.Accuracy, "accuracy", 0, "hit accuracy in percent")
	f.IntVar(&info.Combo, "combo", 0, "final combo")
	f.IntVar(&info.MaxCombo, "max-combo", 0, "longest combo")
	f.Float64Var(&info.PerfectRatio, "perfect-ratio", 0, "share of perfect hits, 0 to 1")
	f.BoolVar(&info.IsNewRecord, "new-record", false, "the score is a personal best")
	f.Float64Var(&info.PlayTime, "time", 0, "play time in seconds")

	cmd.RunE = withApp(func(cmd *cobra.Command, args []string, a *app) error {
		game := args[0]
		score, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid score %q", args[1])
		}
		out := cmd.OutOrStdout()

		defer a.ledger.Subscribe(func(ev events.Event) {
			if u, ok := ev.(events.AchievementUnlocked); ok {
				fmt.Fprintf(out, "%s Unlocked %s (+%d)\n", u.Icon, u.Title, u.Points)
			}
		})()

		points := a.ledger.CalculateGamePoints(score, game, info)
		a.ledger.AddGameScore(score, game, info)
		total := a.ledger.TotalPoints()
		fmt.Fprintf(out, "+%d points for %s, total %d (level %d)\n", points, game, total, ledger.Level(total))
		return nil
	})
	return cmd
}

func newExportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger as JSON or YAML",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "file to write, - for stdout")
	cmd.RunE = withApp(func(cmd *cobra.Command, args []string, a *app) error {
		snap := a.ledger.Export()
		if output == "-" {
			return encode(cmd.OutOrStdout(), format, snap)
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		if err := encode(f, format, snap); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the ledger from a JSON or YAML export",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading import file: %w", err)
			}
			var in ledger.ImportData
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".yaml", ".yml":
				err = yaml.Unmarshal(data, &in)
			default:
				err = json.Unmarshal(data, &in)
			}
			if err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}
			if in.Points == nil && in.Stats == nil {
				return errors.New("nothing to import: expected points or stats")
			}
			a.ledger.Import(in)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s, total %d\n", args[0], a.ledger.TotalPoints())
			return nil
		}),
	}
}

func newResetCmd() *cobra.Command {
	var points, stats, yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the point total, the statistics, or both",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&points, "points", false, "reset only the point total")
	cmd.Flags().BoolVar(&stats, "stats", false, "reset only the statistics")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	cmd.RunE = withApp(func(cmd *cobra.Command, args []string, a *app) error {
		if !yes {
			return errors.New("refusing to reset without --yes")
		}
		if !points && !stats {
			points, stats = true, true
		}
		if points {
			a.ledger.ResetPoints()
			fmt.Fprintln(cmd.OutOrStdout(), "Points reset")
		}
		if stats {
			a.ledger.ResetStats()
			fmt.Fprintln(cmd.OutOrStdout(), "Stats reset")
		}
		return nil
	})
	return cmd
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
