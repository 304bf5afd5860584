package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/internal/scoring"
)

var statusCmd = &cobra.Command{
	Use:   "status [ticker]",
	Short: "Show the latest scores",
	Long: `Without arguments, prints the leaderboard of latest composites.
With a ticker, prints its latest score, trend and top attributions.

Example:
  credmon status
  credmon status AAPL`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(args) == 0 {
		return printLeaderboard(ctx, rt)
	}
	return printEntityStatus(ctx, rt, strings.ToUpper(strings.TrimSpace(args[0])))
}

func printLeaderboard(ctx context.Context, rt *runtime) error {
	snaps, err := rt.snapshots.LatestAcrossActive(ctx)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No scored entities yet. Run: credmon score <ticker>")
		return nil
	}

	fmt.Printf("%-10s %10s %10s %10s %10s  %s\n",
		"TICKER", "COMPOSITE", "FINANCIAL", "MARKET", "NEWS", "AS OF")
	for _, s := range snaps {
		fmt.Printf("%-10s %10.2f %10.2f %10.2f %10.2f  %s\n",
			s.Ticker, s.Composite, s.Financial, s.Market, s.News,
			s.CycleAt.Format(time.RFC3339))
	}
	return nil
}

func printEntityStatus(ctx context.Context, rt *runtime, ticker string) error {
	snap, attr, err := rt.snapshots.Latest(ctx, ticker)
	if errors.Is(err, contracts.ErrNotFound) {
		fmt.Printf("No score for %s yet. Run: credmon score %s\n", ticker, ticker)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest score: %w", err)
	}

	fmt.Printf("%s  composite %.2f  (financial %.2f / market %.2f / news %.2f)\n",
		snap.Ticker, snap.Composite, snap.Financial, snap.Market, snap.News)
	fmt.Printf("as of %s\n", snap.CycleAt.Format(time.RFC3339))
	if len(snap.StaleCategories) > 0 {
		cats := make([]string, 0, len(snap.StaleCategories))
		for _, c := range snap.StaleCategories {
			cats = append(cats, string(c))
		}
		fmt.Printf("stale sources: %s\n", strings.Join(cats, ", "))
	}

	history, err := rt.snapshots.History(ctx, ticker, time.Now().UTC().Add(-30*24*time.Hour), 0)
	if err == nil && len(history) > 0 {
		trend := scoring.Summarize(history)
		fmt.Printf("trend: %s (%+.2f over %d snapshots, volatility %.2f)\n",
			trend.Direction, trend.Change, trend.Snapshots, trend.Volatility)
	}

	if attr != nil && len(attr.Entries) > 0 {
		if attr.Initial {
			fmt.Println("\nscore composition:")
		} else {
			fmt.Printf("\nlast change %+.2f, driven by:\n", attr.Delta)
		}
		for _, e := range attr.Top(5) {
			line := fmt.Sprintf("  %-28s %+8.2f", e.Feature, e.Value)
			if e.Stale {
				line += "  (stale)"
			}
			fmt.Println(line)
			for _, h := range e.Headlines {
				fmt.Printf("    %q\n", h)
			}
		}
	}

	return nil
}
