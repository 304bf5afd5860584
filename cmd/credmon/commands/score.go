package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <ticker>",
	Short: "Run one scoring cycle for a ticker",
	Long: `Fetches fresh data, recomputes the credit score and prints the
cycle result. The entity is registered on first use.

Example:
  credmon score AAPL
  credmon score AAPL --name "Apple Inc."`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

var scoreEntityName string

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVar(&scoreEntityName, "name", "", "company display name")
}

func runScore(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ticker := strings.ToUpper(strings.TrimSpace(args[0]))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := rt.runner.RunCycle(ctx, ticker, scoreEntityName)
	if err != nil {
		return fmt.Errorf("run cycle: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
