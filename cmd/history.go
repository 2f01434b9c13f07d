package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/history"
	"github.com/spigell/assessment-recommender/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently served recommendation requests",
	Run: func(cmd *cobra.Command, _ []string) {
		showHistory(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to show")
}

func showHistory(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	path := app + ".db"
	if config.History != nil && config.History.Path != "" {
		path = config.History.Path
	}

	store, err := history.Open(path)
	if err != nil {
		logger.Fatal("opening history", zap.Error(err), zap.String("path", path))
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := store.Recent(ctx, limit)
	if err != nil {
		logger.Fatal("reading history", zap.Error(err))
	}
	total, err := store.Count(ctx)
	if err != nil {
		logger.Fatal("counting history", zap.Error(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTOP K\tSCORE\tQUERY\tRESULTS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%s\t%s\n",
			humanize.Time(e.Created), e.TopK, e.TopScore, utils.Preview(e.Query, 60), strings.Join(e.Results, "; "))
	}
	if err := w.Flush(); err != nil {
		logger.Fatal("printing", zap.Error(err))
	}

	fmt.Printf("\nshowing %d of %s requests\n", len(entries), humanize.Comma(int64(total)))
}
