package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/evaluation"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure Recall@k and MAP@k against a benchmark",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("benchmark", "b", "", "benchmark YAML file (default is the built-in benchmark)")
	evaluateCmd.Flags().IntP("k", "k", evaluation.DefaultK, "cut-off for Recall@k and AP@k")
}

func evaluate(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	snap, err := loadCatalog(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}

	path, _ := cmd.Flags().GetString("benchmark")
	k, _ := cmd.Flags().GetInt("k")

	var cases []evaluation.Case
	if path == "" {
		cases, err = evaluation.DefaultBenchmark()
	} else {
		cases, err = evaluation.LoadBenchmark(path)
	}
	if err != nil {
		logger.Fatal("loading benchmark", zap.Error(err))
	}

	report, err := evaluation.Evaluate(ctx, newEngine(config), snap.Records(), cases, k)
	if err != nil {
		logger.Fatal("evaluating", zap.Error(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "QUERY\tRECALL@%d\tAP@%d\tPREDICTED\n", report.K, report.K)
	for _, c := range report.Cases {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%s\n", c.Query, c.Recall, c.AP, strings.Join(c.Predicted, "; "))
	}
	if err := w.Flush(); err != nil {
		logger.Fatal("printing", zap.Error(err))
	}

	logger.Info("evaluation finished",
		zap.Int("cases", len(report.Cases)),
		zap.Int("k", report.K),
		zap.Float64("mean_recall", report.MeanRecall),
		zap.Float64("map", report.MAP),
	)
}
