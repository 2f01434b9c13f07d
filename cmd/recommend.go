package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/assessment"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/service"
)

const (
	PromptNaturalLanguage = "Natural language query"
	PromptJobDescription  = "Job description text"
	PromptJobURL          = "Job posting URL"
	PromptShowJSON        = "Show as JSON"
	PromptDumpToFile      = "Dump results to file"
	PromptNewSearch       = "New search"
	PromptExit            = "Exit"
)

var errExit = errors.New("exit requested")

var inputPrompt = promptui.Select{
	Label: "Select input method",
	Items: []string{PromptNaturalLanguage, PromptJobDescription, PromptJobURL},
}

var actionPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowJSON, PromptDumpToFile, PromptNewSearch, PromptExit},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend [query]",
	Short: "Recommend assessments for a query, job description or job posting URL",
	Run: func(cmd *cobra.Command, args []string) {
		runRecommend(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	addRecommendFlags(recommendCmd)
}

func addRecommendFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("url", "u", "", "job posting URL; its text replaces the query")
	flags.IntP("top-k", "k", 0, "number of recommendations (default engine.top-k)")
	flags.StringSlice("test-type", nil, "keep only these test types")
	flags.String("remote", "", "keep only assessments with this remote testing value (yes/no)")
	flags.String("adaptive", "", "keep only assessments with this adaptive support value (yes/no)")
	flags.Float64("min-score", 0, "drop results scoring below this value")
	flags.Bool("explain", false, "ask the AI provider for a short reason per result")
	flags.BoolP("interactive", "i", false, "choose the input method interactively")
	flags.StringP("output", "o", "table", "output format: table or json")
}

func runRecommend(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger, config := setup()

	snap, err := loadCatalog(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}

	svc, cleanup, err := newService(ctx, config, catalog.NewStore(snap), logger)
	if err != nil {
		logger.Fatal("building service", zap.Error(err))
	}
	defer cleanup()

	base, err := queryFromFlags(cmd)
	if err != nil {
		logger.Fatal("parsing flags", zap.Error(err))
	}
	base.Text = strings.Join(args, " ")
	for _, status := range filtering.New(nil, base.Filters...).Describe() {
		logger.Debug("extra filter", zap.String("name", status.Name), zap.Any("details", status.Details))
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	output, _ := cmd.Flags().GetString("output")
	asJSON := strings.EqualFold(output, "json")

	if !interactive {
		resp, err := recommendOnce(ctx, svc, base)
		if err != nil {
			logger.Fatal("recommending", zap.Error(err))
		}
		if err := printResponse(resp, asJSON); err != nil {
			logger.Fatal("printing", zap.Error(err))
		}
		return
	}

	for {
		q, err := promptQuery(base)
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		resp, err := recommendOnce(ctx, svc, q)
		if err != nil {
			logger.Error("recommending", zap.Error(err))
			continue
		}
		if err := printResponse(resp, false); err != nil {
			logger.Fatal("printing", zap.Error(err))
		}

		if err := handleAction(logger, resp); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func recommendOnce(ctx context.Context, svc *service.Service, q service.Query) (*service.Response, error) {
	q.ID = uuid.NewString()
	return svc.Recommend(ctx, q)
}

func queryFromFlags(cmd *cobra.Command) (service.Query, error) {
	flags := cmd.Flags()
	q := service.Query{}

	var err error
	if q.URL, err = flags.GetString("url"); err != nil {
		return q, err
	}
	if q.Explain, err = flags.GetBool("explain"); err != nil {
		return q, err
	}
	if flags.Changed("top-k") {
		if q.TopK, err = flags.GetInt("top-k"); err != nil {
			return q, err
		}
		if q.TopK < 1 {
			return q, fmt.Errorf("--top-k must be a positive integer, got %d", q.TopK)
		}
	}

	types, err := flags.GetStringSlice("test-type")
	if err != nil {
		return q, err
	}
	if len(types) > 0 {
		q.Filters = append(q.Filters, filtering.NewTestType(types...))
	}

	for _, f := range []struct {
		flag  string
		build func(assessment.YesNo) filtering.Filter
	}{
		{flag: "remote", build: filtering.NewRemote},
		{flag: "adaptive", build: filtering.NewAdaptive},
	} {
		raw, err := flags.GetString(f.flag)
		if err != nil {
			return q, err
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		want, ok := assessment.ParseYesNo(raw)
		if !ok {
			return q, fmt.Errorf("--%s must be yes or no, got %q", f.flag, raw)
		}
		q.Filters = append(q.Filters, f.build(want))
	}

	if flags.Changed("min-score") {
		minScore, err := flags.GetFloat64("min-score")
		if err != nil {
			return q, err
		}
		q.Filters = append(q.Filters, filtering.NewMinScore(minScore))
	}

	return q, nil
}

// promptQuery asks for the input method and the text, as the web form did.
func promptQuery(base service.Query) (service.Query, error) {
	_, method, err := inputPrompt.Run()
	if err != nil {
		return base, err
	}

	label := "Describe the role"
	switch method {
	case PromptJobDescription:
		label = "Paste the job description"
	case PromptJobURL:
		label = "Job posting URL"
	}

	input := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("input is required")
			}
			return nil
		},
	}
	value, err := input.Run()
	if err != nil {
		return base, err
	}

	q := base
	q.Text, q.URL = value, ""
	if method == PromptJobURL {
		q.Text, q.URL = "", value
	}
	return q, nil
}

func handleAction(logger *zap.Logger, resp *service.Response) error {
	for {
		_, action, err := actionPrompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptShowJSON:
			if err := printResponse(resp, true); err != nil {
				return err
			}
		case PromptDumpToFile:
			filename, err := resp.Ranking.DumpToTmpFile()
			if err != nil {
				return fmt.Errorf("dump results to file: %w", err)
			}
			logger.Info("dumping result to file", zap.String("filename", filename))
		case PromptNewSearch:
			return nil
		case PromptExit:
			logger.Info("exiting", zap.String("reason", "got exit from prompt"))
			return errExit
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

func printResponse(resp *service.Response, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Recommendations) == 0 {
		fmt.Println("No assessments found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSCORE\tNAME\tTYPE\tDURATION\tREMOTE\tADAPTIVE\tURL")
	for i, r := range resp.Recommendations {
		fmt.Fprintf(w, "%d\t%.3f\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, r.Score, r.Name, r.TestType, r.Duration, r.RemoteTesting, r.AdaptiveSupport, r.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, r := range resp.Recommendations {
		if r.Reason != "" {
			fmt.Printf("- %s: %s\n", r.Name, r.Reason)
		}
	}
	return nil
}
