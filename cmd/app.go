package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/ai/gemini"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/history"
	"github.com/spigell/assessment-recommender/internal/jobfetch"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/recommend"
	"github.com/spigell/assessment-recommender/internal/secrets"
	"github.com/spigell/assessment-recommender/internal/service"
	"github.com/spigell/assessment-recommender/internal/tfidf"
)

// setup builds the logger and config shared by every command.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func redacted(config *Config) Config {
	cp := *config
	if cp.AI != nil && cp.AI.Gemini != nil && cp.AI.Gemini.APIKey != "" {
		aiCfg, gem := *cp.AI, *cp.AI.Gemini
		gem.APIKey = "***"
		aiCfg.Gemini = &gem
		cp.AI = &aiCfg
	}
	return cp
}

func catalogSources(config *Config) (catalog.Source, catalog.Source) {
	var primary, fallback catalog.Source
	if c := config.Catalog; c != nil {
		if file := strings.TrimSpace(c.File); file != "" {
			primary = &catalog.FileSource{Path: file, SourceName: c.SourceName}
		}
		if c.Fallback {
			fallback = catalog.StaticFallbackSource{}
		}
	}
	if primary == nil && fallback == nil {
		fallback = catalog.StaticFallbackSource{}
	}
	return primary, fallback
}

func loadCatalog(ctx context.Context, config *Config, logger *zap.Logger) (*catalog.Snapshot, error) {
	primary, fallback := catalogSources(config)
	return catalog.Resolve(ctx, logger, primary, fallback)
}

func newEngine(config *Config) *recommend.Engine {
	opts := recommend.DefaultOptions()
	if e := config.Engine; e != nil {
		opts.DefaultTopK = e.TopK
		opts.StrictDuration = e.StrictDuration
		if e.MaxFeatures != 0 {
			opts.Vectorizer.MaxFeatures = e.MaxFeatures
		}
		if e.NgramMax > 0 {
			opts.Vectorizer.NgramMax = e.NgramMax
		}
	}
	if opts.Vectorizer.NgramMax <= 0 {
		opts.Vectorizer.NgramMax = tfidf.DefaultNgramMax
	}
	return recommend.New(opts)
}

func newFetcher(config *Config) *jobfetch.Fetcher {
	opts := jobfetch.Options{}
	if f := config.Fetch; f != nil {
		opts = jobfetch.Options{
			Timeout:      f.Timeout,
			UserAgent:    f.UserAgent,
			MaxLength:    f.MaxLength,
			AllowPrivate: f.AllowPrivate,
		}
	}
	return jobfetch.New(opts)
}

func newExplainer(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Explainer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.ProviderName {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:     apiKey,
		Model:      cfg.Gemini.Model,
		MaxRetries: cfg.Gemini.MaxRetries,
	}, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewExplainer(generator, logger, cfg.Gemini.MaxLogLength), nil
}

// newService wires the recommendation service around store. The returned
// cleanup closes the history database when one was opened.
func newService(ctx context.Context, config *Config, store *catalog.Store, logger *zap.Logger) (*service.Service, func(), error) {
	deps := service.Deps{
		Store:   store,
		Engine:  newEngine(config),
		Fetcher: newFetcher(config),
		Logger:  logger,
	}
	cleanup := func() {}

	if config.AI != nil && config.AI.Enabled {
		explainer, err := newExplainer(ctx, config.AI, logger)
		if err != nil {
			logger.Warn("skipping AI explanations", zap.Error(err))
		} else {
			deps.Explainer = explainer
		}
		if config.AI.Gemini != nil {
			deps.MaxLogLength = config.AI.Gemini.MaxLogLength
		}
	}

	if config.History != nil && config.History.Enabled {
		hist, err := history.Open(config.History.Path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open history: %w", err)
		}
		deps.History = hist
		cleanup = func() {
			if err := hist.Close(); err != nil {
				logger.Warn("closing history database", zap.Error(err))
			}
		}
	}

	return service.New(deps), cleanup, nil
}
