package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/jobfetch"
	"github.com/spigell/assessment-recommender/internal/recommend"
	"github.com/spigell/assessment-recommender/internal/server"
	"github.com/spigell/assessment-recommender/internal/tfidf"
)

const (
	app = "assessment-recommender"
)

type Config struct {
	Catalog *CatalogConfig `mapstructure:"catalog"`
	Engine  *EngineConfig  `mapstructure:"engine"`
	Server  *server.Config `mapstructure:"server"`
	Fetch   *FetchConfig   `mapstructure:"fetch"`
	AI      *AIConfig      `mapstructure:"ai"`
	History *HistoryConfig `mapstructure:"history"`
}

type CatalogConfig struct {
	File       string `mapstructure:"file"`
	SourceName string `mapstructure:"source-name"`
	// Fallback serves the built-in catalog when File cannot be loaded.
	Fallback bool `mapstructure:"fallback"`
	// Refresh is a cron expression; empty disables periodic reloads.
	Refresh string `mapstructure:"refresh"`
}

type EngineConfig struct {
	TopK           int  `mapstructure:"top-k"`
	MaxFeatures    int  `mapstructure:"max-features"`
	NgramMax       int  `mapstructure:"ngram-max"`
	StrictDuration bool `mapstructure:"strict-duration"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
	MaxLength int           `mapstructure:"max-length"`
	// AllowPrivate lets URL fetches reach loopback and private networks.
	AllowPrivate bool `mapstructure:"allow-private"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "assessment-recommender suggests catalog assessments for a hiring need or job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("catalog.file", "AR_CATALOG_FILE"); err != nil {
		log.Fatalf("binding AR_CATALOG_FILE environment variable: %v", err)
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is assessment-recommender.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("catalog", "", "catalog JSON file (full records or scraped rows)")
	rootCmd.PersistentFlags().Bool("strict-duration", false, "return nothing when no assessment fits the requested duration")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("catalog.file", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("engine.strict-duration", rootCmd.PersistentFlags().Lookup("strict-duration"))
}

func setDefaults() {
	viper.SetDefault("catalog.source-name", catalog.DefaultSourceName)
	viper.SetDefault("catalog.fallback", true)

	viper.SetDefault("engine.top-k", recommend.DefaultTopK)
	viper.SetDefault("engine.max-features", tfidf.DefaultMaxFeatures)
	viper.SetDefault("engine.ngram-max", tfidf.DefaultNgramMax)

	srv := server.DefaultConfig()
	viper.SetDefault("server.addr", srv.Addr)
	viper.SetDefault("server.read-timeout", srv.ReadTimeout)
	viper.SetDefault("server.write-timeout", srv.WriteTimeout)
	viper.SetDefault("server.idle-timeout", srv.IdleTimeout)
	viper.SetDefault("server.rate-limit", srv.RateLimit)
	viper.SetDefault("server.burst", srv.Burst)
	viper.SetDefault("server.cors-origins", srv.CORSOrigins)
	viper.SetDefault("server.max-top-k", srv.MaxTopK)

	viper.SetDefault("fetch.timeout", jobfetch.DefaultTimeout)
	viper.SetDefault("fetch.user-agent", jobfetch.DefaultUserAgent)
	viper.SetDefault("fetch.max-length", jobfetch.DefaultMaxLength)
	viper.SetDefault("fetch.allow-private", false)

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)

	viper.SetDefault("history.path", app+".db")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config a missing file means defaults.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
