package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/server"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	logger.Info("starting the assessment-recommender", zap.String("version", version))

	snap, err := loadCatalog(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}
	store := catalog.NewStore(snap)

	svc, cleanup, err := newService(ctx, config, store, logger)
	if err != nil {
		logger.Fatal("building service", zap.Error(err))
	}
	defer cleanup()

	if config.Catalog != nil && config.Catalog.Refresh != "" {
		refresher, err := catalog.NewRefresher(store, config.Catalog.Refresh, func(ctx context.Context) (*catalog.Snapshot, error) {
			return loadCatalog(ctx, config, logger)
		}, logger)
		if err != nil {
			logger.Fatal("scheduling catalog refresh", zap.Error(err))
		}
		refresher.Start()
		defer refresher.Stop()
		logger.Info("catalog refresh scheduled", zap.String("schedule", config.Catalog.Refresh), zap.Time("next", refresher.Next()))
	}

	srvCfg := server.DefaultConfig()
	if config.Server != nil {
		srvCfg = *config.Server
	}
	srvCfg.Version = version
	srv := server.New(srvCfg, svc, logger)

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	select {
	case err := <-errs:
		if err != nil {
			logger.Fatal("serving", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	<-errs
}
