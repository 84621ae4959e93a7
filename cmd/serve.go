package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prepscout/internal/api"
	"github.com/spigell/prepscout/internal/logger"
	"github.com/spigell/prepscout/internal/retention"
	"github.com/spigell/prepscout/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and the gRPC health service",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", server.DefaultAddress, "address to listen on")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the prepscout server", zap.String("version", version))

	svc, err := buildServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}
	defer svc.Close()

	purge := retention.New(svc.store, logger, config.Retention)
	if err := purge.Start(ctx); err != nil {
		logger.Fatal("starting posting retention", zap.Error(err))
	}
	defer purge.Stop()

	opts := config.Server.API
	opts.Version = version
	router := api.NewRouter(api.Deps{
		Searcher: svc.pipeline,
		Prep:     svc.prep,
		Resumes:  svc.resumes,
		Store:    svc.store,
	}, logger, opts)

	address := config.Server.Address
	if address == "" {
		address = server.DefaultAddress
	}

	srv := server.New(router, logger)
	if err := srv.Start(address); err != nil {
		logger.Fatal("starting server", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("shutting down", zap.String("reason", "signal received"))

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("stopping server", zap.Error(err))
	}
}
