package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"hrflow/internal/app/server"
	"hrflow/internal/platform/config"
	"hrflow/internal/platform/logger"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	if err := app.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("hrflow server stopped")
}
