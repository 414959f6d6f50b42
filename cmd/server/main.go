package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arhyth/bankxatm"
)

func main() {
	cfp := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := bankxatm.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("error parsing log level")
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.Server.TokenSecret == "" {
		logger.Fatal().Msg("server.token_secret (ATM_SERVER_TOKEN_SECRET) is required")
	}

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		logger.Fatal().Err(err).Int64("node", cfg.NodeID).Msg("error creating ID node")
	}
	ledger := bankxatm.NewLedger(node, cfg.Ledger.OpeningBalance)
	if err = bankxatm.SeedLedger(ledger, cfg.Ledger.Seed); err != nil {
		logger.Fatal().Err(err).Msg("error seeding ledger")
	}

	svc := bankxatm.Chain(
		bankxatm.NewService(ledger, &logger),
		bankxatm.NewValidationMiddleware(),
		bankxatm.NewCircuitBreakMiddleware(bankxatm.NewServiceBreaker(cfg.Breaker, &logger)),
		bankxatm.NewLimitMiddleware(bankxatm.NewServiceLimits(cfg.Limits.Concurrency, cfg.Limits.Timeout)),
	)
	tokens := bankxatm.NewTokenIssuer([]byte(cfg.Server.TokenSecret))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           bankxatm.NewHTTPHandler(svc, tokens, &logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err = g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
