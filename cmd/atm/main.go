package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"

	"github.com/arhyth/bankxatm"
	"github.com/arhyth/bankxatm/console"
)

func main() {
	cfp := flag.String("config", "", "path to configuration file")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := bankxatm.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		logger.Fatal().Err(err).Int64("node", cfg.NodeID).Msg("error creating ID node")
	}
	ledger := bankxatm.NewLedger(node, cfg.Ledger.OpeningBalance)
	if err = bankxatm.SeedLedger(ledger, cfg.Ledger.Seed); err != nil {
		logger.Fatal().Err(err).Msg("error seeding ledger")
	}
	prefs, err := bankxatm.OpenPreferences(cfg.Console.PreferencesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Console.PreferencesPath).Msg("error opening preferences")
	}

	svc := bankxatm.Chain(
		bankxatm.NewService(ledger, &logger),
		bankxatm.NewValidationMiddleware(),
	)
	atm := console.New(svc, prefs, os.Stdin, os.Stdout, console.Options{
		Currency: cfg.Console.Currency,
		Counter: console.Counter{
			Step:     cfg.Console.AnimationStep,
			Interval: cfg.Console.AnimationInterval,
		},
		Log: &logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err = atm.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("console stopped")
	}
}
