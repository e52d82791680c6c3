// main.go
//
// Entry point for the matchgrid server: loads configuration, opens the
// database, wires the live match registry, and serves HTTP.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/matchgrid/internal/config"
	"github.com/robalobadob/matchgrid/internal/db"
	"github.com/robalobadob/matchgrid/internal/httpserver"
	"github.com/robalobadob/matchgrid/internal/live"
	"github.com/robalobadob/matchgrid/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	conn, err := db.OpenMigrated(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubs := live.NewRegistry()
	opts := []httpserver.Option{httpserver.WithHubs(hubs)}
	if cfg.NATSURL != "" {
		nc, err := live.Connect(cfg.NATSURL, "matchgrid")
		if err != nil {
			log.Fatal().Err(err).Msg("connect broker")
		}
		defer nc.Drain()
		opts = append(opts, httpserver.WithBus(nc))
		log.Info().Str("url", cfg.NATSURL).Msg("mirroring events to nats")
	}

	mem := store.NewMemoryStore()
	go store.RunSweeper(ctx, mem, time.Minute, cfg.SessionTTL, func(ids []string) {
		for _, id := range ids {
			hubs.Close(id)
		}
		log.Info().Int("count", len(ids)).Msg("swept idle matches")
	})

	srv := httpserver.New(cfg, mem, conn, opts...)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting matchgrid server")
		if err := srv.Start(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
}
