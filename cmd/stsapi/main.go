package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/stsctl/internal/api"
	"github.com/danmuck/stsctl/internal/auth"
	"github.com/danmuck/stsctl/internal/config"
	"github.com/danmuck/stsctl/internal/logging"
	"github.com/danmuck/stsctl/internal/observability"
	"github.com/danmuck/stsctl/internal/protocol"
	"github.com/danmuck/stsctl/internal/store"
	"github.com/rs/zerolog/log"
)

func main() {
	path := flag.String("config", "", "TOML config file (defaults when empty)")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	if err := run(*path, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "stsapi: %v\n", err)
		os.Exit(1)
	}
}

func run(path, addr string) error {
	cfg := config.Defaults()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.API.Addr = addr
	}
	logging.Apply(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := api.Options{
		ID:             "stsapi",
		CorsOrigins:    cfg.API.CorsOrigins,
		TrustedProxies: cfg.API.TrustedProxies,
		StreamInterval: cfg.API.StreamInterval,
	}
	if cfg.API.Token != "" {
		opts.Auth = auth.StaticToken{Token: cfg.API.Token}
	}
	if cfg.Store.Enabled() {
		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Spectra = st
		log.Info().Str("driver", cfg.Store.Driver).Msg("spectra store enabled")
	}

	client := protocol.NewClient(cfg.Daemon, protocol.WithObserver(observability.RecordExchange))
	log.Info().
		Str("daemon", cfg.Daemon.Address()).
		Str("addr", cfg.API.Addr).
		Msg("starting stsapi")
	return api.New(cfg.API.Addr, client, opts).Serve(ctx)
}
