package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/config"
	"github.com/mcdev12/stagetimer/go/internal/discovery"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg, clockwork.NewRealClock())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	server := setupServer(cfg, services)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		services.Hub.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := services.Relay.Run(ctx); err != nil {
			log.Error().Err(err).Msg("timer relay failed")
		}
	}()

	if cfg.Discovery.Enabled {
		port, _ := strconv.Atoi(cfg.Server.Port)
		err := discovery.Advertise(ctx, discovery.Config{
			Instance: cfg.Discovery.Instance,
			Service:  cfg.Discovery.Service,
			Port:     port,
		})
		if err != nil {
			log.Warn().Err(err).Msg("mDNS advertisement disabled")
		}
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("store", cfg.Server.Store).
			Bool("nats", cfg.NATS.Enabled).
			Msg("stage timer server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	wg.Wait()
	log.Info().Msg("server stopped")
}
