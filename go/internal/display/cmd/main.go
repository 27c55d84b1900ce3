package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/clocksync"
	"github.com/mcdev12/stagetimer/go/internal/config"
	"github.com/mcdev12/stagetimer/go/internal/countdown"
	"github.com/mcdev12/stagetimer/go/internal/discovery"
	"github.com/mcdev12/stagetimer/go/internal/display"
	"github.com/mcdev12/stagetimer/go/internal/propagator"
	"github.com/mcdev12/stagetimer/go/internal/timer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	server := flag.String("server", "", "server base URL, skips mDNS discovery")
	headless := flag.Bool("headless", false, "log the countdown instead of drawing it")
	logFile := flag.String("log-file", "stagetimer-display.log", "where logs go while the TUI is shown")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging; the TUI owns the terminal so logs go to a file there
	zerolog.SetGlobalLevel(cfg.Level())
	if *headless {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: f, NoColor: true})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseURL, err := resolveServer(ctx, cfg, *server)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to find a stage timer server")
	}

	clock := clockwork.NewRealClock()
	tracker := clocksync.NewOffsetTracker(
		clocksync.NewEstimator(newProber(cfg, baseURL), clock, cfg.Display.ProbeTimeout),
		clock,
	)

	subscriber, closeFeed, err := newSubscriber(cfg, baseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up timer feed")
	}
	defer closeFeed()

	opts := countdown.Options{
		Tick:          cfg.Display.Tick,
		Resync:        cfg.Display.Resync,
		OffsetRefresh: cfg.Display.OffsetRefresh,
		Clock:         clock,
	}
	fetcher := timer.NewClient(http.DefaultClient, baseURL)

	log.Info().
		Str("server", baseURL).
		Str("feed", cfg.Display.Feed).
		Dur("tick", cfg.Display.Tick).
		Msg("starting display")

	if *headless {
		viewer, err := countdown.NewViewer(fetcher, subscriber, tracker, &display.LogSink{}, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create viewer")
		}
		if err := viewer.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("viewer failed")
		}
		return
	}

	program := tea.NewProgram(display.NewModel(baseURL), tea.WithAltScreen(), tea.WithContext(ctx))
	viewer, err := countdown.NewViewer(fetcher, subscriber, tracker, display.NewTeaSink(program, tracker), opts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create viewer")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := viewer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("viewer failed")
		}
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Error().Err(err).Msg("display exited with error")
	}
	viewer.Close()
	<-done
}

func resolveServer(ctx context.Context, cfg *config.Config, flagURL string) (string, error) {
	if flagURL != "" {
		return strings.TrimRight(flagURL, "/"), nil
	}
	if !cfg.Discovery.Enabled {
		return strings.TrimRight(cfg.Display.ServerURL, "/"), nil
	}

	server, err := discovery.Browse(ctx, cfg.Discovery.Service, "", cfg.Discovery.Timeout)
	if err != nil {
		log.Warn().Err(err).Str("fallback", cfg.Display.ServerURL).Msg("mDNS discovery failed")
		return strings.TrimRight(cfg.Display.ServerURL, "/"), nil
	}
	return server.BaseURL(), nil
}

func newProber(cfg *config.Config, baseURL string) clocksync.Prober {
	if cfg.Display.Prober == config.ProberHTTP {
		return clocksync.NewHTTPProber(http.DefaultClient, baseURL+"/api/time")
	}
	return clocksync.NewConnectProber(http.DefaultClient, baseURL)
}

func newSubscriber(cfg *config.Config, baseURL string) (countdown.Subscriber, func(), error) {
	switch cfg.Display.Feed {
	case config.FeedNATS:
		jsCfg := propagator.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.Stream
		jsCfg.Subject = cfg.NATS.Subject

		sub, err := propagator.NewNATSSubscriber(jsCfg)
		if err != nil {
			return nil, nil, err
		}
		return sub, func() { sub.Close() }, nil
	case config.FeedPoll:
		return nil, func() {}, nil
	default:
		wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/timer"
		return propagator.NewWSSubscriber(wsURL), func() {}, nil
	}
}
