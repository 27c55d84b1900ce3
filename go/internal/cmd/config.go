package main

import (
	"fmt"

	"github.com/mcdev12/stagetimer/go/internal/config"
	"github.com/mcdev12/stagetimer/go/internal/propagator"
)

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func listenerConfig(cfg *config.Config, dsn string) propagator.ListenerConfig {
	lc := propagator.DefaultListenerConfig()
	lc.DatabaseURL = dsn
	lc.FallbackInterval = cfg.Listener.FallbackInterval
	lc.PingInterval = cfg.Listener.PingInterval
	return lc
}

func jetStreamConfig(cfg *config.Config) propagator.JetStreamConfig {
	jc := propagator.DefaultJetStreamConfig()
	jc.URL = cfg.NATS.URL
	jc.StreamName = cfg.NATS.Stream
	jc.Subject = cfg.NATS.Subject
	return jc
}
