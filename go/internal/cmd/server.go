package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/stagetimer/go/internal/clocksync"
	"github.com/mcdev12/stagetimer/go/internal/config"
	"github.com/mcdev12/stagetimer/go/internal/propagator"
	"github.com/mcdev12/stagetimer/go/internal/timer"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg *config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register services
	registerServices(mux, services)

	// Websocket feed for displays
	services.Hub.RegisterRoutes(mux)

	setupHealthCheck(mux, services.Hub)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	// Register timer service
	timerServicePath, timerServiceHandler := timer.NewTimerServiceHandler(services.Timer)
	mux.Handle(timerServicePath, timerServiceHandler)

	// Register reference clock, over connect and as plain JSON
	clockServicePath, clockServiceHandler := clocksync.NewClockServiceHandler(services.Clock)
	mux.Handle(clockServicePath, clockServiceHandler)
	mux.Handle("/api/time", services.Clock)
}

// setupHealthCheck reports liveness plus whether displays have a snapshot to
// join on yet.
func setupHealthCheck(mux *http.ServeMux, hub *propagator.Hub) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := hub.Stats()
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"displays":    stats.TotalConnections,
			"hasSnapshot": stats.HasSnapshot,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
