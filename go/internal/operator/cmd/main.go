package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/clocksync"
	"github.com/mcdev12/stagetimer/go/internal/operator"
	"github.com/mcdev12/stagetimer/go/internal/timer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	clock := clockwork.NewRealClock()
	httpClient := &http.Client{}

	operator.Execute(operator.Deps{
		NewControl: func(baseURL string) operator.TimerControl {
			return timer.NewClient(httpClient, baseURL)
		},
		NewOffset: func(baseURL string, timeout time.Duration) func(ctx context.Context) (int64, error) {
			est := clocksync.NewEstimator(clocksync.NewConnectProber(httpClient, baseURL), clock, timeout)
			return func(ctx context.Context) (int64, error) {
				off, err := est.Estimate(ctx)
				return off.Millis, err
			}
		},
		Clock: clock,
	})
}
