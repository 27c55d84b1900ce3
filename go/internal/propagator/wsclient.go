package propagator

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// WSSubscriber follows a Hub over a websocket, e.g. ws://host:8080/ws/timer
type WSSubscriber struct {
	url    string
	dialer *websocket.Dialer
}

func NewWSSubscriber(url string) *WSSubscriber {
	return &WSSubscriber{
		url:    url,
		dialer: websocket.DefaultDialer,
	}
}

func (s *WSSubscriber) Subscribe(ctx context.Context) (<-chan models.TimerRecord, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}

	log.Info().Str("url", s.url).Msg("following timer over websocket")

	ch := make(chan models.TimerRecord, 1)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(ch)
		defer close(done)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Msg("websocket feed closed")
				}
				return
			}

			rec, err := decodeSnapshot(data)
			if err != nil {
				log.Error().Err(err).Msg("dropping malformed timer snapshot")
				continue
			}
			sendLatest(ch, rec)
		}
	}()

	return ch, nil
}
