package propagator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type JetStreamConfig struct {
	URL           string
	StreamName    string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration // How long a snapshot is kept
	Replicas      int
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "STAGE_TIMER",
		Subject:       "stagetimer.timer.1",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		MaxAge:        24 * time.Hour,
		Replicas:      1,
	}
}

func connectJetStream(cfg JetStreamConfig) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return nc, js, nil
}

// NATSPublisher keeps the latest snapshot on a JetStream subject. The stream
// holds one message per subject so late joiners read only the current state.
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewNATSPublisher(cfg JetStreamConfig) (*NATSPublisher, error) {
	nc, js, err := connectJetStream(cfg)
	if err != nil {
		return nil, err
	}

	p := &NATSPublisher{nc: nc, js: js, config: cfg}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *NATSPublisher) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:              p.config.StreamName,
		Description:       "Latest stage timer record",
		Subjects:          []string{p.config.Subject},
		Retention:         jetstream.LimitsPolicy,
		MaxAge:            p.config.MaxAge,
		MaxMsgsPerSubject: 1,
		Discard:           jetstream.DiscardOld,
		Storage:           jetstream.FileStorage,
		Replicas:          p.config.Replicas,
	}
}

func (p *NATSPublisher) ensureStream(ctx context.Context) error {
	sc := p.streamConfig()

	stream, err := p.js.Stream(ctx, p.config.StreamName)
	if err != nil {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().
			Str("stream", p.config.StreamName).
			Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = p.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().
			Str("stream", p.config.StreamName).
			Msg("updated JetStream stream")
	}
	return nil
}

func (p *NATSPublisher) Publish(ctx context.Context, rec models.TimerRecord) error {
	data, err := encodeSnapshot(rec, time.Now())
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: p.config.Subject,
		Data:    data,
		Header: nats.Header{
			"Timer-ID":     []string{strconv.FormatInt(rec.ID, 10)},
			"Timer-Status": []string{string(rec.Status)},
		},
	},
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", p.config.Subject).
		Uint64("sequence", ack.Sequence).
		Str("status", string(rec.Status)).
		Msg("published timer snapshot")

	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgsPerSubject == b.MaxMsgsPerSubject &&
		a.Replicas == b.Replicas &&
		len(a.Subjects) == 1 && len(b.Subjects) == 1 && a.Subjects[0] == b.Subjects[0]
}

// NATSSubscriber follows the timer subject with an ordered consumer, starting
// from the last stored snapshot. Ordered consumers are ephemeral and need no
// acks, so each display gets its own without any server-side bookkeeping.
type NATSSubscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewNATSSubscriber(cfg JetStreamConfig) (*NATSSubscriber, error) {
	nc, js, err := connectJetStream(cfg)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{nc: nc, js: js, config: cfg}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context) (<-chan models.TimerRecord, error) {
	consumer, err := s.js.OrderedConsumer(ctx, s.config.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{s.config.Subject},
		DeliverPolicy:  jetstream.DeliverLastPerSubjectPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create ordered consumer: %w", err)
	}

	ch := make(chan models.TimerRecord, 1)
	var (
		mu     sync.Mutex
		closed bool
	)

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		rec, err := decodeSnapshot(msg.Data())
		if err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed timer snapshot")
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if !closed {
			sendLatest(ch, rec)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("start consumer: %w", err)
	}

	log.Info().
		Str("stream", s.config.StreamName).
		Str("subject", s.config.Subject).
		Msg("following timer snapshots")

	go func() {
		<-ctx.Done()
		consumeCtx.Stop()

		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch, nil
}

func (s *NATSSubscriber) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
