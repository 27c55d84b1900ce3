package propagator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/stagetimer/go/internal/models"
)

// SnapshotType tags every message carrying a full timer record
const SnapshotType = "timer.snapshot"

// Fetcher reads the shared record on demand
type Fetcher interface {
	GetTimer(ctx context.Context) (*models.TimerRecord, error)
}

// Subscriber streams record snapshots. The channel is closed once ctx is
// done or the underlying feed is lost.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan models.TimerRecord, error)
}

// Publisher delivers one snapshot to its audience
type Publisher interface {
	Publish(ctx context.Context, rec models.TimerRecord) error
}

// Snapshot is the wire form of a record on NATS and the websocket feed
type Snapshot struct {
	Type        string              `json:"type"`
	Timer       *models.TimerRecord `json:"timer"`
	PublishedAt time.Time           `json:"published_at"`
}

func encodeSnapshot(rec models.TimerRecord, now time.Time) ([]byte, error) {
	data, err := json.Marshal(Snapshot{
		Type:        SnapshotType,
		Timer:       &rec,
		PublishedAt: now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (models.TimerRecord, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.TimerRecord{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Type != SnapshotType || snap.Timer == nil {
		return models.TimerRecord{}, fmt.Errorf("unexpected message type %q", snap.Type)
	}
	if err := snap.Timer.Validate(); err != nil {
		return models.TimerRecord{}, err
	}
	return *snap.Timer, nil
}

// sendLatest hands rec to a buffered(1) channel, replacing whatever value
// the reader has not picked up yet. ch must have a single sender.
func sendLatest(ch chan models.TimerRecord, rec models.TimerRecord) {
	for {
		select {
		case ch <- rec:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
