package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimerStatus defines the run state of the stage timer.
type TimerStatus string

const (
	TimerStatusStopped TimerStatus = "stopped"
	TimerStatusPaused  TimerStatus = "paused"
	TimerStatusRunning TimerStatus = "running"
)

// Valid reports whether s is one of the known statuses.
func (s TimerStatus) Valid() bool {
	switch s {
	case TimerStatusStopped, TimerStatusPaused, TimerStatusRunning:
		return true
	}
	return false
}

const (
	// TimerID is the identity of the one shared timer row.
	TimerID int64 = 1

	// DefaultDurationSec is the length given to a lazily created timer.
	DefaultDurationSec int64 = 300
)

// ErrInvalidRecord is returned when a TimerRecord breaks one of its invariants.
var ErrInvalidRecord = errors.New("invalid timer record")

// TimerRecord is the shared countdown configuration and run state.
//
// While running, DurationSec holds the length that remained when the timer was
// last started and StartTime the reference-clock instant of that start.
type TimerRecord struct {
	ID          int64       `json:"id"`
	DurationSec int64       `json:"duration"`
	StartTime   *time.Time  `json:"start_time"`
	Status      TimerStatus `json:"status"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewDefaultTimer returns the record created when none exists yet.
func NewDefaultTimer(now time.Time) TimerRecord {
	return TimerRecord{
		ID:          TimerID,
		DurationSec: DefaultDurationSec,
		Status:      TimerStatusStopped,
		UpdatedAt:   now,
	}
}

// Validate checks the record invariants: a known status, a non-negative
// duration and a start time present exactly when running.
func (r TimerRecord) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	if r.DurationSec < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidRecord, r.DurationSec)
	}
	running := r.Status == TimerStatusRunning
	if running && r.StartTime == nil {
		return fmt.Errorf("%w: running without start time", ErrInvalidRecord)
	}
	if !running && r.StartTime != nil {
		return fmt.Errorf("%w: start time set while %s", ErrInvalidRecord, r.Status)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without sharing StartTime.
func (r TimerRecord) Clone() TimerRecord {
	if r.StartTime != nil {
		start := *r.StartTime
		r.StartTime = &start
	}
	return r
}

// IsRunning reports whether the countdown is currently advancing.
func (r TimerRecord) IsRunning() bool {
	return r.Status == TimerStatusRunning && r.StartTime != nil
}

// ElapsedSeconds returns the whole seconds between startMs and nowMs, floored.
// A now before the start (clock skew) counts as zero elapsed.
func ElapsedSeconds(startMs, nowMs int64) int64 {
	delta := nowMs - startMs
	if delta <= 0 {
		return 0
	}
	return delta / 1000
}

// RemainingAfter returns duration minus elapsed, floored at zero.
func RemainingAfter(durationSec, elapsedSec int64) int64 {
	return max(0, durationSec-elapsedSec)
}

// TimerAction is one entry of the control action log.
type TimerAction struct {
	ID          uuid.UUID       `json:"id"`
	Action      string          `json:"action"`
	Details     json.RawMessage `json:"details,omitempty"`
	DurationSec int64           `json:"duration"`
	Status      TimerStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}
