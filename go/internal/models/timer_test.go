package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultTimer(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := NewDefaultTimer(now)

	assert.Equal(t, TimerID, rec.ID)
	assert.Equal(t, int64(300), rec.DurationSec)
	assert.Equal(t, TimerStatusStopped, rec.Status)
	assert.Nil(t, rec.StartTime)
	assert.Equal(t, now, rec.UpdatedAt)
	require.NoError(t, rec.Validate())
}

func TestTimerRecord_Validate(t *testing.T) {
	start := time.UnixMilli(1_000)

	tests := []struct {
		name    string
		rec     TimerRecord
		wantErr bool
	}{
		{"stopped", TimerRecord{Status: TimerStatusStopped, DurationSec: 10}, false},
		{"paused zero", TimerRecord{Status: TimerStatusPaused}, false},
		{"running", TimerRecord{Status: TimerStatusRunning, DurationSec: 10, StartTime: &start}, false},
		{"running without start", TimerRecord{Status: TimerStatusRunning, DurationSec: 10}, true},
		{"stopped with start", TimerRecord{Status: TimerStatusStopped, StartTime: &start}, true},
		{"negative duration", TimerRecord{Status: TimerStatusStopped, DurationSec: -1}, true},
		{"unknown status", TimerRecord{Status: "finished"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecord)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTimerRecord_CloneDoesNotShareStartTime(t *testing.T) {
	start := time.UnixMilli(5_000)
	rec := TimerRecord{Status: TimerStatusRunning, StartTime: &start}

	clone := rec.Clone()
	*clone.StartTime = clone.StartTime.Add(time.Hour)

	assert.Equal(t, int64(5_000), rec.StartTime.UnixMilli())
}

func TestElapsedSeconds(t *testing.T) {
	assert.Equal(t, int64(0), ElapsedSeconds(1_000, 1_999))
	assert.Equal(t, int64(1), ElapsedSeconds(1_000, 2_000))
	assert.Equal(t, int64(65), ElapsedSeconds(0, 65_500))
	// local clock behind the start
	assert.Equal(t, int64(0), ElapsedSeconds(10_000, 8_000))
}

func TestRemainingAfter(t *testing.T) {
	assert.Equal(t, int64(55), RemainingAfter(120, 65))
	assert.Equal(t, int64(0), RemainingAfter(120, 130))
	assert.Equal(t, int64(0), RemainingAfter(0, 0))
}
