package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/countdown"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*App, *MemoryRepository, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	repo := NewMemoryRepository()
	return NewApp(repo, clock), repo, clock
}

func remainingAt(rec *models.TimerRecord, clock clockwork.Clock) int64 {
	return countdown.Remaining(rec, 0, func() int64 { return clock.Now().UnixMilli() })
}

func TestApp_GetTimerCreatesDefault(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec, err := app.GetTimer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.TimerID, rec.ID)
	assert.Equal(t, int64(300), rec.DurationSec)
	assert.Equal(t, models.TimerStatusStopped, rec.Status)
	assert.Nil(t, rec.StartTime)
}

func TestApp_ActionsOnMissingRecordCreateDefaultFirst(t *testing.T) {
	app, _, clock := newTestApp(t)

	rec, err := app.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.TimerStatusRunning, rec.Status)
	assert.Equal(t, int64(300), rec.DurationSec)
	require.NotNil(t, rec.StartTime)
	assert.True(t, rec.StartTime.Equal(clock.Now()))
}

func TestApp_StartIsIdempotentWhileRunning(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	first, err := app.Start(ctx)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	second, err := app.Start(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.StartTime, second.StartTime)
	assert.Equal(t, int64(290), remainingAt(second, clock))

	actions, err := app.ListActions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestApp_StartRejectsZeroDuration(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	_, err := app.SetDuration(ctx, "0")
	require.NoError(t, err)

	_, err = app.Start(ctx)
	assert.ErrorIs(t, err, ErrZeroDuration)

	rec, err := app.GetTimer(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusStopped, rec.Status)
}

func TestApp_PauseBakesInElapsed(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	// duration 100 is not reachable in whole minutes; seed it directly
	_, err := app.GetTimer(ctx)
	require.NoError(t, err)
	_, err = app.repo.Mutate(ctx, func(cur models.TimerRecord) (*Mutation, error) {
		cur.DurationSec = 100
		return &Mutation{Record: cur, Action: ActionSetDuration}, nil
	})
	require.NoError(t, err)

	_, err = app.Start(ctx)
	require.NoError(t, err)

	clock.Advance(30*time.Second + 400*time.Millisecond)
	rec, err := app.Pause(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.TimerStatusPaused, rec.Status)
	assert.Equal(t, int64(70), rec.DurationSec)
	assert.Nil(t, rec.StartTime)

	// paused time does not count
	clock.Advance(time.Hour)
	assert.Equal(t, int64(70), remainingAt(rec, clock))

	// resume counts down from what was left
	rec, err = app.Start(ctx)
	require.NoError(t, err)
	clock.Advance(20 * time.Second)
	assert.Equal(t, int64(50), remainingAt(rec, clock))
}

func TestApp_PausePastEndFloorsAtZero(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	_, err := app.SetDuration(ctx, "1")
	require.NoError(t, err)
	_, err = app.Start(ctx)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	rec, err := app.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.DurationSec)
}

func TestApp_PauseRequiresRunning(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	_, err := app.Pause(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)

	_, err = app.Start(ctx)
	require.NoError(t, err)
	_, err = app.Pause(ctx)
	require.NoError(t, err)

	_, err = app.Pause(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestApp_ResetKeepsDuration(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	_, err := app.SetDuration(ctx, "2")
	require.NoError(t, err)
	_, err = app.Start(ctx)
	require.NoError(t, err)
	clock.Advance(45 * time.Second)

	rec, err := app.Reset(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.TimerStatusStopped, rec.Status)
	assert.Nil(t, rec.StartTime)
	assert.Equal(t, int64(120), rec.DurationSec)
	assert.Equal(t, int64(120), remainingAt(rec, clock))
}

func TestApp_ResetFromAnyStatus(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	for range 2 {
		rec, err := app.Reset(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.TimerStatusStopped, rec.Status)
	}

	_, err := app.Start(ctx)
	require.NoError(t, err)
	_, err = app.Pause(ctx)
	require.NoError(t, err)

	rec, err := app.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusStopped, rec.Status)
}

func TestApp_SetDurationIsIdempotent(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	first, err := app.SetDuration(ctx, "5")
	require.NoError(t, err)
	second, err := app.SetDuration(ctx, "5")
	require.NoError(t, err)

	assert.Equal(t, int64(300), first.DurationSec)
	assert.Equal(t, int64(300), second.DurationSec)
	assert.Equal(t, first.Status, second.Status)
}

func TestApp_SetDurationRetargetsRunningTimer(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	started, err := app.Start(ctx)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	rec, err := app.SetDuration(ctx, "10")
	require.NoError(t, err)

	assert.Equal(t, models.TimerStatusRunning, rec.Status)
	assert.Equal(t, started.StartTime, rec.StartTime)
	assert.Equal(t, int64(600), rec.DurationSec)
	assert.Equal(t, int64(570), remainingAt(rec, clock))
}

func TestApp_SetDurationRejectsInvalidInput(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	_, err := app.SetDuration(ctx, "2")
	require.NoError(t, err)

	for _, input := range []string{"", "  ", "abc", "-1", "1.5", "5m", "999999999999999999999"} {
		_, err := app.SetDuration(ctx, input)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", input)
	}

	rec, err := app.GetTimer(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(120), rec.DurationSec)

	actions, err := app.ListActions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"5", 5, false},
		{" 7 ", 7, false},
		{"007", 7, false},
		{"", 0, true},
		{"-3", 0, true},
		{"2.5", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMinutes(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApp_TwoMinuteScenario(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	_, err := app.SetDuration(ctx, "2")
	require.NoError(t, err)
	rec, err := app.Start(ctx)
	require.NoError(t, err)

	clock.Advance(65 * time.Second)
	assert.Equal(t, int64(55), remainingAt(rec, clock))

	clock.Advance(65 * time.Second)
	assert.Equal(t, int64(0), remainingAt(rec, clock))

	// the record itself is untouched by time passing
	stored, err := app.GetTimer(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusRunning, stored.Status)
	assert.Equal(t, int64(120), stored.DurationSec)
}

func TestApp_ConcurrentSetDurationLastWriteWins(t *testing.T) {
	for range 20 {
		app, _, _ := newTestApp(t)
		ctx := context.Background()
		_, err := app.GetTimer(ctx)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for _, minutes := range []string{"3", "7"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := app.SetDuration(ctx, minutes)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		rec, err := app.GetTimer(ctx)
		require.NoError(t, err)
		assert.Contains(t, []int64{180, 420}, rec.DurationSec)

		actions, err := app.ListActions(ctx, 0)
		require.NoError(t, err)
		require.Len(t, actions, 2)
		// the newest logged action is the one that won
		assert.Equal(t, rec.DurationSec, actions[0].DurationSec)
	}
}

func TestApp_ListActionsNewestFirst(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()

	_, err := app.SetDuration(ctx, "1")
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = app.Start(ctx)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = app.Pause(ctx)
	require.NoError(t, err)

	actions, err := app.ListActions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, ActionPause, actions[0].Action)
	assert.Equal(t, ActionStart, actions[1].Action)

	all, err := app.ListActions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.JSONEq(t, `{"minutes":1}`, string(all[2].Details))
}
