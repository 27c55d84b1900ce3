package timer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	app := NewApp(NewMemoryRepository(), clock)

	mux := http.NewServeMux()
	path, handler := NewTimerServiceHandler(NewService(app))
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL), clock
}

func TestService_RoundTrip(t *testing.T) {
	client, clock := newTestClient(t)
	ctx := context.Background()

	rec, err := client.GetTimer(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusStopped, rec.Status)
	assert.Equal(t, int64(300), rec.DurationSec)

	rec, err = client.SetDuration(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, int64(120), rec.DurationSec)

	rec, err = client.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusRunning, rec.Status)
	require.NotNil(t, rec.StartTime)
	assert.Equal(t, clock.Now().UnixMilli(), rec.StartTime.UnixMilli())

	clock.Advance(65 * time.Second)
	rec, err = client.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusPaused, rec.Status)
	assert.Equal(t, int64(55), rec.DurationSec)

	rec, err = client.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusStopped, rec.Status)
	assert.Equal(t, int64(55), rec.DurationSec)

	actions, err := client.ListActions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, actions, 4)
	assert.Equal(t, ActionReset, actions[0].Action)
	assert.Equal(t, ActionSetDuration, actions[3].Action)
	assert.JSONEq(t, `{"minutes":2}`, string(actions[3].Details))
}

func TestService_ErrorsSurviveTheWire(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Pause(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)

	_, err = client.SetDuration(ctx, "soon")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = client.SetDuration(ctx, "0")
	require.NoError(t, err)
	_, err = client.Start(ctx)
	assert.ErrorIs(t, err, ErrZeroDuration)
	assert.NotErrorIs(t, err, ErrNotRunning)
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{fmt.Errorf("failed to set duration timer: %w", ErrInvalidInput), connect.CodeInvalidArgument},
		{ErrNotRunning, connect.CodeFailedPrecondition},
		{ErrZeroDuration, connect.CodeFailedPrecondition},
		{fmt.Errorf("lock timer: %w: %w", ErrStoreUnavailable, errors.New("conn reset")), connect.CodeUnavailable},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{errors.New("boom"), connect.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, connect.CodeOf(toConnectError(tt.err)))
		})
	}
}
