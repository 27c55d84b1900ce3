package propagator

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/mcdev12/stagetimer/go/internal/timer"
	"github.com/mcdev12/stagetimer/go/internal/timer/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPGListener_NotifiesOnChange needs a Postgres database the test may wipe
// at STAGETIMER_TEST_DSN.
func TestPGListener_NotifiesOnChange(t *testing.T) {
	dsn := os.Getenv("STAGETIMER_TEST_DSN")
	if dsn == "" {
		t.Skip("STAGETIMER_TEST_DSN not set")
	}

	database, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = database.ExecContext(ctx, db.Schema)
	require.NoError(t, err)
	_, err = database.ExecContext(ctx, `TRUNCATE timer_actions, timers`)
	require.NoError(t, err)

	app := timer.NewApp(timer.NewRepository(db.New(database), database), clockwork.NewRealClock())

	cfg := DefaultListenerConfig()
	cfg.DatabaseURL = dsn
	ch, err := NewPGListener(app, cfg).Subscribe(ctx)
	require.NoError(t, err)

	// the initial fetch creates and reports the default record
	assert.Equal(t, models.DefaultDurationSec, waitSnapshot(t, ch).DurationSec)

	_, err = app.SetDuration(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, int64(240), waitSnapshot(t, ch).DurationSec)

	cancel()
	for range ch {
	}
}
