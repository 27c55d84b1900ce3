package sqlutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlTime(t *testing.T) {
	assert.False(t, ToSqlTime(nil).Valid)
	assert.Nil(t, FromSqlTime(ToSqlTime(nil)))

	local := time.Date(2026, 3, 1, 20, 0, 0, 0, time.FixedZone("CET", 3600))
	got := FromSqlTime(ToSqlTime(&local))
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(local))
}

func TestNullRawMessage(t *testing.T) {
	assert.False(t, ToNullRawMessage(nil).Valid)
	assert.Nil(t, FromNullRawMessage(ToNullRawMessage(nil)))

	raw := json.RawMessage(`{"minutes":5}`)
	assert.Equal(t, raw, FromNullRawMessage(ToNullRawMessage(raw)))
}
