package rpcutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Seq  int64  `json:"seq"`
	Note string `json:"note,omitempty"`
}

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&ping{Seq: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":7}`, string(data))

	var got ping
	require.NoError(t, codec.Unmarshal(data, &got))
	assert.Equal(t, int64(7), got.Seq)
}

func TestJSONCodec_EmptyBodyLeavesZeroValue(t *testing.T) {
	var got ping
	require.NoError(t, JSONCodec{}.Unmarshal(nil, &got))
	assert.Zero(t, got)
}

func TestJSONCodec_RejectsGarbage(t *testing.T) {
	var got ping
	assert.Error(t, JSONCodec{}.Unmarshal([]byte("{"), &got))

	_, err := JSONCodec{}.Marshal(make(chan int))
	assert.Error(t, err)
}
