package rpcutil

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// JSONCodec lets connect handlers and clients exchange plain Go structs as
// JSON. It replaces connect's protojson codec under the same "json" name.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

// WithJSON is the option both sides of a JSON service must share.
func WithJSON() connect.Option {
	return connect.WithCodec(JSONCodec{})
}
