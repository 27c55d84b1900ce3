package sqlutil

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable column types

// ToSqlTime converts a Go time pointer to sql.NullTime
func ToSqlTime(val *time.Time) sql.NullTime {
	if val == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *val, Valid: true}
}

// FromSqlTime converts sql.NullTime to a UTC Go time pointer
func FromSqlTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time.UTC()
	return &t
}

// ToNullRawMessage wraps optional JSON for a nullable jsonb column
func ToNullRawMessage(raw json.RawMessage) pqtype.NullRawMessage {
	return pqtype.NullRawMessage{RawMessage: raw, Valid: len(raw) > 0}
}

// FromNullRawMessage unwraps a nullable jsonb column
func FromNullRawMessage(val pqtype.NullRawMessage) json.RawMessage {
	if !val.Valid {
		return nil
	}
	return val.RawMessage
}
