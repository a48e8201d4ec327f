package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Times are stored as BIGINT unix milliseconds so both SQL dialects share
// one schema.

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

// marshalImages converts an image URL list to a JSON array string.
func marshalImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("failed to marshal images: %w", err)
	}
	return string(raw), nil
}

// unmarshalImages converts a JSON array string to an image URL list.
func unmarshalImages(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var images []string
	if err := json.Unmarshal([]byte(data), &images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	if images == nil {
		images = []string{}
	}
	return images, nil
}
