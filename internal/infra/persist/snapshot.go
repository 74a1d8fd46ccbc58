// Package persist provides the durable snapshot backends the stores write
// into, plus the envelope codec shared by all of them.
//
// Every backend is last-write-wins at the granularity of one key: two
// processes writing the same key will silently overwrite each other. That is
// acceptable for the single-user client model and is not guarded against.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"
)

// Fixed snapshot keys, one per store.
const (
	AuthKey    = "auth-storage"
	ProfileKey = "user-storage"
	WasteKey   = "waste-storage"
)

// SnapshotVersion is written into every envelope.
const SnapshotVersion = 0

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Encode wraps state in the {"state": ..., "version": ...} envelope.
func Encode[T any](state T) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{State: raw, Version: SnapshotVersion})
}

// Decode merges a stored snapshot onto dst, which must already hold the
// defaults. Fields missing from the snapshot keep their default value. A
// bare object without a "state" member is read as a legacy snapshot and
// treated as the state itself. On a decode error dst is left untouched.
func Decode[T any](key string, data []byte, dst *T) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &domain.ErrPersistenceRead{Key: key, Err: fmt.Errorf("empty snapshot")}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &domain.ErrPersistenceRead{Key: key, Err: err}
	}

	raw := json.RawMessage(data)
	if state, ok := envelope["state"]; ok {
		raw = state
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	// Decode into a copy so a half-applied payload never leaks into dst.
	// The copy is re-seeded from JSON to avoid sharing maps with the defaults.
	seed, err := json.Marshal(dst)
	if err != nil {
		return &domain.ErrPersistenceRead{Key: key, Err: err}
	}
	var merged T
	if err := json.Unmarshal(seed, &merged); err != nil {
		return &domain.ErrPersistenceRead{Key: key, Err: err}
	}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return &domain.ErrPersistenceRead{Key: key, Err: err}
	}
	*dst = merged
	return nil
}

// Load reads key from store and merges it onto dst. An absent key leaves dst
// at its defaults and returns nil. Backend and decode failures are returned
// as *domain.ErrPersistenceRead; dst still holds the defaults in that case.
func Load[T any](ctx context.Context, store port.SnapshotStore, key string, dst *T) error {
	data, found, err := store.Get(ctx, key)
	if err != nil {
		return &domain.ErrPersistenceRead{Key: key, Err: err}
	}
	if !found {
		return nil
	}
	return Decode(key, data, dst)
}

// Save encodes state and writes it under key.
func Save[T any](ctx context.Context, store port.SnapshotStore, key string, state T) error {
	data, err := Encode(state)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", key, err)
	}
	if err := store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write snapshot %q: %w", key, err)
	}
	return nil
}
