package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// DefaultTable holds one row per snapshot key:
//
//	create table app_snapshots (key text primary key, value text not null, updated_at timestamptz default now());
const DefaultTable = "app_snapshots"

// SnapshotStore keeps store snapshots in a PostgREST table.
type SnapshotStore struct {
	client *Client
	table  string
}

// NewSnapshotStore builds a snapshot backend over table (DefaultTable when empty).
func NewSnapshotStore(client *Client, table string) *SnapshotStore {
	if table == "" {
		table = DefaultTable
	}
	return &SnapshotStore{client: client, table: table}
}

type snapshotRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *SnapshotStore) keyFilter(key string) string {
	return fmt.Sprintf("%s?key=eq.%s", s.table, url.QueryEscape(key))
}

// Get reads the snapshot stored under key.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := s.client.call(ctx, "GetSnapshot", http.MethodGet, s.keyFilter(key)+"&select=key,value&limit=1", nil, "")
	if err != nil {
		return nil, false, err
	}
	if body == nil {
		return nil, false, nil
	}

	var rows []snapshotRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, false, fmt.Errorf("decode snapshot rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return []byte(rows[0].Value), true, nil
}

// Set upserts the snapshot row for key.
func (s *SnapshotStore) Set(ctx context.Context, key string, value []byte) error {
	payload, err := json.Marshal(snapshotRow{Key: key, Value: string(value)})
	if err != nil {
		return err
	}
	_, err = s.client.call(ctx, "SetSnapshot", http.MethodPost, s.table+"?on_conflict=key", payload,
		"resolution=merge-duplicates,return=minimal")
	return err
}

// Delete removes the row for key. Deleting a missing key is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.call(ctx, "DeleteSnapshot", http.MethodDelete, s.keyFilter(key), nil, "return=minimal")
	return err
}

// Ping checks that the table is reachable.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	body, err := s.client.call(ctx, "Ping", http.MethodGet, s.table+"?select=key&limit=1", nil, "")
	if err != nil {
		return err
	}
	if body == nil {
		return fmt.Errorf("supabase table %q not found", s.table)
	}
	return nil
}

func (s *SnapshotStore) Close() error { return nil }
