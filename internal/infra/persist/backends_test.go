package persist_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]port.SnapshotStore {
	t.Helper()

	file, err := persist.NewFile(t.TempDir())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redis := persist.NewRedis(mr.Addr(), "", "fialo:")
	t.Cleanup(func() { _ = redis.Close() })

	sqlite, err := persist.OpenSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]port.SnapshotStore{
		"memory": persist.NewMemory(),
		"file":   file,
		"redis":  redis,
		"sqlite": sqlite,
	}
}

func TestBackends_GetSetDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := store.Get(ctx, persist.WasteKey)
			require.NoError(t, err)
			assert.False(t, found, "fresh backend must not have the key")

			require.NoError(t, store.Set(ctx, persist.WasteKey, []byte(`{"state":{"entries":[]},"version":0}`)))
			got, found, err := store.Get(ctx, persist.WasteKey)
			require.NoError(t, err)
			assert.True(t, found)
			assert.JSONEq(t, `{"state":{"entries":[]},"version":0}`, string(got))

			// last write wins
			require.NoError(t, store.Set(ctx, persist.WasteKey, []byte(`{"state":null,"version":0}`)))
			got, _, err = store.Get(ctx, persist.WasteKey)
			require.NoError(t, err)
			assert.JSONEq(t, `{"state":null,"version":0}`, string(got))

			require.NoError(t, store.Delete(ctx, persist.WasteKey))
			_, found, err = store.Get(ctx, persist.WasteKey)
			require.NoError(t, err)
			assert.False(t, found)

			// deleting a missing key is not an error
			require.NoError(t, store.Delete(ctx, persist.WasteKey))
			require.NoError(t, store.Ping(ctx))
		})
	}
}

func TestFile_RejectsPathTraversal(t *testing.T) {
	store, err := persist.NewFile(t.TempDir())
	require.NoError(t, err)

	err = store.Set(context.Background(), "../escape", []byte("{}"))
	assert.Error(t, err)
}

func TestFile_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := persist.NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, persist.AuthKey, []byte(`{"state":{},"version":0}`)))

	second, err := persist.NewFile(dir)
	require.NoError(t, err)
	_, found, err := second.Get(ctx, persist.AuthKey)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := persist.Open(persist.Options{Backend: "etcd"})
	assert.Error(t, err)
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	_, err := persist.Open(persist.Options{Backend: "postgres"})
	assert.Error(t, err)
}
