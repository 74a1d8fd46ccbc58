package persist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleState struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]int `json:"tags"`
}

func defaults() sampleState {
	return sampleState{Name: "default", Count: 7, Tags: map[string]int{"seed": 1}}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sampleState{Name: "x", Count: 3, Tags: map[string]int{"a": 1}}
	data, err := persist.Encode(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"name":"x","count":3,"tags":{"a":1}},"version":0}`, string(data))

	out := defaults()
	require.NoError(t, persist.Decode("k", data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Count, out.Count)
	assert.Equal(t, 1, out.Tags["a"])
}

func TestDecode_PartialShapeMergesOntoDefaults(t *testing.T) {
	out := defaults()
	require.NoError(t, persist.Decode("k", []byte(`{"state":{"name":"partial"},"version":0}`), &out))

	assert.Equal(t, "partial", out.Name)
	assert.Equal(t, 7, out.Count)
	assert.Equal(t, map[string]int{"seed": 1}, out.Tags)
}

func TestDecode_LegacyBareObject(t *testing.T) {
	out := defaults()
	require.NoError(t, persist.Decode("k", []byte(`{"count":42}`), &out))

	assert.Equal(t, "default", out.Name)
	assert.Equal(t, 42, out.Count)
}

func TestDecode_CorruptLeavesDefaults(t *testing.T) {
	cases := map[string]string{
		"garbage":    `not json at all`,
		"truncated":  `{"state":{"name":"x"`,
		"wrong type": `{"state":{"count":"many"},"version":0}`,
		"array":      `[1,2,3]`,
		"empty":      ``,
		"whitespace": "   \n",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			out := defaults()
			err := persist.Decode("user-storage", []byte(raw), &out)

			var readErr *domain.ErrPersistenceRead
			require.True(t, errors.As(err, &readErr), "expected ErrPersistenceRead, got %v", err)
			assert.Equal(t, "user-storage", readErr.Key)
			assert.Equal(t, defaults(), out)
		})
	}
}

func TestDecode_NullStateKeepsDefaults(t *testing.T) {
	out := defaults()
	require.NoError(t, persist.Decode("k", []byte(`{"state":null,"version":0}`), &out))
	assert.Equal(t, defaults(), out)
}

func TestLoad_AbsentKey(t *testing.T) {
	out := defaults()
	err := persist.Load(context.Background(), persist.NewMemory(), "missing", &out)

	require.NoError(t, err)
	assert.Equal(t, defaults(), out)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemory()

	require.NoError(t, persist.Save(ctx, store, "k", sampleState{Name: "saved", Count: 1}))

	out := defaults()
	require.NoError(t, persist.Load(ctx, store, "k", &out))
	assert.Equal(t, "saved", out.Name)
	assert.Equal(t, 1, out.Count)
}
