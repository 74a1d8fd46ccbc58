package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWasteStore(snap *persist.Memory) *store.WasteStore {
	return store.NewWasteStore(snap, zap.NewNop(), observability.NewMetrics())
}

func entry(date string, kg, energy, co2, savings float64) domain.WasteEntry {
	return domain.WasteEntry{
		Date:            date,
		WasteTypes:      map[domain.WasteTypeID]float64{domain.FoodScraps: kg},
		TotalWeight:     kg,
		EnergyGenerated: energy,
		Co2Avoided:      co2,
		CostSavings:     savings,
	}
}

func TestWasteStore_TotalStatsEmpty(t *testing.T) {
	s := newWasteStore(persist.NewMemory())
	assert.Equal(t, domain.TotalStats{}, s.TotalStats())
}

func TestWasteStore_TotalStatsIsFieldWiseSum(t *testing.T) {
	ctx := context.Background()
	batch := []domain.WasteEntry{
		entry("2024-01-01", 10, 21, 5, 3.15),
		entry("2024-01-02", 4, 8.4, 2, 1.26),
		entry("2024-01-03", 1.5, 3.15, 0.75, 0.4725),
	}

	forward := newWasteStore(persist.NewMemory())
	backward := newWasteStore(persist.NewMemory())
	for i := range batch {
		_, err := forward.AddEntry(ctx, batch[i])
		require.NoError(t, err)
		_, err = backward.AddEntry(ctx, batch[len(batch)-1-i])
		require.NoError(t, err)
	}

	got := forward.TotalStats()
	assert.InDelta(t, 15.5, got.TotalWaste, 1e-9)
	assert.InDelta(t, 32.55, got.TotalEnergy, 1e-9)
	assert.InDelta(t, 7.75, got.TotalCo2Avoided, 1e-9)
	assert.InDelta(t, 4.8825, got.TotalSavings, 1e-9)

	other := backward.TotalStats()
	assert.InDelta(t, got.TotalWaste, other.TotalWaste, 1e-9)
	assert.InDelta(t, got.TotalEnergy, other.TotalEnergy, 1e-9)
	assert.InDelta(t, got.TotalCo2Avoided, other.TotalCo2Avoided, 1e-9)
	assert.InDelta(t, got.TotalSavings, other.TotalSavings, 1e-9)
}

func TestWasteStore_AddPrependsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newWasteStore(persist.NewMemory())

	first, err := s.AddEntry(ctx, entry("2024-01-01", 1, 0, 0, 0))
	require.NoError(t, err)
	second, err := s.AddEntry(ctx, entry("2024-01-02", 1, 0, 0, 0))
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, first, entries[1].ID)
}

func TestWasteStore_IDsAreUniqueUnderRapidInserts(t *testing.T) {
	ctx := context.Background()
	s := newWasteStore(persist.NewMemory())

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id, err := s.AddEntry(ctx, entry("2024-01-01", 1, 0, 0, 0))
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 500, s.Len())
}

func TestWasteStore_AddThenDeleteRestoresLog(t *testing.T) {
	ctx := context.Background()
	s := newWasteStore(persist.NewMemory())
	_, err := s.AddEntry(ctx, entry("2024-01-01", 2, 4.2, 1, 0.63))
	require.NoError(t, err)
	before := s.Entries()

	id, err := s.AddEntry(ctx, entry("2024-01-02", 3, 6.3, 1.5, 0.945))
	require.NoError(t, err)
	assert.True(t, s.DeleteEntry(ctx, id))

	assert.Equal(t, before, s.Entries())
}

func TestWasteStore_UpdateChangesOnlyNamedField(t *testing.T) {
	ctx := context.Background()
	s := newWasteStore(persist.NewMemory())
	e := entry("2024-03-04", 10, 21, 5, 3.15)
	e.Description = "market day"
	e.AIAnalysis = &domain.AIAnalysis{Recommendations: []string{"compost"}, Confidence: 0.92, ConversionMethod: domain.BiogasDigestion}
	id, err := s.AddEntry(ctx, e)
	require.NoError(t, err)
	before, _ := s.Entry(id)

	updated, found, err := s.UpdateEntry(ctx, id, domain.EntryPatch{Co2Avoided: ptr(42.0)})
	require.NoError(t, err)
	require.True(t, found)

	want := before.Clone()
	want.Co2Avoided = 42
	assert.Equal(t, want, updated)
	got, _ := s.Entry(id)
	assert.Equal(t, want, got)
}

func TestWasteStore_UpdateAndDeleteMissingAreNoOps(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	s := newWasteStore(snap)
	_, err := s.AddEntry(ctx, entry("2024-01-01", 1, 0, 0, 0))
	require.NoError(t, err)
	before := s.Entries()

	_, found, err := s.UpdateEntry(ctx, "missing", domain.EntryPatch{Co2Avoided: ptr(1.0)})
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, s.DeleteEntry(ctx, "missing"))
	assert.Equal(t, before, s.Entries())
}

func TestWasteStore_TotalWeightRules(t *testing.T) {
	ctx := context.Background()
	s := newWasteStore(persist.NewMemory())

	derived := domain.WasteEntry{
		Date:       "2024-01-01",
		WasteTypes: map[domain.WasteTypeID]float64{domain.FoodScraps: 3, domain.MarketWaste: 2},
	}
	id, err := s.AddEntry(ctx, derived)
	require.NoError(t, err)
	got, _ := s.Entry(id)
	assert.Equal(t, 5.0, got.TotalWeight)

	bad := derived
	bad.TotalWeight = 9
	_, err = s.AddEntry(ctx, bad)
	var valErr *domain.ErrValidation
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "totalWeight", valErr.Field)

	// replacing the map without a weight re-derives it
	updated, _, err := s.UpdateEntry(ctx, id, domain.EntryPatch{
		WasteTypes: map[domain.WasteTypeID]float64{domain.WoodBiomass: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, updated.TotalWeight)

	_, _, err = s.UpdateEntry(ctx, id, domain.EntryPatch{TotalWeight: ptr(1.0)})
	assert.Error(t, err)
	got, _ = s.Entry(id)
	assert.Equal(t, 7.0, got.TotalWeight, "rejected update must not apply")

	// no waste breakdown: weight is accepted as given
	id, err = s.AddEntry(ctx, domain.WasteEntry{Date: "2024-01-02", TotalWeight: 12})
	require.NoError(t, err)
	got, _ = s.Entry(id)
	assert.Equal(t, 12.0, got.TotalWeight)
}

func TestWasteStore_RejectsUnreadableDates(t *testing.T) {
	ctx := context.Background()
	s := newWasteStore(persist.NewMemory())

	for _, d := range []string{"2024-1-15", "15/01/2024", "yesterday", ""} {
		t.Run(d, func(t *testing.T) {
			_, err := s.AddEntry(ctx, entry(d, 1, 0, 0, 0))
			var valErr *domain.ErrValidation
			require.True(t, errors.As(err, &valErr))
			assert.Equal(t, "date", valErr.Field)
		})
	}
	assert.Equal(t, 0, s.Len())

	id, err := s.AddEntry(ctx, entry("2024-01-15", 1, 0, 0, 0))
	require.NoError(t, err)
	assert.Len(t, s.EntriesByDateRange("2024-01-01", "2024-01-31"), 1)

	_, found, err := s.UpdateEntry(ctx, id, domain.EntryPatch{Date: ptr("2024-1-20"), Description: ptr("moved")})
	assert.True(t, found)
	var valErr *domain.ErrValidation
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "date", valErr.Field)

	got, _ := s.Entry(id)
	assert.Equal(t, "2024-01-15", got.Date)
	assert.Empty(t, got.Description)

	updated, _, err := s.UpdateEntry(ctx, id, domain.EntryPatch{Date: ptr("2024-01-20T08:00:00Z")})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-20T08:00:00Z", updated.Date)
}

func TestWasteStore_EntriesByDateRange(t *testing.T) {
	ctx := context.Background()
	s := newWasteStore(persist.NewMemory())
	for _, d := range []string{"2024-01-01", "2024-01-15T10:30:00Z", "2024-02-01", "2024-03-10"} {
		_, err := s.AddEntry(ctx, entry(d, 1, 0, 0, 0))
		require.NoError(t, err)
	}

	dates := func(entries []domain.WasteEntry) []string {
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Date)
		}
		return out
	}

	tests := []struct {
		start, end string
		want       []string
	}{
		{"2024-01-01", "2024-01-31", []string{"2024-01-15T10:30:00Z", "2024-01-01"}},
		{"2024-01-15", "2024-01-15", []string{"2024-01-15T10:30:00Z"}},
		{"2024-02-01", "2024-02-01", []string{"2024-02-01"}},
		{"", "2024-01-10", []string{"2024-01-01"}},
		{"2024-02-15", "", []string{"2024-03-10"}},
		{"2025-01-01", "2025-12-31", []string{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s..%s", tt.start, tt.end), func(t *testing.T) {
			assert.Equal(t, tt.want, dates(s.EntriesByDateRange(tt.start, tt.end)))
		})
	}
}

func TestWasteStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	first := newWasteStore(snap)
	e := entry("2024-05-05", 10, 21, 5, 3.15)
	e.ImageURL = "https://cdn.example.com/a.jpg"
	e.AIAnalysis = &domain.AIAnalysis{Recommendations: []string{"a", "b"}, Confidence: 0.88, ConversionMethod: domain.Composting}
	_, err := first.AddEntry(ctx, e)
	require.NoError(t, err)
	_, err = first.AddEntry(ctx, entry("2024-05-06", 2, 4.2, 1, 0.63))
	require.NoError(t, err)

	restarted := newWasteStore(snap)
	require.NoError(t, restarted.Load(ctx))
	assert.Equal(t, first.Entries(), restarted.Entries())
	assert.Equal(t, first.TotalStats(), restarted.TotalStats())
}

func TestWasteStore_LoadCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	require.NoError(t, snap.Set(ctx, persist.WasteKey, []byte(`{"state":{"entries":"oops"}}`)))

	s := newWasteStore(snap)
	var readErr *domain.ErrPersistenceRead
	assert.True(t, errors.As(s.Load(ctx), &readErr))
	assert.Empty(t, s.Entries())
	assert.Equal(t, domain.TotalStats{}, s.TotalStats())
}

func TestWasteStore_ImpactSummary(t *testing.T) {
	ctx := context.Background()
	s := newWasteStore(persist.NewMemory())
	_, err := s.AddEntry(ctx, entry("2024-01-01", 100, 60, 4000, 9))
	require.NoError(t, err)

	sum := s.ImpactSummary()
	assert.Equal(t, 1, sum.EntryCount)
	assert.Equal(t, 182, sum.Equivalents.TreesEquivalent)
	assert.Equal(t, 1.0, sum.Equivalents.CarsEquivalent)
	assert.Equal(t, 2, sum.Equivalents.HomesPowered)
}
