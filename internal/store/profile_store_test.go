package store_test

import (
	"context"
	"testing"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProfileStore(snap *persist.Memory) *store.ProfileStore {
	return store.NewProfileStore(snap, zap.NewNop(), observability.NewMetrics())
}

func ptr[T any](v T) *T { return &v }

func TestProfileStore_SetUserTypeKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	s := newProfileStore(persist.NewMemory())

	s.UpdateProfile(ctx, domain.ProfilePatch{Location: ptr("Lagos"), DailyEnergyNeeds: ptr(12.5)})
	p := s.SetUserType(ctx, domain.UserTypeCompany)

	assert.Equal(t, domain.UserTypeCompany, p.UserType)
	assert.Equal(t, "Lagos", p.Location)
	assert.Equal(t, 12.5, p.DailyEnergyNeeds)

	// idempotent
	again := s.SetUserType(ctx, domain.UserTypeCompany)
	assert.Equal(t, p, again)
}

func TestProfileStore_UpdateCreatesAndMerges(t *testing.T) {
	ctx := context.Background()
	s := newProfileStore(persist.NewMemory())
	assert.Nil(t, s.Profile())

	s.UpdateProfile(ctx, domain.ProfilePatch{
		WasteTypes: map[domain.WasteTypeID]float64{domain.FoodScraps: 4, domain.WoodBiomass: 2},
	})
	p := s.UpdateProfile(ctx, domain.ProfilePatch{CompanyName: ptr("Acme Farms")})

	assert.Equal(t, "Acme Farms", p.CompanyName)
	assert.Equal(t, 6.0, p.TotalWasteKg())

	// shallow merge replaces the whole map
	p = s.UpdateProfile(ctx, domain.ProfilePatch{
		WasteTypes: map[domain.WasteTypeID]float64{domain.AnimalWaste: 1},
	})
	assert.Equal(t, map[domain.WasteTypeID]float64{domain.AnimalWaste: 1}, p.WasteTypes)
}

func TestProfileStore_ProfileIsACopy(t *testing.T) {
	ctx := context.Background()
	s := newProfileStore(persist.NewMemory())
	s.UpdateProfile(ctx, domain.ProfilePatch{
		WasteTypes: map[domain.WasteTypeID]float64{domain.FoodScraps: 4},
	})

	p := s.Profile()
	p.WasteTypes[domain.FoodScraps] = 100

	assert.Equal(t, 4.0, s.Profile().WasteTypes[domain.FoodScraps])
}

func TestProfileStore_Reset(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	s := newProfileStore(snap)
	s.SetUserType(ctx, domain.UserTypeIndividual)

	s.ResetProfile(ctx)
	assert.Nil(t, s.Profile())

	raw, _, err := snap.Get(ctx, persist.ProfileKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"profile":null},"version":0}`, string(raw))
}

func TestProfileStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	first := newProfileStore(snap)
	first.UpdateProfile(ctx, domain.ProfilePatch{
		UserType:         ptr(domain.UserTypeCompany),
		Location:         ptr("Nairobi"),
		WasteTypes:       map[domain.WasteTypeID]float64{domain.MarketWaste: 30},
		DailyEnergyNeeds: ptr(80.0),
		OperationalCost:  ptr(1200.0),
	})

	restarted := newProfileStore(snap)
	require.NoError(t, restarted.Load(ctx))
	assert.Equal(t, first.Profile(), restarted.Profile())
}

func TestProfileStore_LoadPartialLegacyShape(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	require.NoError(t, snap.Set(ctx, persist.ProfileKey, []byte(`{"profile":{"userType":"individual"}}`)))

	s := newProfileStore(snap)
	require.NoError(t, s.Load(ctx))

	p := s.Profile()
	require.NotNil(t, p)
	assert.Equal(t, domain.UserTypeIndividual, p.UserType)
	assert.Empty(t, p.Location)
}

func TestProfileStore_LoadCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	snap := persist.NewMemory()
	require.NoError(t, snap.Set(ctx, persist.ProfileKey, []byte(`nope`)))

	s := newProfileStore(snap)
	assert.Error(t, s.Load(ctx))
	assert.Nil(t, s.Profile())
}
