package store

import (
	"context"
	"sync"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"

	"go.uber.org/zap"
)

// ProfileStore holds the onboarding answers. Its operations never fail;
// persistence errors are logged and counted.
type ProfileStore struct {
	snapshots port.SnapshotStore
	logger    *zap.Logger
	metrics   *observability.Metrics

	mu      sync.RWMutex
	profile *domain.UserProfile
}

// NewProfileStore creates an empty profile store. Call Load to hydrate it.
func NewProfileStore(snapshots port.SnapshotStore, logger *zap.Logger, metrics *observability.Metrics) *ProfileStore {
	return &ProfileStore{snapshots: snapshots, logger: logger, metrics: metrics}
}

// Name identifies the store in logs and metrics.
func (s *ProfileStore) Name() string { return "profile" }

// Load restores the persisted profile, keeping defaults on any read error.
func (s *ProfileStore) Load(ctx context.Context) error {
	var state domain.ProfileState
	err := persist.Load(ctx, s.snapshots, persist.ProfileKey, &state)
	if err != nil {
		s.metrics.IncrPersistError(s.Name(), "read")
		state = domain.ProfileState{}
	}

	s.mu.Lock()
	s.profile = state.Profile
	s.mu.Unlock()
	return err
}

// Profile returns a copy of the current profile, or nil when none is set.
func (s *ProfileStore) Profile() *domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// SetUserType sets the user-type tag, keeping every other field.
func (s *ProfileStore) SetUserType(ctx context.Context, t domain.UserType) *domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.ensureLocked()
	p.UserType = t
	s.mutatedLocked(ctx, "set_user_type")
	return p.Clone()
}

// UpdateProfile merges the non-nil fields of patch, creating the profile if absent.
func (s *ProfileStore) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) *domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.ensureLocked()
	if patch.UserType != nil {
		p.UserType = *patch.UserType
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.WasteTypes != nil {
		p.WasteTypes = make(map[domain.WasteTypeID]float64, len(patch.WasteTypes))
		for k, v := range patch.WasteTypes {
			p.WasteTypes[k] = v
		}
	}
	if patch.DailyEnergyNeeds != nil {
		p.DailyEnergyNeeds = *patch.DailyEnergyNeeds
	}
	if patch.CompanyName != nil {
		p.CompanyName = *patch.CompanyName
	}
	if patch.CurrentProcessingMethod != nil {
		p.CurrentProcessingMethod = *patch.CurrentProcessingMethod
	}
	if patch.OperationalCost != nil {
		v := *patch.OperationalCost
		p.OperationalCost = &v
	}
	s.mutatedLocked(ctx, "update")
	return p.Clone()
}

// ResetProfile clears the profile entirely.
func (s *ProfileStore) ResetProfile(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = nil
	s.mutatedLocked(ctx, "reset")
}

// Flush re-persists the current snapshot.
func (s *ProfileStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	state := domain.ProfileState{Profile: s.profile.Clone()}
	s.mu.RUnlock()
	return persist.Save(ctx, s.snapshots, persist.ProfileKey, state)
}

func (s *ProfileStore) ensureLocked() *domain.UserProfile {
	if s.profile == nil {
		s.profile = &domain.UserProfile{WasteTypes: map[domain.WasteTypeID]float64{}}
	}
	return s.profile
}

func (s *ProfileStore) mutatedLocked(ctx context.Context, op string) {
	s.metrics.IncrStoreMutation(s.Name(), op)
	s.logger.Debug("profile updated", zap.String("op", op))

	state := domain.ProfileState{Profile: s.profile}
	if err := persist.Save(ctx, s.snapshots, persist.ProfileKey, state); err != nil {
		s.metrics.IncrPersistError(s.Name(), "write")
		s.logger.Error("persist profile snapshot", zap.Error(err))
	}
}
