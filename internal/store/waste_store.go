package store

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/impact"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// weightTolerance is how far totalWeight may drift from the waste-type sum (kg).
const weightTolerance = 1e-6

// WasteStore holds the entry log, newest first, and derives aggregates from it.
type WasteStore struct {
	snapshots port.SnapshotStore
	logger    *zap.Logger
	metrics   *observability.Metrics
	newID     func() string

	mu      sync.RWMutex
	entries []domain.WasteEntry
}

// NewWasteStore creates an empty entry log. Call Load to hydrate it.
func NewWasteStore(snapshots port.SnapshotStore, logger *zap.Logger, metrics *observability.Metrics) *WasteStore {
	return &WasteStore{
		snapshots: snapshots,
		logger:    logger,
		metrics:   metrics,
		newID:     uuid.NewString,
	}
}

// Name identifies the store in logs and metrics.
func (s *WasteStore) Name() string { return "waste" }

// Load restores the persisted log, keeping an empty log on any read error.
func (s *WasteStore) Load(ctx context.Context) error {
	state := domain.WasteState{Entries: []domain.WasteEntry{}}
	err := persist.Load(ctx, s.snapshots, persist.WasteKey, &state)
	if err != nil {
		s.metrics.IncrPersistError(s.Name(), "read")
		state = domain.WasteState{}
	}

	s.mu.Lock()
	s.entries = state.Entries
	s.mu.Unlock()
	return err
}

// AddEntry assigns a fresh identifier, prepends the entry and persists the log.
// The only error is *domain.ErrValidation for an unreadable date or an
// inconsistent totalWeight.
func (s *WasteStore) AddEntry(ctx context.Context, entry domain.WasteEntry) (string, error) {
	if err := validateDate(entry.Date); err != nil {
		return "", err
	}
	e := entry.Clone()
	if err := reconcileWeight(&e); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.uniqueIDLocked()
	s.entries = append([]domain.WasteEntry{e}, s.entries...)
	s.mutatedLocked(ctx, "add", zap.String("entry_id", e.ID))
	return e.ID, nil
}

// UpdateEntry merges the non-nil fields of patch into the entry with id.
// It reports false, with no change, when no such entry exists. A rejected
// patch leaves the entry untouched.
func (s *WasteStore) UpdateEntry(ctx context.Context, id string, patch domain.EntryPatch) (domain.WasteEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.WasteEntry{}, false, nil
	}
	if patch.Date != nil {
		if err := validateDate(*patch.Date); err != nil {
			return domain.WasteEntry{}, true, err
		}
	}

	e := s.entries[idx].Clone()
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.WasteTypes != nil {
		e.WasteTypes = make(map[domain.WasteTypeID]float64, len(patch.WasteTypes))
		for k, v := range patch.WasteTypes {
			e.WasteTypes[k] = v
		}
		if patch.TotalWeight == nil {
			e.TotalWeight = 0
		}
	}
	if patch.TotalWeight != nil {
		e.TotalWeight = *patch.TotalWeight
	}
	if patch.EnergyGenerated != nil {
		e.EnergyGenerated = *patch.EnergyGenerated
	}
	if patch.Co2Avoided != nil {
		e.Co2Avoided = *patch.Co2Avoided
	}
	if patch.CostSavings != nil {
		e.CostSavings = *patch.CostSavings
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.ImageURL != nil {
		e.ImageURL = *patch.ImageURL
	}
	if patch.AIAnalysis != nil {
		a := *patch.AIAnalysis
		a.Recommendations = append([]string(nil), patch.AIAnalysis.Recommendations...)
		e.AIAnalysis = &a
	}

	if patch.WasteTypes != nil || patch.TotalWeight != nil {
		if err := reconcileWeight(&e); err != nil {
			return domain.WasteEntry{}, true, err
		}
	}

	s.entries[idx] = e
	s.mutatedLocked(ctx, "update", zap.String("entry_id", id))
	return e.Clone(), true, nil
}

// DeleteEntry removes the entry with id, reporting whether it existed.
func (s *WasteStore) DeleteEntry(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)
	s.mutatedLocked(ctx, "delete", zap.String("entry_id", id))
	return true
}

// Entry returns a copy of the entry with id.
func (s *WasteStore) Entry(id string) (domain.WasteEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.WasteEntry{}, false
	}
	return s.entries[idx].Clone(), true
}

// Entries returns a copy of the log, newest first.
func (s *WasteStore) Entries() []domain.WasteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Len returns the number of held entries.
func (s *WasteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TotalStats sums totalWeight, energyGenerated, co2Avoided and costSavings.
func (s *WasteStore) TotalStats() domain.TotalStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return impact.Totals(s.entries)
}

// ImpactSummary returns the totals with their everyday equivalents.
func (s *WasteStore) ImpactSummary() domain.ImpactSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return impact.Summary(s.entries)
}

// EntriesByDateRange returns the entries dated within [start, end], in log
// order. An empty bound is open. Dates are compared as instants when both
// sides parse (RFC 3339 or YYYY-MM-DD; a date-only end covers that whole
// day) and as strings otherwise.
func (s *WasteStore) EntriesByDateRange(start, end string) []domain.WasteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.WasteEntry{}
	for _, e := range s.entries {
		if start != "" && compareDates(e.Date, start, false) < 0 {
			continue
		}
		if end != "" && compareDates(e.Date, end, true) > 0 {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

// Flush re-persists the current snapshot.
func (s *WasteStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	state := domain.WasteState{Entries: cloneEntries(s.entries)}
	s.mu.RUnlock()
	return persist.Save(ctx, s.snapshots, persist.WasteKey, state)
}

func (s *WasteStore) indexLocked(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *WasteStore) uniqueIDLocked() string {
	for {
		id := s.newID()
		if id != "" && s.indexLocked(id) < 0 {
			return id
		}
	}
}

func (s *WasteStore) mutatedLocked(ctx context.Context, op string, fields ...zap.Field) {
	s.metrics.IncrStoreMutation(s.Name(), op)
	s.logger.Debug("waste log updated", append(fields, zap.String("op", op), zap.Int("entries", len(s.entries)))...)

	entries := s.entries
	if entries == nil {
		entries = []domain.WasteEntry{}
	}
	if err := persist.Save(ctx, s.snapshots, persist.WasteKey, domain.WasteState{Entries: entries}); err != nil {
		s.metrics.IncrPersistError(s.Name(), "write")
		s.logger.Error("persist waste snapshot", zap.Error(err))
	}
}

// reconcileWeight derives a zero totalWeight from the waste-type map and
// rejects a supplied one that disagrees with a non-empty map.
func reconcileWeight(e *domain.WasteEntry) error {
	if e.TotalWeight < 0 {
		return &domain.ErrValidation{Field: "totalWeight", Message: "must not be negative"}
	}
	sum := domain.SumWaste(e.WasteTypes)
	if e.TotalWeight == 0 {
		e.TotalWeight = sum
		return nil
	}
	if len(e.WasteTypes) > 0 && math.Abs(e.TotalWeight-sum) > weightTolerance {
		return &domain.ErrValidation{
			Field:   "totalWeight",
			Message: fmt.Sprintf("%.3f kg does not match the waste types sum of %.3f kg", e.TotalWeight, sum),
		}
	}
	return nil
}

// compareDates orders date a against bound b. isEnd widens a date-only b to
// the end of that day.
func compareDates(a, b string, isEnd bool) int {
	ta, okA := parseDate(a)
	tb, okB := parseDate(b)
	if !okA || !okB {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	if isEnd && len(b) == len(dateOnly) {
		tb = tb.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return ta.Compare(tb)
}

const dateOnly = "2006-01-02"

// validateDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates,
// the two forms the range filter compares chronologically.
func validateDate(s string) error {
	if _, ok := parseDate(s); !ok {
		return &domain.ErrValidation{Field: "date", Message: "must be an RFC 3339 timestamp or YYYY-MM-DD"}
	}
	return nil
}

func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func cloneEntries(in []domain.WasteEntry) []domain.WasteEntry {
	out := make([]domain.WasteEntry, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
