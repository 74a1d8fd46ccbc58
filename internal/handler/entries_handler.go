package handler

import (
	"net/http"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/impact"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Entries: /v1/entries
// ============================================================

// listEntriesHandler filters by ?start=&end= when either is present.
func listEntriesHandler(entries *store.WasteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, end := q.Get("start"), q.Get("end")

		var list []domain.WasteEntry
		if start == "" && end == "" {
			list = entries.Entries()
		} else {
			list = entries.EntriesByDateRange(start, end)
		}
		if list == nil {
			list = []domain.WasteEntry{}
		}
		writeJSON(w, http.StatusOK, domain.EntryList{Entries: list, Count: len(list)})
	}
}

// createEntryHandler records an entry. Missing energy, CO2 or savings
// figures are filled from the linear estimate over the entry's weight.
func createEntryHandler(entries *store.WasteStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/entries")
		defer span.End()

		var req domain.CreateEntryRequest
		if err := decodeAndValidate(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		weight := req.TotalWeight
		if weight == 0 {
			weight = domain.SumWaste(req.WasteTypes)
		}
		est := impact.FallbackEstimate(weight)

		e := domain.WasteEntry{
			Date:            req.Date,
			WasteTypes:      req.WasteTypes,
			TotalWeight:     req.TotalWeight,
			EnergyGenerated: valueOr(req.EnergyGenerated, est.EnergyGenerated),
			Co2Avoided:      valueOr(req.Co2Avoided, est.Co2Avoided),
			CostSavings:     valueOr(req.CostSavings, est.CostSavings),
			Description:     req.Description,
			ImageURL:        req.ImageURL,
		}

		id, err := entries.AddEntry(ctx, e)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("entry.id", id))

		stored, _ := entries.Entry(id)
		writeJSON(w, http.StatusCreated, domain.CreateEntryResponse{ID: id, Entry: stored})
	}
}

func getEntryHandler(entries *store.WasteStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		e, ok := entries.Entry(id)
		if !ok {
			handleServiceError(w, &domain.ErrNotFound{Resource: "entry", ID: id}, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func updateEntryHandler(entries *store.WasteStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/entries/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("entry.id", id))

		var patch domain.EntryPatch
		if err := decodeAndValidate(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		e, found, err := entries.UpdateEntry(ctx, id, patch)
		if !found {
			handleServiceError(w, &domain.ErrNotFound{Resource: "entry", ID: id}, logger)
			return
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func deleteEntryHandler(entries *store.WasteStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !entries.DeleteEntry(r.Context(), id) {
			handleServiceError(w, &domain.ErrNotFound{Resource: "entry", ID: id}, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func statsHandler(entries *store.WasteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, entries.TotalStats())
	}
}

func impactHandler(entries *store.WasteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, entries.ImpactSummary())
	}
}

func valueOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
