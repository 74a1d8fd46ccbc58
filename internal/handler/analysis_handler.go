package handler

import (
	"net/http"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Analysis: POST /v1/analyze, GET /v1/waste-types
// ============================================================

func analyzeHandler(analyzer *service.Analyzer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/analyze")
		defer span.End()

		var req domain.AnalysisRequest
		if err := decodeAndValidate(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		reqLogger := logger.With(zap.String("user_id", UserIDFromContext(ctx)))
		res, err := analyzer.Analyze(ctx, &req, func(p domain.Phase) {
			reqLogger.Debug("analysis phase", zap.String("phase", string(p)))
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(
			attribute.String("analysis.source", string(res.Source)),
			attribute.Float64("analysis.total_weight", res.TotalWeight),
		)
		writeJSON(w, http.StatusOK, res)
	}
}

func wasteTypesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.CatalogList())
	}
}
