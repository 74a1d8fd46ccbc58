package handler

import (
	"net/http"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Auth: /v1/auth
// ============================================================

func registerHandler(auth *store.AuthStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/register")
		defer span.End()

		var req domain.RegisterRequest
		if err := decodeAndValidate(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		user, err := auth.Register(ctx, req.Name, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("user.id", user.ID))
		writeJSON(w, http.StatusCreated, auth.Session())
	}
}

func loginHandler(auth *store.AuthStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := decodeAndValidate(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		user, err := auth.Login(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("user.id", user.ID))
		writeJSON(w, http.StatusOK, auth.Session())
	}
}

// logoutHandler is idempotent: logging out an anonymous session still succeeds.
func logoutHandler(auth *store.AuthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.Logout(r.Context())
		writeJSON(w, http.StatusOK, auth.Session())
	}
}

func sessionHandler(auth *store.AuthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, auth.Session())
	}
}
