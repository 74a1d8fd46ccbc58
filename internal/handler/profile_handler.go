package handler

import (
	"net/http"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"go.uber.org/zap"
)

// ============================================================
// Profile: /v1/profile
// ============================================================

func getProfileHandler(profiles *store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.ProfileState{Profile: profiles.Profile()})
	}
}

func updateProfileHandler(profiles *store.ProfileStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/profile")
		defer span.End()

		var patch domain.ProfilePatch
		if err := decodeAndValidate(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ProfileState{Profile: profiles.UpdateProfile(ctx, patch)})
	}
}

func setUserTypeHandler(profiles *store.ProfileStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/profile/user-type")
		defer span.End()

		var req domain.UserTypeRequest
		if err := decodeAndValidate(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ProfileState{Profile: profiles.SetUserType(ctx, req.UserType)})
	}
}

func resetProfileHandler(profiles *store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles.ResetProfile(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}
