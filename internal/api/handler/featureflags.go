package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/api/models"
	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/featureflags"
)

// maxFlagUpdateBytes caps the PUT body.
const maxFlagUpdateBytes = 64 << 10

// FlagService manages feature flags.
type FlagService interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
	SetFlags(ctx context.Context, flags []*featureflags.Flag) error
	ResetFlag(ctx context.Context, key string) error
	InvalidateCache()
}

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service FlagService
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service FlagService, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.list(r.Context()))
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFlagUpdateBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		response.BadRequest(w, r, "Invalid request body.", nil)
		return
	}
	if len(req.Updates) == 0 {
		response.BadRequest(w, r, "At least one update is required.", nil)
		return
	}

	var fieldErrors []models.FieldError
	flags := make([]*featureflags.Flag, 0, len(req.Updates))
	for _, update := range req.Updates {
		if err := featureflags.ValidateUpdate(update); err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   update.Key,
				Message: err.Error(),
				Code:    "INVALID_VALUE",
			})
			continue
		}
		flags = append(flags, &featureflags.Flag{Key: update.Key, Value: update.Value})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "Invalid feature flag update.", fieldErrors)
		return
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		if errors.Is(err, featureflags.ErrInvalidFlagValue) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "Failed to update feature flags.")
		return
	}

	h.logger.Info().
		Str("subject", GetSubject(r.Context())).
		Str("reason", req.Reason).
		Int("count", len(flags)).
		Msg("feature flags updated")

	response.JSON(w, r, http.StatusOK, h.list(r.Context()))
}

// ResetFeatureFlag handles DELETE /v1/admin/feature-flags/{key} - drop an
// override so the configured policy applies again.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.service.ResetFlag(r.Context(), key); err != nil {
		if errors.Is(err, featureflags.ErrFlagNotFound) {
			response.NotFound(w, r, fmt.Sprintf("No override stored for %q.", key))
			return
		}
		h.logger.Error().Err(err).Str("flag", key).Msg("failed to reset feature flag")
		response.InternalError(w, r, "Failed to reset feature flag.")
		return
	}

	h.logger.Info().
		Str("subject", GetSubject(r.Context())).
		Str("flag", key).
		Msg("feature flag reset")

	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}

func (h *FeatureFlagsHandler) list(ctx context.Context) featureflags.FlagList {
	flags := h.service.GetAllFlags(ctx)

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(flags))}
	for _, flag := range flags {
		list.Items = append(list.Items, *flag)
	}
	sort.Slice(list.Items, func(i, j int) bool {
		return list.Items[i].Key < list.Items[j].Key
	})
	return list
}
