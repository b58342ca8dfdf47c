package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"starfield-server/internal/galaxy"
	"starfield-server/internal/shared/errors"
	"starfield-server/internal/shared/response"
	"starfield-server/internal/starfield"
)

const maxBodyBytes = 1 << 20 // 1 MB

// GalaxyService is the part of galaxy.Service the handlers use.
type GalaxyService interface {
	CreateGalaxy(ctx context.Context, req galaxy.CreateGalaxyRequest) (*galaxy.Galaxy, error)
	GetGalaxy(ctx context.Context, galaxyID int) (*galaxy.Galaxy, error)
	ListGalaxies(ctx context.Context) ([]galaxy.Galaxy, error)
	DeleteGalaxy(ctx context.Context, galaxyID int) error
	UpdateParameters(ctx context.Context, galaxyID int, params starfield.Parameters) (*galaxy.UpdateAccepted, error)
	Stars(ctx context.Context, galaxyID int) (*galaxy.StarField, error)
	Stats(ctx context.Context, galaxyID int) (*galaxy.StarFieldStats, error)
	GenerationStatus(ctx context.Context, galaxyID int) (*galaxy.GenerationStatus, error)
}

type GalaxyHandler struct {
	service GalaxyService
}

func NewGalaxyHandler(service GalaxyService) *GalaxyHandler {
	return &GalaxyHandler{service: service}
}

func galaxyID(r *http.Request) (int, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		return 0, errors.Validation("galaxy ID is required")
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.WrapValidation("invalid galaxy ID format", err)
	}
	if id <= 0 {
		return 0, errors.Validationf("invalid galaxy ID %d", id)
	}
	return id, nil
}

func (h *GalaxyHandler) ListGalaxies(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_galaxies")

	galaxies, err := h.service.ListGalaxies(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if galaxies == nil {
		galaxies = []galaxy.Galaxy{}
	}

	response.Success(w, http.StatusOK, galaxies)
}

func (h *GalaxyHandler) CreateGalaxy(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "create_galaxy")

	var req galaxy.CreateGalaxyRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	created, err := h.service.CreateGalaxy(r.Context(), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

func (h *GalaxyHandler) GetGalaxy(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_galaxy")

	id, err := galaxyID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	g, err := h.service.GetGalaxy(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, g)
}

func (h *GalaxyHandler) DeleteGalaxy(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "delete_galaxy")

	id, err := galaxyID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.service.DeleteGalaxy(r.Context(), id); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateParameters accepts a full parameter set. Generation continues after
// the response, so the reply is 202 with the request id to poll for.
func (h *GalaxyHandler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "update_parameters")

	id, err := galaxyID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var params starfield.Parameters
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&params); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	accepted, err := h.service.UpdateParameters(r.Context(), id, params)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusAccepted, accepted)
}

// GetStars streams the encoded star buffer. The fingerprint doubles as an
// ETag since equal parameters always produce the same bytes.
func (h *GalaxyHandler) GetStars(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_stars")

	id, err := galaxyID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	field, err := h.service.Stars(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	etag := strconv.Quote(field.Fingerprint)
	header := w.Header()
	header.Set("ETag", etag)
	header.Set("X-Star-Count", strconv.Itoa(field.Buffer.Count))
	header.Set("X-Star-Stride", strconv.Itoa(starfield.Stride))
	header.Set("X-Disk-Count", strconv.Itoa(field.DiskCount()))
	header.Set("X-Star-Source", string(field.Source))
	if field.RequestID != 0 {
		header.Set("X-Request-ID", strconv.FormatUint(field.RequestID, 10))
	}

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := field.Buffer.MarshalBinary()
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to encode star buffer", err))
		return
	}

	logger.Debug("Serving star buffer",
		"galaxy_id", id,
		"stars", field.Buffer.Count,
		"source", field.Source,
		"bytes", len(data))
	response.Binary(w, http.StatusOK, data)
}

func (h *GalaxyHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_galaxy_stats")

	id, err := galaxyID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, stats)
}

func (h *GalaxyHandler) GetGenerationStatus(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_generation_status")

	id, err := galaxyID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	status, err := h.service.GenerationStatus(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, status)
}
