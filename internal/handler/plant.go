package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/service"
)

// PlantHandler serves the plants of a bed and the plant catalog.
type PlantHandler struct {
	plants  *service.PlantService
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewPlantHandler(plants *service.PlantService, catalog *service.CatalogService, logger *slog.Logger) *PlantHandler {
	return &PlantHandler{plants: plants, catalog: catalog, logger: logger}
}

// HandleSave replaces the bed's plants with the posted array.
//
// HTTP: POST /api/plants/save-plants?gardenId=...&bedId=...
//
//	[{"plant_id": 7, "x_position": 0, "y_position": 0, "plant_role": "main"}, ...]
func (h *PlantHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	owner, gardenID, bedID, err := bedTarget(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	var plants []model.PlantInBed
	if err := decodeJSON(w, r, &plants); err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.plants.Save(r.Context(), owner, gardenID, bedID, plants)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleList returns the bed's plants.
//
// HTTP: GET /api/plants/all-plants?gardenId=...&bedId=...
func (h *PlantHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, gardenID, bedID, err := bedTarget(r, true)
	if err != nil {
		writeError(w, err)
		return
	}

	plants, err := h.plants.List(r.Context(), owner, gardenID, bedID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plants)
}

// HandleCatalog lists the plant catalog.
//
// HTTP: GET /api/plants/catalog
func (h *PlantHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	plants, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plants)
}

// HandleCatalogPlant returns one catalog row.
//
// HTTP: GET /api/plants/catalog/{plantId}
func (h *PlantHandler) HandleCatalogPlant(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "plantId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, apperror.ValidationFailed("plantId", "plantId must be a positive integer"))
		return
	}

	plant, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}
