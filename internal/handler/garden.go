package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/service"
)

// GardenHandler serves /api/gardens.
type GardenHandler struct {
	gardens *service.GardenService
	logger  *slog.Logger
}

func NewGardenHandler(gardens *service.GardenService, logger *slog.Logger) *GardenHandler {
	return &GardenHandler{gardens: gardens, logger: logger}
}

// HandleCreate creates a garden and makes it the caller's active one.
//
// HTTP: POST /api/gardens  {"garden_name": "...", "width": 10, "height": 8}
func (h *GardenHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, err := requestOwner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in model.GardenInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	garden, err := h.gardens.Create(r.Context(), owner, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, garden)
}

// HandleGet returns one garden with ?gardenId, otherwise all of the caller's gardens.
//
// HTTP: GET /api/gardens[?gardenId=...]
func (h *GardenHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, err := requestOwner(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if gardenID := r.URL.Query().Get("gardenId"); gardenID != "" {
		garden, err := h.gardens.Get(r.Context(), owner, gardenID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, garden)
		return
	}

	gardens, err := h.gardens.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gardens)
}

// HandleUpdate renames, resizes or (de)activates a garden. A shrink that
// unplaces beds answers 409 confirmation_required unless ?confirm=true.
//
// HTTP: PUT /api/gardens?gardenId=...[&confirm=true]
func (h *GardenHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, err := requestOwner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	gardenID, err := requireQuery(r, "gardenId")
	if err != nil {
		writeError(w, err)
		return
	}
	var in model.GardenInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.gardens.Update(r.Context(), owner, gardenID, in, confirmed(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDelete deletes a garden with its beds and plants.
//
// HTTP: DELETE /api/gardens?gardenId=...
func (h *GardenHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, err := requestOwner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	gardenID, err := requireQuery(r, "gardenId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gardens.Delete(r.Context(), owner, gardenID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
