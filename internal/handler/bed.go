package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/garden-planner/internal/model"
	"github.com/sakif/garden-planner/internal/service"
)

// BedHandler serves /api/beds. Every route needs ?gardenId.
type BedHandler struct {
	beds   *service.BedService
	logger *slog.Logger
}

func NewBedHandler(beds *service.BedService, logger *slog.Logger) *BedHandler {
	return &BedHandler{beds: beds, logger: logger}
}

// bedTarget reads the owner and the gardenId (and bedId when withBed) of r.
func bedTarget(r *http.Request, withBed bool) (owner, gardenID, bedID string, err error) {
	if owner, err = requestOwner(r); err != nil {
		return
	}
	if gardenID, err = requireQuery(r, "gardenId"); err != nil {
		return
	}
	if withBed {
		bedID, err = requireQuery(r, "bedId")
	}
	return
}

// HandleCreate adds a bed. It starts unplaced unless top_position and
// left_position are sent.
//
// HTTP: POST /api/beds?gardenId=...
func (h *BedHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, gardenID, _, err := bedTarget(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	var in model.BedInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	bed, err := h.beds.Create(r.Context(), owner, gardenID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bed)
}

// HandleGet returns one bed with ?bedId, otherwise every bed of the garden,
// each with its plants.
//
// HTTP: GET /api/beds?gardenId=...[&bedId=...]
func (h *BedHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, gardenID, _, err := bedTarget(r, false)
	if err != nil {
		writeError(w, err)
		return
	}

	if bedID := r.URL.Query().Get("bedId"); bedID != "" {
		bed, err := h.beds.Get(r.Context(), owner, gardenID, bedID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bed)
		return
	}

	beds, err := h.beds.List(r.Context(), owner, gardenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, beds)
}

// HandleUpdate renames, moves, unplaces (-1/-1) or resizes a bed. A shrink
// that drops plants answers 409 confirmation_required unless ?confirm=true.
//
// HTTP: PUT /api/beds?gardenId=...&bedId=...[&confirm=true]
func (h *BedHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, gardenID, bedID, err := bedTarget(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	var in model.BedInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.beds.Update(r.Context(), owner, gardenID, bedID, in, confirmed(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDelete removes a bed and its plants.
//
// HTTP: DELETE /api/beds?gardenId=...&bedId=...
func (h *BedHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, gardenID, bedID, err := bedTarget(r, true)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.beds.Delete(r.Context(), owner, gardenID, bedID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
