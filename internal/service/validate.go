package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/garden-planner/internal/apperror"
	"github.com/sakif/garden-planner/internal/layout"
	"github.com/sakif/garden-planner/internal/model"
)

// Validation limits.
const (
	MaxNameLength = 100
	// MaxGridSide bounds garden and bed dimensions. Layouts are held as a
	// dense cell array, so this also caps the memory a single request can ask for.
	MaxGridSide    = 200
	MaxRoleLength  = 50
	MinPasswordLen = 8
)

// requireName trims value and checks it is present and short enough.
func requireName(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	if len(value) > MaxNameLength {
		return "", apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, MaxNameLength))
	}
	return value, nil
}

func checkSide(field string, v int) error {
	if v <= 0 || v > MaxGridSide {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be between 1 and %d", field, MaxGridSide))
	}
	return nil
}

// PlacementConflict is the Details payload of a rejected placement.
type PlacementConflict struct {
	Reason    string            `json:"reason"`
	Candidate layout.Footprint  `json:"candidate"`
	Conflict  *layout.Footprint `json:"conflict,omitempty"`
}

// placementFailed converts a layout rejection into a validation error. Any
// other error passes through unchanged.
func placementFailed(field string, err error) error {
	var pe *layout.PlacementError
	if !errors.As(err, &pe) {
		return err
	}
	return &apperror.AppError{
		Err:     apperror.ErrValidation,
		Message: fmt.Sprintf("%s: %s", field, pe.Error()),
		Field:   field,
		Details: PlacementConflict{
			Reason:    pe.Reason.Error(),
			Candidate: pe.Candidate,
			Conflict:  pe.Conflict,
		},
	}
}

// ResizeImpact is the Details payload of a resize that needs confirmation.
type ResizeImpact struct {
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	UnplacedBeds  []model.Bed        `json:"unplaced_beds,omitempty"`
	DroppedPlants []model.PlantInBed `json:"dropped_plants,omitempty"`
}
