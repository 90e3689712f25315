package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds means the candidate leaves the container.
	ErrOutOfBounds = errors.New("placement out of bounds")
	// ErrOverlap means the candidate intersects an existing occupant.
	ErrOverlap = errors.New("placement overlaps an existing occupant")
	// ErrInvalidSize means the candidate has a zero or negative width or height.
	ErrInvalidSize = errors.New("placement has no area")
)

// PlacementError describes why a candidate footprint was rejected.
// It unwraps to one of ErrOutOfBounds, ErrOverlap or ErrInvalidSize.
type PlacementError struct {
	Reason    error
	Candidate Footprint
	// Conflict is the occupant hit by the candidate. Only set for ErrOverlap.
	Conflict *Footprint
}

func (e *PlacementError) Error() string {
	if e.Conflict != nil {
		return fmt.Sprintf("%s: %s collides with %s", e.Reason, e.Candidate, *e.Conflict)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Candidate)
}

func (e *PlacementError) Unwrap() error { return e.Reason }

// Check validates a candidate against a width x height container and its existing
// occupants. It returns nil when the candidate fits, otherwise a *PlacementError.
//
// The bounds test runs first, so a candidate that is both out of bounds and overlapping
// reports ErrOutOfBounds. Occupants are tested in order and the first hit is reported.
func Check(width, height int, occupants []Footprint, candidate Footprint) error {
	if candidate.W <= 0 || candidate.H <= 0 {
		return &PlacementError{Reason: ErrInvalidSize, Candidate: candidate}
	}
	if !candidate.Within(width, height) {
		return &PlacementError{Reason: ErrOutOfBounds, Candidate: candidate}
	}
	for i := range occupants {
		if candidate.Overlaps(occupants[i]) {
			hit := occupants[i]
			return &PlacementError{Reason: ErrOverlap, Candidate: candidate, Conflict: &hit}
		}
	}
	return nil
}

// CanPlace is the boolean form of Check, used for hover previews.
func CanPlace(width, height int, occupants []Footprint, candidate Footprint) bool {
	return Check(width, height, occupants, candidate) == nil
}
