package model

import (
	"encoding/json"
	"time"

	"github.com/sakif/garden-planner/internal/layout"
)

// Bed is a rectangle inside a garden. Position is either placed at (top, left)
// or unplaced; an unplaced bed keeps its size and plants.
type Bed struct {
	ID        string
	GardenID  string
	Name      string
	Width     int
	Height    int
	Position  layout.Position
	Plants    []PlantInBed
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Footprint returns the bed's rectangle in garden coordinates. ok is false when unplaced.
func (b *Bed) Footprint() (layout.Footprint, bool) {
	return b.Position.Footprint(b.Width, b.Height)
}

// bedJSON is the wire shape. The position is flattened to top_position and
// left_position, with -1/-1 standing for unplaced.
type bedJSON struct {
	ID        string       `json:"id"`
	GardenID  string       `json:"garden_id"`
	Name      string       `json:"name"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	Top       int          `json:"top_position"`
	Left      int          `json:"left_position"`
	Placed    bool         `json:"placed"`
	Plants    []PlantInBed `json:"plants,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (b Bed) MarshalJSON() ([]byte, error) {
	top, left := b.Position.Wire()
	return json.Marshal(bedJSON{
		ID:        b.ID,
		GardenID:  b.GardenID,
		Name:      b.Name,
		Width:     b.Width,
		Height:    b.Height,
		Top:       top,
		Left:      left,
		Placed:    b.Position.IsPlaced(),
		Plants:    b.Plants,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	})
}

func (b *Bed) UnmarshalJSON(data []byte) error {
	var j bedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	pos, err := layout.PositionFromWire(j.Top, j.Left)
	if err != nil {
		return err
	}
	*b = Bed{
		ID:        j.ID,
		GardenID:  j.GardenID,
		Name:      j.Name,
		Width:     j.Width,
		Height:    j.Height,
		Position:  pos,
		Plants:    j.Plants,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	return nil
}

// BedInput is the request body for creating or updating a bed. Nil fields are
// left unchanged on update. Top and Left travel together; -1/-1 unplaces the bed.
type BedInput struct {
	Name   *string `json:"name"`
	Width  *int    `json:"width"`
	Height *int    `json:"height"`
	Top    *int    `json:"top_position"`
	Left   *int    `json:"left_position"`
}

// BedUpdate is returned by a bed update. DroppedPlants lists the plants a
// confirmed shrink removed.
type BedUpdate struct {
	Bed           *Bed         `json:"bed"`
	DroppedPlants []PlantInBed `json:"dropped_plants,omitempty"`
}
