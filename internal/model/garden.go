package model

import "time"

// Garden is a width x height grid owned by one user. At most one of a user's
// gardens has IsActive set.
type Garden struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user_id"`
	Name      string    `json:"garden_name"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GardenInput is the request body for creating or updating a garden.
//
// POINTER FIELDS:
// A nil pointer means "not sent", so an update keeps the stored value
// (the same behaviour as SQL COALESCE). A non-nil pointer to a zero value
// is a real value and gets validated.
type GardenInput struct {
	Name     *string `json:"garden_name"`
	Width    *int    `json:"width"`
	Height   *int    `json:"height"`
	IsActive *bool   `json:"is_active"`
}

// GardenUpdate is returned by a garden update. UnplacedBeds lists the beds a
// confirmed shrink moved out of the grid.
type GardenUpdate struct {
	Garden       *Garden `json:"garden"`
	UnplacedBeds []Bed   `json:"unplaced_beds,omitempty"`
}
