package model

import (
	"time"

	"github.com/sakif/garden-planner/internal/layout"
)

// CatalogPlant is a species row from the plant catalog. Spacing is the number
// of grid cells the plant needs; see layout.SideLength for the footprint.
type CatalogPlant struct {
	ID             int64  `json:"id"              yaml:"id"`
	CommonName     string `json:"common_name"     yaml:"common_name"`
	ScientificName string `json:"scientific_name" yaml:"scientific_name"`
	IconImage      string `json:"icon_image"      yaml:"icon_image"`
	Spacing        int    `json:"spacing"         yaml:"spacing"`
}

// PlantInBed is one catalog plant placed at (X, Y) inside a bed.
//
// The catalog columns (CommonName..Spacing) are read-only copies joined from
// the catalog when listing; on save only PlantID, X, Y and Role are used.
type PlantInBed struct {
	ID          string    `json:"plant_in_bed_id"`
	BedID       string    `json:"bed_id"`
	PlantID     int64     `json:"plant_id"`
	X           int       `json:"x_position"`
	Y           int       `json:"y_position"`
	Role        string    `json:"plant_role"`
	PlantedDate time.Time `json:"planted_date"`

	CommonName     string `json:"common_name,omitempty"`
	ScientificName string `json:"scientific_name,omitempty"`
	IconImage      string `json:"icon_image,omitempty"`
	Spacing        int    `json:"spacing,omitempty"`
}

// Footprint is the square the plant covers in bed coordinates.
func (p *PlantInBed) Footprint() layout.Footprint {
	return layout.FootprintForSpacing(p.X, p.Y, p.Spacing)
}
