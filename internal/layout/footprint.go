// Package layout holds the grid geometry shared by beds-in-gardens and plants-in-beds.
//
// Everything here is pure: no I/O, no logging, no locks. The same functions back the
// server-side validation in the service layer and can be called from any client that
// wants a live hover preview before committing a placement.
//
// Layout.Move and Layout.RemoveAt are that client editing surface (drag to move,
// click a cell to delete). The HTTP server persists whole plant sets and never
// calls them.
//
// COORDINATES:
// X is the column, Y is the row, both counted from the top-left cell (0,0).
// A bed's (top, left) maps to Footprint{X: left, Y: top}.
package layout

import "fmt"

// Footprint is the axis-aligned rectangle an occupant covers, in whole grid cells.
type Footprint struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Right is the first column past the footprint.
func (f Footprint) Right() int { return f.X + f.W }

// Bottom is the first row past the footprint.
func (f Footprint) Bottom() int { return f.Y + f.H }

// Within reports whether the footprint lies fully inside a width x height container.
func (f Footprint) Within(width, height int) bool {
	return f.X >= 0 && f.Y >= 0 && f.Right() <= width && f.Bottom() <= height
}

// Overlaps is the standard axis-aligned rectangle intersection test.
// Rectangles that only share an edge do not overlap.
func (f Footprint) Overlaps(o Footprint) bool {
	return !(f.Right() <= o.X ||
		o.Right() <= f.X ||
		f.Bottom() <= o.Y ||
		o.Bottom() <= f.Y)
}

// Contains reports whether cell (row, col) belongs to the footprint.
func (f Footprint) Contains(row, col int) bool {
	return col >= f.X && col < f.Right() && row >= f.Y && row < f.Bottom()
}

// Cells returns every (row, col) pair covered by the footprint in row-major order.
func (f Footprint) Cells() [][2]int {
	if f.W <= 0 || f.H <= 0 {
		return nil
	}
	cells := make([][2]int, 0, f.W*f.H)
	for r := f.Y; r < f.Bottom(); r++ {
		for c := f.X; c < f.Right(); c++ {
			cells = append(cells, [2]int{r, c})
		}
	}
	return cells
}

func (f Footprint) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", f.W, f.H, f.X, f.Y)
}
