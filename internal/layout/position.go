package layout

import "fmt"

// UnplacedCoord is the wire and storage value used for both coordinates of an unplaced bed.
const UnplacedCoord = -1

// Position is where a bed sits in its garden: either Placed at (row, col) or Unplaced.
// The zero value is Unplaced.
type Position struct {
	row, col int
	placed   bool
}

// PlacedAt returns a placed position. Coordinates are not range checked here;
// Check does that against the container.
func PlacedAt(row, col int) Position {
	return Position{row: row, col: col, placed: true}
}

// Unplaced returns the unplaced position.
func Unplaced() Position {
	return Position{}
}

// IsPlaced reports whether the position is on the grid.
func (p Position) IsPlaced() bool { return p.placed }

// Coords returns the row and column of a placed position. ok is false when unplaced.
func (p Position) Coords() (row, col int, ok bool) {
	return p.row, p.col, p.placed
}

// Footprint returns the footprint of a width x height occupant at this position.
// ok is false when unplaced.
func (p Position) Footprint(width, height int) (Footprint, bool) {
	if !p.placed {
		return Footprint{}, false
	}
	return Footprint{X: p.col, Y: p.row, W: width, H: height}, true
}

// Wire encodes the position as (top, left), using -1,-1 for unplaced.
func (p Position) Wire() (top, left int) {
	if !p.placed {
		return UnplacedCoord, UnplacedCoord
	}
	return p.row, p.col
}

// PositionFromWire decodes (top, left). -1,-1 is unplaced; any other negative
// coordinate is rejected.
func PositionFromWire(top, left int) (Position, error) {
	if top == UnplacedCoord && left == UnplacedCoord {
		return Unplaced(), nil
	}
	if top < 0 || left < 0 {
		return Position{}, fmt.Errorf("position (%d,%d): coordinates must be >= 0, or both %d for unplaced",
			top, left, UnplacedCoord)
	}
	return PlacedAt(top, left), nil
}

func (p Position) String() string {
	if !p.placed {
		return "unplaced"
	}
	return fmt.Sprintf("(%d,%d)", p.row, p.col)
}
