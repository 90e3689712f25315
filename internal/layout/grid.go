package layout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateKey means an occupant with the same key is already on the grid.
	ErrDuplicateKey = errors.New("occupant already placed")
	// ErrUnknownKey means no occupant with the key is on the grid.
	ErrUnknownKey = errors.New("occupant not on grid")
	// ErrInvalidDimensions means a container was given a zero or negative size.
	ErrInvalidDimensions = errors.New("container dimensions must be positive")
)

// Item is one occupant of a container: its identity and where it sits.
type Item[K comparable] struct {
	Key       K
	Footprint Footprint
}

// Rejection is an item Build could not place, with the reason.
type Rejection[K comparable] struct {
	Item Item[K]
	Err  error
}

// entry is the occupant reference stored in every cell of its footprint.
// Cells compare entries by pointer, so two cells belong to the same occupant
// exactly when they hold the same *entry.
type entry[K comparable] struct {
	item Item[K]
}

// Layout keeps a height x width occupancy grid in sync with an ordered occupant list.
//
// The grid is derived state: it is rebuilt from the occupant list on Build and Resize
// and is never the source of truth. Layout is not safe for concurrent mutation.
type Layout[K comparable] struct {
	width, height int
	cells         [][]*entry[K] // cells[row][col]
	entries       []*entry[K]
}

// New returns an empty layout of the given size.
func New[K comparable](width, height int) (*Layout[K], error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Layout[K]{
		width:  width,
		height: height,
		cells:  newCells[K](width, height),
	}, nil
}

// Build reconstructs a layout from a flat occupant list, adding items in order.
// Items that fail validation are skipped and returned as rejections so the caller
// can decide whether stored data is corrupt; they never reach the grid.
func Build[K comparable](width, height int, items []Item[K]) (*Layout[K], []Rejection[K], error) {
	l, err := New[K](width, height)
	if err != nil {
		return nil, nil, err
	}
	var rejected []Rejection[K]
	for _, it := range items {
		if err := l.Add(it.Key, it.Footprint); err != nil {
			rejected = append(rejected, Rejection[K]{Item: it, Err: err})
		}
	}
	return l, rejected, nil
}

func newCells[K comparable](width, height int) [][]*entry[K] {
	cells := make([][]*entry[K], height)
	for r := range cells {
		cells[r] = make([]*entry[K], width)
	}
	return cells
}

// Width is the number of columns.
func (l *Layout[K]) Width() int { return l.width }

// Height is the number of rows.
func (l *Layout[K]) Height() int { return l.height }

// Len is the number of occupants.
func (l *Layout[K]) Len() int { return len(l.entries) }

// Items returns a copy of the occupant list in insertion order.
func (l *Layout[K]) Items() []Item[K] {
	out := make([]Item[K], len(l.entries))
	for i, e := range l.entries {
		out[i] = e.item
	}
	return out
}

// Footprints returns the footprints of all occupants in insertion order.
func (l *Layout[K]) Footprints() []Footprint {
	out := make([]Footprint, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.item.Footprint
	}
	return out
}

// Check validates a candidate against this layout without changing it.
func (l *Layout[K]) Check(fp Footprint) error {
	return Check(l.width, l.height, l.Footprints(), fp)
}

// CanPlace reports whether fp would be accepted by Add.
func (l *Layout[K]) CanPlace(fp Footprint) bool {
	return l.Check(fp) == nil
}

// Add validates fp and, if it fits, writes the occupant into every cell of its footprint
// and appends it to the occupant list. On rejection the layout is left untouched.
func (l *Layout[K]) Add(key K, fp Footprint) error {
	if l.indexOf(key) >= 0 {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	if err := l.Check(fp); err != nil {
		return err
	}
	e := &entry[K]{item: Item[K]{Key: key, Footprint: fp}}
	l.fill(e, e)
	l.entries = append(l.entries, e)
	return nil
}

// Move relocates an existing occupant to fp, validating against every other occupant.
// The occupant keeps its place in the occupant list.
func (l *Layout[K]) Move(key K, fp Footprint) error {
	i := l.indexOf(key)
	if i < 0 {
		return fmt.Errorf("%w: %v", ErrUnknownKey, key)
	}
	e := l.entries[i]
	others := make([]Footprint, 0, len(l.entries)-1)
	for _, o := range l.entries {
		if o != e {
			others = append(others, o.item.Footprint)
		}
	}
	if err := Check(l.width, l.height, others, fp); err != nil {
		return err
	}
	l.fill(e, nil)
	e.item.Footprint = fp
	l.fill(e, e)
	return nil
}

// Remove clears every cell of the occupant's footprint and drops it from the list.
// It reports whether the key was present.
func (l *Layout[K]) Remove(key K) bool {
	i := l.indexOf(key)
	if i < 0 {
		return false
	}
	l.fill(l.entries[i], nil)
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return true
}

// At returns the occupant covering (row, col), if any.
func (l *Layout[K]) At(row, col int) (K, bool) {
	var zero K
	if !l.inBounds(row, col) {
		return zero, false
	}
	e := l.cells[row][col]
	if e == nil {
		return zero, false
	}
	return e.item.Key, true
}

// RemoveAt removes the whole occupant covering (row, col), whichever of its cells was hit.
//
// The occupant's origin is found by walking left along the row, then up the column,
// while the preceding cell still holds the same occupant reference. The full footprint
// is then cleared from that origin.
func (l *Layout[K]) RemoveAt(row, col int) (Item[K], bool) {
	if !l.inBounds(row, col) || l.cells[row][col] == nil {
		return Item[K]{}, false
	}
	e := l.cells[row][col]

	r, c := row, col
	for c > 0 && l.cells[r][c-1] == e {
		c--
	}
	for r > 0 && l.cells[r-1][c] == e {
		r--
	}

	w, h := e.item.Footprint.W, e.item.Footprint.H
	for rr := r; rr < r+h && rr < l.height; rr++ {
		for cc := c; cc < c+w && cc < l.width; cc++ {
			if l.cells[rr][cc] == e {
				l.cells[rr][cc] = nil
			}
		}
	}
	for i, o := range l.entries {
		if o == e {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
	return e.item, true
}

// PlanResize splits the occupants into those that still fit a width x height container
// and those that would be dropped, without changing the layout.
func (l *Layout[K]) PlanResize(width, height int) (kept, dropped []Item[K]) {
	for _, e := range l.entries {
		if e.item.Footprint.Within(width, height) {
			kept = append(kept, e.item)
		} else {
			dropped = append(dropped, e.item)
		}
	}
	return kept, dropped
}

// Resize rebuilds the grid at the new size. Occupants that no longer fit are removed
// from the occupant list entirely (never clipped or repositioned) and returned.
// Surviving occupants keep their position, key and order.
func (l *Layout[K]) Resize(width, height int) ([]Item[K], error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	var (
		kept    = make([]*entry[K], 0, len(l.entries))
		dropped []Item[K]
	)
	for _, e := range l.entries {
		if e.item.Footprint.Within(width, height) {
			kept = append(kept, e)
		} else {
			dropped = append(dropped, e.item)
		}
	}

	l.width, l.height = width, height
	l.cells = newCells[K](width, height)
	l.entries = kept
	for _, e := range kept {
		l.fill(e, e)
	}
	return dropped, nil
}

// Render draws the grid one row per line. Empty cells are '.', occupied cells use label.
func (l *Layout[K]) Render(label func(K) rune) string {
	var b strings.Builder
	b.Grow((l.width + 1) * l.height)
	for r := 0; r < l.height; r++ {
		for c := 0; c < l.width; c++ {
			if e := l.cells[r][c]; e != nil {
				b.WriteRune(label(e.item.Key))
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (l *Layout[K]) fill(e, v *entry[K]) {
	fp := e.item.Footprint
	for r := fp.Y; r < fp.Bottom(); r++ {
		for c := fp.X; c < fp.Right(); c++ {
			if l.inBounds(r, c) {
				l.cells[r][c] = v
			}
		}
	}
}

func (l *Layout[K]) indexOf(key K) int {
	for i, e := range l.entries {
		if e.item.Key == key {
			return i
		}
	}
	return -1
}

func (l *Layout[K]) inBounds(row, col int) bool {
	return row >= 0 && row < l.height && col >= 0 && col < l.width
}
