package layout

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GOLDEN FILES:
// Rendered grids live in testdata/<name>.golden. Regenerate them with
//   go test ./internal/layout/ -update
// and review the diff before committing.

func self(k rune) rune { return k }

func newTestLayout(t *testing.T, width, height int) *Layout[rune] {
	t.Helper()
	l, err := New[rune](width, height)
	require.NoError(t, err)
	return l
}

func bedAt(row, col, w, h int) Footprint {
	fp, _ := PlacedAt(row, col).Footprint(w, h)
	return fp
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNew_InvalidDimensions(t *testing.T) {
	_, err := New[rune](0, 5)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = New[rune](5, -1)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestBuild_ReportsRejectedItems(t *testing.T) {
	items := []Item[rune]{
		{Key: 'a', Footprint: Footprint{X: 0, Y: 0, W: 2, H: 2}},
		{Key: 'b', Footprint: Footprint{X: 1, Y: 1, W: 1, H: 1}}, // overlaps a
		{Key: 'c', Footprint: Footprint{X: 4, Y: 0, W: 2, H: 2}}, // out of bounds
		{Key: 'd', Footprint: Footprint{X: 2, Y: 2, W: 1, H: 1}},
	}

	l, rejected, err := Build(5, 5, items)
	require.NoError(t, err)

	require.Len(t, rejected, 2)
	assert.Equal(t, 'b', rejected[0].Item.Key)
	assert.ErrorIs(t, rejected[0].Err, ErrOverlap)
	assert.Equal(t, 'c', rejected[1].Item.Key)
	assert.ErrorIs(t, rejected[1].Err, ErrOutOfBounds)

	assert.Equal(t, []Item[rune]{items[0], items[3]}, l.Items())
}

// =========================================================================
// ADD / REMOVE
// =========================================================================

func TestAdd_RejectionIsNoOp(t *testing.T) {
	l := newTestLayout(t, 4, 4)
	require.NoError(t, l.Add('a', Footprint{X: 0, Y: 0, W: 2, H: 2}))
	before := l.Render(self)

	err := l.Add('b', Footprint{X: 1, Y: 1, W: 2, H: 2})
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, before, l.Render(self))
	assert.Equal(t, 1, l.Len())

	err = l.Add('a', Footprint{X: 3, Y: 3, W: 1, H: 1})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, l.Len())
}

func TestAdd_PairwiseProperty(t *testing.T) {
	var all []Footprint
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			for side := 1; side <= 3; side++ {
				all = append(all, Footprint{X: x, Y: y, W: side, H: side})
			}
		}
	}

	for _, a := range all {
		for _, b := range all {
			l := newTestLayout(t, 6, 6)
			require.NoError(t, l.Add('a', a))

			overlapping := a.Overlaps(b)
			assert.Equal(t, !overlapping, l.CanPlace(b), "a=%s b=%s", a, b)
		}
	}
}

func TestRemove(t *testing.T) {
	l := newTestLayout(t, 4, 4)
	require.NoError(t, l.Add('a', Footprint{X: 0, Y: 0, W: 2, H: 2}))
	require.NoError(t, l.Add('b', Footprint{X: 2, Y: 2, W: 2, H: 2}))

	assert.True(t, l.Remove('a'))
	assert.False(t, l.Remove('a'))

	_, ok := l.At(0, 0)
	assert.False(t, ok)
	k, ok := l.At(3, 3)
	assert.True(t, ok)
	assert.Equal(t, 'b', k)
	assert.True(t, l.CanPlace(Footprint{X: 0, Y: 0, W: 2, H: 2}))
}

func TestMove(t *testing.T) {
	l := newTestLayout(t, 6, 6)
	require.NoError(t, l.Add('A', bedAt(0, 0, 2, 2)))
	require.NoError(t, l.Add('B', bedAt(0, 3, 2, 2)))

	// overlapping its own old cells is fine
	require.NoError(t, l.Move('A', bedAt(1, 1, 2, 2)))
	k, ok := l.At(2, 2)
	require.True(t, ok)
	assert.Equal(t, 'A', k)
	_, ok = l.At(0, 0)
	assert.False(t, ok)

	err := l.Move('A', bedAt(0, 2, 2, 2))
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, bedAt(1, 1, 2, 2), l.Items()[0].Footprint)

	assert.ErrorIs(t, l.Move('Z', bedAt(4, 4, 1, 1)), ErrUnknownKey)
}

// =========================================================================
// DELETION BY CLICK
// =========================================================================

func TestRemoveAt_AnyCellRemovesWholeOccupant(t *testing.T) {
	target := Footprint{X: 1, Y: 1, W: 3, H: 3}
	neighbours := []Item[rune]{
		{Key: 'n', Footprint: Footprint{X: 1, Y: 0, W: 3, H: 1}},
		{Key: 'w', Footprint: Footprint{X: 0, Y: 1, W: 1, H: 3}},
		{Key: 'e', Footprint: Footprint{X: 4, Y: 1, W: 1, H: 3}},
		{Key: 's', Footprint: Footprint{X: 1, Y: 4, W: 3, H: 1}},
	}

	for _, cell := range target.Cells() {
		items := append([]Item[rune]{{Key: 'T', Footprint: target}}, neighbours...)
		l, rejected, err := Build(5, 5, items)
		require.NoError(t, err)
		require.Empty(t, rejected)

		removed, ok := l.RemoveAt(cell[0], cell[1])
		require.True(t, ok, "cell %v", cell)
		assert.Equal(t, 'T', removed.Key)
		assert.Equal(t, target, removed.Footprint)

		for _, c := range target.Cells() {
			_, ok := l.At(c[0], c[1])
			assert.False(t, ok, "cell %v still occupied after clicking %v", c, cell)
		}
		assert.Equal(t, neighbours, l.Items())
	}
}

func TestRemoveAt_EmptyCell(t *testing.T) {
	l := newTestLayout(t, 3, 3)
	require.NoError(t, l.Add('a', Footprint{X: 0, Y: 0, W: 1, H: 1}))

	_, ok := l.RemoveAt(2, 2)
	assert.False(t, ok)
	_, ok = l.RemoveAt(7, 0)
	assert.False(t, ok)
	assert.Equal(t, 1, l.Len())
}

// =========================================================================
// RESIZE
// =========================================================================

func TestResize_DropsOnlyOccupantsThatNoLongerFit(t *testing.T) {
	items := []Item[rune]{
		{Key: 'a', Footprint: Footprint{X: 0, Y: 0, W: 2, H: 2}},
		{Key: 'b', Footprint: Footprint{X: 3, Y: 0, W: 2, H: 2}},
		{Key: 'c', Footprint: Footprint{X: 0, Y: 3, W: 1, H: 1}},
		{Key: 'd', Footprint: Footprint{X: 2, Y: 2, W: 1, H: 1}},
	}
	l, _, err := Build(6, 6, items)
	require.NoError(t, err)

	kept, planned := l.PlanResize(4, 3)
	assert.Equal(t, []Item[rune]{items[0], items[3]}, kept)
	assert.Equal(t, []Item[rune]{items[1], items[2]}, planned)
	assert.Equal(t, 4, l.Len(), "PlanResize must not mutate")

	dropped, err := l.Resize(4, 3)
	require.NoError(t, err)
	assert.Equal(t, planned, dropped)
	assert.Equal(t, kept, l.Items())
	assert.Equal(t, 4, l.Width())
	assert.Equal(t, 3, l.Height())
}

func TestResize_GrowKeepsEverything(t *testing.T) {
	l := newTestLayout(t, 2, 2)
	require.NoError(t, l.Add('a', Footprint{X: 1, Y: 1, W: 1, H: 1}))

	dropped, err := l.Resize(8, 8)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	k, ok := l.At(1, 1)
	require.True(t, ok)
	assert.Equal(t, 'a', k)
}

func TestResize_InvalidDimensions(t *testing.T) {
	l := newTestLayout(t, 2, 2)
	require.NoError(t, l.Add('a', Footprint{X: 0, Y: 0, W: 1, H: 1}))

	_, err := l.Resize(0, 2)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
	assert.Equal(t, 1, l.Len())
}

// =========================================================================
// SCENARIOS
// =========================================================================

func TestScenario_GardenTwoBeds(t *testing.T) {
	garden := newTestLayout(t, 10, 10)
	require.NoError(t, garden.Add('A', bedAt(0, 0, 3, 3)))

	err := garden.Add('B', bedAt(2, 2, 3, 3))
	var pe *PlacementError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Equal(t, bedAt(0, 0, 3, 3), *pe.Conflict)

	require.NoError(t, garden.Add('B', bedAt(3, 0, 3, 3)))

	g := goldie.New(t)
	g.Assert(t, "garden_two_beds", []byte(garden.Render(self)))
}

func TestScenario_ShrinkBedDropsLargePlant(t *testing.T) {
	bed := newTestLayout(t, 5, 5)
	require.NoError(t, bed.Add('p', FootprintForSpacing(0, 0, 4)))
	k, ok := bed.At(1, 1)
	require.True(t, ok)
	assert.Equal(t, 'p', k)

	dropped, err := bed.Resize(1, 1)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, 'p', dropped[0].Key)
	assert.Empty(t, bed.Items())
}

func TestScenario_BedEditing(t *testing.T) {
	g := goldie.New(t)

	bed := newTestLayout(t, 6, 4)
	require.NoError(t, bed.Add('a', FootprintForSpacing(0, 0, 4)))
	require.NoError(t, bed.Add('b', FootprintForSpacing(2, 0, 9)))
	require.NoError(t, bed.Add('c', FootprintForSpacing(5, 3, 1)))
	// spacing 2 falls back to a single cell
	assert.False(t, bed.CanPlace(FootprintForSpacing(5, 3, 2)))
	assert.True(t, bed.CanPlace(FootprintForSpacing(5, 2, 2)))
	g.Assert(t, "bed_plants", []byte(bed.Render(self)))

	removed, ok := bed.RemoveAt(2, 4)
	require.True(t, ok)
	assert.Equal(t, 'b', removed.Key)
	g.Assert(t, "bed_plants_after_remove", []byte(bed.Render(self)))

	dropped, err := bed.Resize(5, 4)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, 'c', dropped[0].Key)
	g.Assert(t, "bed_plants_after_shrink", []byte(bed.Render(self)))
}
