package layout

// standardSides is the enumerated spacing -> side length table.
// Catalog spacing is the number of cells a plant needs, so only perfect squares
// produce a square footprint. Everything else falls back to a single cell.
var standardSides = map[int]int{
	1: 1,
	4: 2,
	9: 3,
}

// SideLength returns the footprint side for a catalog spacing value.
// Spacing outside {1, 4, 9} yields 1. Use IsStandardSpacing to detect that case.
func SideLength(spacing int) int {
	if side, ok := standardSides[spacing]; ok {
		return side
	}
	return 1
}

// IsStandardSpacing reports whether spacing maps to its own footprint instead of the
// 1x1 fallback.
func IsStandardSpacing(spacing int) bool {
	_, ok := standardSides[spacing]
	return ok
}

// FootprintForSpacing builds the square footprint of a plant placed at (x, y).
func FootprintForSpacing(x, y, spacing int) Footprint {
	side := SideLength(spacing)
	return Footprint{X: x, Y: y, W: side, H: side}
}
