// Package placement computes cursor-relative window positions.
package placement

// Point is a position in desktop coordinates.
type Point struct {
	X int
	Y int
}

// Rect is an axis-aligned rectangle, typically a monitor work area
// (display bounds minus reserved panel/dock space).
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Rect) right() int  { return r.X + r.Width }
func (r Rect) bottom() int { return r.Y + r.Height }

// Place returns the top-left corner for a window of the given size so that
// it opens at the cursor. The window extends right and down by default; each
// axis independently flips to the other side of the cursor when that keeps
// the window inside the work area. When neither orientation fits on an axis,
// that axis is clamped to the work-area edge and may overlap the cursor.
//
// Place is stateless: it is recomputed on every trigger with no memory of
// prior placements.
func Place(cursorX, cursorY, winW, winH int, area Rect) Point {
	return Point{
		X: placeAxis(cursorX, winW, area.X, area.right()),
		Y: placeAxis(cursorY, winH, area.Y, area.bottom()),
	}
}

// placeAxis resolves one axis: default orientation, flipped orientation,
// then clamp.
func placeAxis(cursor, size, lo, hi int) int {
	if cursor+size <= hi {
		return cursor
	}
	if cursor-size >= lo {
		return cursor - size
	}

	// Neither side fits; pin to the nearest edge.
	pos := cursor
	if pos > hi-size {
		pos = hi - size
	}
	if pos < lo {
		pos = lo
	}
	return pos
}
