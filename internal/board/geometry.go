package board

// Extent is the vertical span of one rendered card, top < bottom.
type Extent struct {
	Top    float64
	Bottom float64
}

// Mid returns the vertical midpoint.
func (e Extent) Mid() float64 {
	return (e.Top + e.Bottom) / 2
}

// ResolveIndex maps a pointer position over a column to an insertion index.
//
// A pointer inside the gap between card i-1 and card i resolves to i. Else
// the first card whose midpoint lies below the pointer gives the index.
// An empty column, or a pointer past the last midpoint, appends.
func ResolveIndex(extents []Extent, pointerY float64) int {
	for i := 1; i < len(extents); i++ {
		if pointerY >= extents[i-1].Bottom && pointerY <= extents[i].Top {
			return i
		}
	}

	for i, ext := range extents {
		if ext.Mid() > pointerY {
			return i
		}
	}

	return len(extents)
}

// StackExtents lays out n cards of equal height separated by gap, starting
// at y=0. Text renderers use it to feed [ResolveIndex] with row numbers.
func StackExtents(n int, height, gap float64) []Extent {
	out := make([]Extent, n)

	top := 0.0
	for i := range out {
		out[i] = Extent{Top: top, Bottom: top + height}
		top += height + gap
	}

	return out
}
