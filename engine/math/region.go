package math

import (
	"sort"
	"strings"
)

// Region is a set of pixels described by pairwise disjoint rectangles.
// The zero value is the empty region.
type Region struct {
	rects []Rect
}

func NewRegion(rects ...Rect) Region {
	var r Region
	for _, rect := range rects {
		r = r.UnitedRect(rect)
	}
	return r
}

// Rects returns the disjoint rectangles of the region sorted top-to-bottom,
// left-to-right.
func (r Region) Rects() []Rect {
	out := append([]Rect(nil), r.rects...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func (r Region) RectCount() int {
	return len(r.rects)
}

func (r Region) IsEmpty() bool {
	return len(r.rects) == 0
}

func (r Region) Area() int64 {
	var a int64
	for _, rect := range r.rects {
		a += rect.Area()
	}
	return a
}

// BoundingRect returns the smallest rect containing the region.
func (r Region) BoundingRect() Rect {
	var b Rect
	for _, rect := range r.rects {
		b = b.United(rect)
	}
	return b
}

func (r Region) UnitedRect(rect Rect) Region {
	if rect.IsEmpty() {
		return r
	}
	pieces := []Rect{rect}
	for _, existing := range r.rects {
		var next []Rect
		for _, p := range pieces {
			next = append(next, p.subtract(existing)...)
		}
		pieces = next
		if len(pieces) == 0 {
			return r
		}
	}
	out := make([]Rect, 0, len(r.rects)+len(pieces))
	out = append(out, r.rects...)
	out = append(out, pieces...)
	return Region{rects: out}
}

func (r Region) United(o Region) Region {
	out := r
	for _, rect := range o.rects {
		out = out.UnitedRect(rect)
	}
	return out
}

func (r Region) IntersectedRect(rect Rect) Region {
	out := make([]Rect, 0, len(r.rects))
	for _, existing := range r.rects {
		if in := existing.Intersected(rect); !in.IsEmpty() {
			out = append(out, in)
		}
	}
	return Region{rects: out}
}

func (r Region) Intersected(o Region) Region {
	var out []Rect
	for _, a := range r.rects {
		for _, b := range o.rects {
			if in := a.Intersected(b); !in.IsEmpty() {
				out = append(out, in)
			}
		}
	}
	return Region{rects: out}
}

func (r Region) SubtractedRect(rect Rect) Region {
	if rect.IsEmpty() {
		return r
	}
	var out []Rect
	for _, existing := range r.rects {
		out = append(out, existing.subtract(rect)...)
	}
	return Region{rects: out}
}

func (r Region) Subtracted(o Region) Region {
	out := r
	for _, rect := range o.rects {
		out = out.SubtractedRect(rect)
	}
	return out
}

func (r Region) Contains(rect Rect) bool {
	return NewRegion(rect).Subtracted(r).IsEmpty()
}

// Equal reports whether both regions cover exactly the same pixels.
func (r Region) Equal(o Region) bool {
	return r.Area() == o.Area() && r.Subtracted(o).IsEmpty()
}

func (r Region) Translated(dx, dy int32) Region {
	out := make([]Rect, len(r.rects))
	for i, rect := range r.rects {
		out[i] = rect.Translated(dx, dy)
	}
	return Region{rects: out}
}

func (r Region) String() string {
	parts := make([]string, 0, len(r.rects))
	for _, rect := range r.Rects() {
		parts = append(parts, rect.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}
