package math

import "fmt"

// Rect is an axis-aligned rectangle in output pixels. Right and Bottom are
// exclusive.
type Rect struct {
	X, Y          int32
	Width, Height int32
}

func NewRect(x, y, w, h int32) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

func (r Rect) Right() int32  { return r.X + r.Width }
func (r Rect) Bottom() int32 { return r.Y + r.Height }

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) Area() int64 {
	if r.IsEmpty() {
		return 0
	}
	return int64(r.Width) * int64(r.Height)
}

// Intersected returns the overlap of r and o, or an empty rect.
func (r Rect) Intersected(o Rect) Rect {
	x1 := Max(r.X, o.X)
	y1 := Max(r.Y, o.Y)
	x2 := Min(r.Right(), o.Right())
	y2 := Min(r.Bottom(), o.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func (r Rect) Intersects(o Rect) bool {
	return !r.Intersected(o).IsEmpty()
}

// United returns the bounding rectangle of r and o.
func (r Rect) United(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	x1 := Min(r.X, o.X)
	y1 := Min(r.Y, o.Y)
	x2 := Max(r.Right(), o.Right())
	y2 := Max(r.Bottom(), o.Bottom())
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func (r Rect) Contains(o Rect) bool {
	if o.IsEmpty() {
		return true
	}
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

func (r Rect) Translated(dx, dy int32) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// subtract returns up to four rects covering r minus o.
func (r Rect) subtract(o Rect) []Rect {
	in := r.Intersected(o)
	if in.IsEmpty() {
		return []Rect{r}
	}
	out := make([]Rect, 0, 4)
	if in.Y > r.Y {
		out = append(out, Rect{X: r.X, Y: r.Y, Width: r.Width, Height: in.Y - r.Y})
	}
	if in.Bottom() < r.Bottom() {
		out = append(out, Rect{X: r.X, Y: in.Bottom(), Width: r.Width, Height: r.Bottom() - in.Bottom()})
	}
	if in.X > r.X {
		out = append(out, Rect{X: r.X, Y: in.Y, Width: in.X - r.X, Height: in.Height})
	}
	if in.Right() < r.Right() {
		out = append(out, Rect{X: in.Right(), Y: in.Y, Width: r.Right() - in.Right(), Height: in.Height})
	}
	return out
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}
