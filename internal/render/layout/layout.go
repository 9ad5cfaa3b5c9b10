// Package layout cuts the status canvas into the areas screens draw into.
package layout

import "image"

func normalize(rect image.Rectangle) image.Rectangle {
	if rect.Min.X > rect.Max.X {
		rect.Min.X, rect.Max.X = rect.Max.X, rect.Min.X
	}
	if rect.Min.Y > rect.Max.Y {
		rect.Min.Y, rect.Max.Y = rect.Max.Y, rect.Min.Y
	}
	return rect
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Inset shrinks rect by padding on all sides. A padding larger than half the
// rect collapses it to its centre line instead of inverting it.
func Inset(rect image.Rectangle, padding int) image.Rectangle {
	rect = normalize(rect)
	if padding <= 0 {
		return rect
	}
	px := clamp(padding, 0, rect.Dx()/2)
	py := clamp(padding, 0, rect.Dy()/2)
	return image.Rect(rect.Min.X+px, rect.Min.Y+py, rect.Max.X-px, rect.Max.Y-py)
}

// Columns splits rect at the given fraction of its width (0..1).
func Columns(rect image.Rectangle, fraction float64) (left, right image.Rectangle) {
	rect = normalize(rect)
	cut := rect.Min.X + clamp(int(float64(rect.Dx())*fraction), 0, rect.Dx())
	return image.Rect(rect.Min.X, rect.Min.Y, cut, rect.Max.Y), image.Rect(cut, rect.Min.Y, rect.Max.X, rect.Max.Y)
}

// Rows stacks up to n rows of rowHeight from the top of rect. Rows that would
// overflow the bottom edge are left out.
func Rows(rect image.Rectangle, rowHeight, n int) []image.Rectangle {
	rect = normalize(rect)
	if rowHeight <= 0 || n <= 0 {
		return nil
	}
	rows := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		top := rect.Min.Y + i*rowHeight
		if top+rowHeight > rect.Max.Y {
			break
		}
		rows = append(rows, image.Rect(rect.Min.X, top, rect.Max.X, top+rowHeight))
	}
	return rows
}

// CenterSquare is the largest square inside rect, centred on it.
func CenterSquare(rect image.Rectangle) image.Rectangle {
	rect = normalize(rect)
	size := min(rect.Dx(), rect.Dy())
	x := rect.Min.X + (rect.Dx()-size)/2
	y := rect.Min.Y + (rect.Dy()-size)/2
	return image.Rect(x, y, x+size, y+size)
}
