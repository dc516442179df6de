package element

import (
	"math"

	"github.com/tutorcast/api/internal/model"
)

// Normalize converts a pixel bounding box into percent of the viewport.
// The result is clamped to the viewport.
func Normalize(box model.BoundingBox, vp model.Viewport) model.Position {
	if vp.Width <= 0 || vp.Height <= 0 {
		return model.Position{}
	}
	p := model.Position{
		X:      box.X / vp.Width * 100,
		Y:      box.Y / vp.Height * 100,
		Width:  box.Width / vp.Width * 100,
		Height: box.Height / vp.Height * 100,
	}
	p, _ = Clamp(p)
	return round(p)
}

// Clamp forces a rectangle inside 0-100 on both axes. It reports whether
// anything had to change.
func Clamp(p model.Position) (model.Position, bool) {
	in := p
	p.X, p.Width = clampAxis(p.X, p.Width)
	p.Y, p.Height = clampAxis(p.Y, p.Height)
	return p, p != in
}

func clampAxis(start, size float64) (float64, float64) {
	if math.IsNaN(start) || math.IsInf(start, 0) {
		start = 0
	}
	if math.IsNaN(size) || math.IsInf(size, 0) || size < 0 {
		size = 0
	}
	start = math.Min(math.Max(start, 0), 100)
	if start+size > 100 {
		size = 100 - start
	}
	return start, size
}

// round keeps two decimals so documents stay diffable
func round(p model.Position) model.Position {
	r := func(v float64) float64 { return math.Round(v*100) / 100 }
	return model.Position{X: r(p.X), Y: r(p.Y), Width: r(p.Width), Height: r(p.Height)}
}

// TolerancePercent converts a pixel tolerance into percent on each axis of vp.
func TolerancePercent(px float64, vp model.Viewport) (dx, dy float64) {
	if vp.Width <= 0 || vp.Height <= 0 || px <= 0 {
		return 0, 0
	}
	return px / vp.Width * 100, px / vp.Height * 100
}

// Contains reports whether (x, y) falls inside p grown by (dx, dy).
// Boundaries count as inside.
func Contains(p model.Position, dx, dy, x, y float64) bool {
	return x >= p.X-dx && x <= p.X+p.Width+dx &&
		y >= p.Y-dy && y <= p.Y+p.Height+dy
}
