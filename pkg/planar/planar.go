// Package planar provides the pure coordinate transforms between the
// persisted domain space ([-1,1]², Y inverted) and the display space
// ([0,1]²) used for on-screen pin positioning.
package planar

import "math"

// Point is a position in either coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DomainMin and DomainMax bound the persisted coordinate range.
const (
	DomainMin = -1.0
	DomainMax = 1.0
)

// PaddedMin and PaddedMax bound synthesized display positions so freshly
// placed pins never touch the canvas edges.
const (
	PaddedMin = 0.1
	PaddedMax = 0.9
)

// ClampUnit clamps v to the domain range [-1,1]. Non-finite input coerces
// to the domain midpoint 0.
func ClampUnit(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(DomainMin, math.Min(DomainMax, v))
}

// Clamp01 clamps v to the display range [0,1]. Non-finite input coerces to
// the display midpoint 0.5.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.5
	}
	return math.Max(0, math.Min(1, v))
}

// ToDisplay maps a domain-space position onto the display space. Input is
// clamped to [-1,1] per axis first, so the result is always inside [0,1]².
func ToDisplay(x, y float64) Point {
	return Point{
		X: (ClampUnit(x) + 1) / 2,
		Y: (ClampUnit(y) + 1) / 2,
	}
}

// ToDomain maps a display-space position back onto the domain space. Input
// is clamped to [0,1] per axis first, so the result is always inside [-1,1]².
// ToDomain is the exact inverse of ToDisplay on the closed intervals.
func ToDomain(x, y float64) Point {
	return Point{
		X: Clamp01(x)*2 - 1,
		Y: Clamp01(y)*2 - 1,
	}
}
