package engine

import (
	"errors"
	"math"

	"github.com/mla/mla/chart-go/internal/chart"
)

const (
	// LineHitDistance is the maximum perpendicular distance, in pixels, for a
	// point to count as on a line.
	LineHitDistance = 10.0
	// LineHitPadding expands a line's bounding box for hit testing.
	LineHitPadding = 5.0
	// HandleSize is the side of the square resize handle, in pixels.
	HandleSize = 8.0
	// MinResize is the smallest width or height a resize can produce.
	MinResize = 10.0
	// MinDraw is the footprint a drawn box must exceed to be kept.
	MinDraw = 5.0
)

// ErrNotLine is returned when line handle math is applied to a box shape.
var ErrNotLine = errors.New("shape is not a line")

// Point is a 2D point in whichever space the caller works in.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Add returns p + o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints returns the normalized rect spanned by two corners.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Contains checks if a point is inside the rect, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersects reports AABB overlap, touching edges included.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.Width && o.X <= r.X+r.Width &&
		r.Y <= o.Y+o.Height && o.Y <= r.Y+r.Height
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Expand grows the rect by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Bounds returns the normalized box of a shape. Lines use their endpoints.
func Bounds(s chart.Shape) Rect {
	if s.IsLine() {
		lp := s.LinePoints
		return RectFromPoints(Point{lp.X1, lp.Y1}, Point{lp.X2, lp.Y2})
	}
	return RectFromPoints(Point{s.X, s.Y}, Point{s.X + s.Width, s.Y + s.Height})
}

// ContainsPoint is the per-type point hit test, in the shape's own space.
func ContainsPoint(s chart.Shape, p Point) bool {
	switch s.Type {
	case chart.ShapeEllipse:
		return pointInEllipse(Bounds(s), p)
	case chart.ShapeLine:
		if !s.IsLine() {
			return false
		}
		lp := s.LinePoints
		return PointNearLine(p, Point{lp.X1, lp.Y1}, Point{lp.X2, lp.Y2})
	default:
		return Bounds(s).Contains(p.X, p.Y)
	}
}

func pointInEllipse(b Rect, p Point) bool {
	rx, ry := b.Width/2, b.Height/2
	if rx <= 0 || ry <= 0 {
		return false
	}
	c := b.Center()
	dx, dy := (p.X-c.X)/rx, (p.Y-c.Y)/ry
	return dx*dx+dy*dy <= 1
}

// PointNearLine requires both a small perpendicular distance to the infinite
// line and that p lies within the segment's padded bounding box.
func PointNearLine(p, a, b Point) bool {
	if !RectFromPoints(a, b).Expand(LineHitPadding).Contains(p.X, p.Y) {
		return false
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y) <= LineHitDistance
	}
	dist := math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
	return dist <= LineHitDistance
}

// ShapeAt returns the index of the top-most shape containing p, or -1.
// Shapes are in z-order, back to front.
func ShapeAt(shapes []chart.Shape, p Point) int {
	for i := len(shapes) - 1; i >= 0; i-- {
		if ContainsPoint(shapes[i], p) {
			return i
		}
	}
	return -1
}

type Handle string

const (
	HandleNone      Handle = ""
	HandleTopLeft   Handle = "tl"
	HandleTopRight  Handle = "tr"
	HandleBotLeft   Handle = "bl"
	HandleBotRight  Handle = "br"
	HandleLineStart Handle = "line-start"
	HandleLineEnd   Handle = "line-end"
)

// IsLineHandle reports whether h belongs to a line endpoint.
func (h Handle) IsLineHandle() bool {
	return h == HandleLineStart || h == HandleLineEnd
}

type handlePos struct {
	handle Handle
	at     Point
}

// handles lists handle positions in hit-test order.
func handles(s chart.Shape) []handlePos {
	if s.IsLine() {
		lp := s.LinePoints
		return []handlePos{
			{HandleLineStart, Point{lp.X1, lp.Y1}},
			{HandleLineEnd, Point{lp.X2, lp.Y2}},
		}
	}
	b := Bounds(s)
	return []handlePos{
		{HandleTopLeft, Point{b.X, b.Y}},
		{HandleTopRight, Point{b.X + b.Width, b.Y}},
		{HandleBotLeft, Point{b.X, b.Y + b.Height}},
		{HandleBotRight, Point{b.X + b.Width, b.Y + b.Height}},
	}
}

// HandleRect returns the square drawn and hit-tested for a handle position.
func HandleRect(at Point) Rect {
	return Rect{X: at.X - HandleSize/2, Y: at.Y - HandleSize/2, Width: HandleSize, Height: HandleSize}
}

// HandleAt returns the first handle of s whose square contains p.
func HandleAt(s chart.Shape, p Point) Handle {
	for _, h := range handles(s) {
		if HandleRect(h.at).Contains(p.X, p.Y) {
			return h.handle
		}
	}
	return HandleNone
}

// IntersectsRect is the marquee test. Ellipses use the point of r closest
// to the ellipse center, which is an approximation.
func IntersectsRect(s chart.Shape, r Rect) bool {
	switch s.Type {
	case chart.ShapeEllipse:
		b := Bounds(s)
		c := b.Center()
		closest := Point{
			X: clamp(c.X, r.X, r.X+r.Width),
			Y: clamp(c.Y, r.Y, r.Y+r.Height),
		}
		if b.Width == 0 || b.Height == 0 {
			return b.Intersects(r)
		}
		return pointInEllipse(b, closest)
	case chart.ShapeLine:
		if !s.IsLine() {
			return false
		}
		lp := s.LinePoints
		return segmentIntersectsRect(Point{lp.X1, lp.Y1}, Point{lp.X2, lp.Y2}, r)
	default:
		return Bounds(s).Intersects(r)
	}
}

func segmentIntersectsRect(a, b Point, r Rect) bool {
	if r.Contains(a.X, a.Y) || r.Contains(b.X, b.Y) {
		return true
	}
	tl := Point{r.X, r.Y}
	tr := Point{r.X + r.Width, r.Y}
	bl := Point{r.X, r.Y + r.Height}
	br := Point{r.X + r.Width, r.Y + r.Height}
	return segmentsIntersect(a, b, tl, tr) ||
		segmentsIntersect(a, b, tr, br) ||
		segmentsIntersect(a, b, br, bl) ||
		segmentsIntersect(a, b, bl, tl)
}

func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(p3, p4, p1)) ||
		(d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) ||
		(d4 == 0 && onSegment(p1, p2, p4))
}

func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, p Point) bool {
	return p.X >= math.Min(a.X, b.X) && p.X <= math.Max(a.X, b.X) &&
		p.Y >= math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y)
}

// Resize returns s resized by dragging handle h to p. The corner opposite
// the handle stays fixed and the box never shrinks below MinResize.
// Coordinates are screen space.
func Resize(s chart.Shape, h Handle, p Point) (chart.Shape, error) {
	out := s.Clone()
	if h.IsLineHandle() {
		if !s.IsLine() {
			return s, ErrNotLine
		}
		lp := out.LinePoints
		if h == HandleLineStart {
			lp.X1, lp.Y1 = p.X, p.Y
		} else {
			lp.X2, lp.Y2 = p.X, p.Y
		}
		b := Bounds(out)
		out.X, out.Y, out.Width, out.Height = b.X, b.Y, b.Width, b.Height
		return out, nil
	}

	b := Bounds(s)
	var fixed Point
	switch h {
	case HandleTopLeft:
		fixed = Point{b.X + b.Width, b.Y + b.Height}
	case HandleTopRight:
		fixed = Point{b.X, b.Y + b.Height}
	case HandleBotLeft:
		fixed = Point{b.X + b.Width, b.Y}
	case HandleBotRight:
		fixed = Point{b.X, b.Y}
	default:
		return s, nil
	}

	w := clampSigned(p.X - fixed.X)
	hgt := clampSigned(p.Y - fixed.Y)
	out.X = math.Min(fixed.X, fixed.X+w)
	out.Y = math.Min(fixed.Y, fixed.Y+hgt)
	out.Width = math.Abs(w)
	out.Height = math.Abs(hgt)
	return out, nil
}

func clampSigned(v float64) float64 {
	if math.Abs(v) >= MinResize {
		return v
	}
	if v < 0 {
		return -MinResize
	}
	return MinResize
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
