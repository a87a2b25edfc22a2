package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mla/mla/chart-go/internal/chart"
)

func rect(id string, x, y, w, h float64) chart.Shape {
	return chart.Shape{ID: id, Type: chart.ShapeRectangle, X: x, Y: y, Width: w, Height: h, Space: chart.SpaceGraph}
}

func line(id string, x1, y1, x2, y2 float64) chart.Shape {
	s := chart.Shape{ID: id, Type: chart.ShapeLine, Space: chart.SpaceGraph,
		LinePoints: &chart.LinePoints{X1: x1, Y1: y1, X2: x2, Y2: y2}}
	b := Bounds(s)
	s.X, s.Y, s.Width, s.Height = b.X, b.Y, b.Width, b.Height
	return s
}

func TestContainsPoint(t *testing.T) {
	r := rect("r", 10, 10, 20, 20)
	assert.True(t, ContainsPoint(r, Point{10, 10}), "edges are inclusive")
	assert.True(t, ContainsPoint(r, Point{30, 30}))
	assert.False(t, ContainsPoint(r, Point{31, 30}))

	e := r
	e.Type = chart.ShapeEllipse
	assert.True(t, ContainsPoint(e, Point{20, 20}))
	assert.True(t, ContainsPoint(e, Point{30, 20}))
	assert.False(t, ContainsPoint(e, Point{11, 11}), "bounding box corner is outside the ellipse")
}

func TestPointNearLine(t *testing.T) {
	a, b := Point{0, 0}, Point{100, 0}
	assert.True(t, PointNearLine(Point{50, 4}, a, b))
	assert.False(t, PointNearLine(Point{50, 6}, a, b), "outside the padded box of a horizontal line")
	assert.True(t, PointNearLine(Point{104, 0}, a, b), "within the padded box")
	assert.False(t, PointNearLine(Point{200, 0}, a, b), "on the infinite line but past the segment")

	diag := Point{100, 100}
	assert.True(t, PointNearLine(Point{50, 62}, a, diag))
	assert.False(t, PointNearLine(Point{40, 60}, a, diag))
}

func TestShapeAtTopMostWins(t *testing.T) {
	shapes := []chart.Shape{rect("back", 0, 0, 100, 100), rect("front", 50, 50, 100, 100)}
	assert.Equal(t, 1, ShapeAt(shapes, Point{60, 60}))
	assert.Equal(t, 0, ShapeAt(shapes, Point{10, 10}))
	assert.Equal(t, -1, ShapeAt(shapes, Point{500, 500}))
}

func TestHandleAt(t *testing.T) {
	r := rect("r", 0, 0, 100, 50)
	assert.Equal(t, HandleTopLeft, HandleAt(r, Point{3, -3}))
	assert.Equal(t, HandleTopRight, HandleAt(r, Point{100, 0}))
	assert.Equal(t, HandleBotLeft, HandleAt(r, Point{0, 50}))
	assert.Equal(t, HandleBotRight, HandleAt(r, Point{104, 54}))
	assert.Equal(t, HandleNone, HandleAt(r, Point{50, 25}))

	small := rect("s", 0, 0, 4, 4)
	assert.Equal(t, HandleTopLeft, HandleAt(small, Point{2, 2}), "declaration order breaks ties")

	l := line("l", 0, 0, 100, 100)
	assert.Equal(t, HandleLineStart, HandleAt(l, Point{1, 1}))
	assert.Equal(t, HandleLineEnd, HandleAt(l, Point{99, 101}))
}

func TestResizeKeepsOppositeCorner(t *testing.T) {
	s := rect("r", 100, 100, 50, 40)
	s.Space = chart.SpaceScreen
	corners := map[Handle]Point{
		HandleTopLeft:  {150, 140},
		HandleTopRight: {100, 140},
		HandleBotLeft:  {150, 100},
		HandleBotRight: {100, 100},
	}
	pointers := []Point{{200, 200}, {0, 0}, {120, 300}, {151, 139}, {400, 10}}

	for h, fixed := range corners {
		for _, p := range pointers {
			out, err := Resize(s, h, p)
			require.NoError(t, err)
			assert.True(t, out.X == fixed.X || out.X+out.Width == fixed.X, "%s to %v: x", h, p)
			assert.True(t, out.Y == fixed.Y || out.Y+out.Height == fixed.Y, "%s to %v: y", h, p)
			assert.GreaterOrEqual(t, out.Width, MinResize)
			assert.GreaterOrEqual(t, out.Height, MinResize)
		}
	}
}

func TestResizeFlipsAcrossFixedCorner(t *testing.T) {
	s := rect("r", 100, 100, 50, 40)
	out, err := Resize(s, HandleBotRight, Point{80, 70})
	require.NoError(t, err)
	assert.Equal(t, 80.0, out.X)
	assert.Equal(t, 70.0, out.Y)
	assert.Equal(t, 20.0, out.Width)
	assert.Equal(t, 30.0, out.Height)
}

func TestResizeLineHandles(t *testing.T) {
	l := line("l", 0, 0, 10, 10)
	out, err := Resize(l, HandleLineEnd, Point{50, -20})
	require.NoError(t, err)
	assert.Equal(t, chart.LinePoints{X1: 0, Y1: 0, X2: 50, Y2: -20}, *out.LinePoints)
	assert.Equal(t, 10.0, l.LinePoints.X2, "input is not mutated")
	assert.Equal(t, -20.0, out.Y)

	_, err = Resize(rect("r", 0, 0, 10, 10), HandleLineStart, Point{})
	assert.ErrorIs(t, err, ErrNotLine)
}

func TestIntersectsRect(t *testing.T) {
	marquee := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	assert.True(t, IntersectsRect(rect("in", 10, 10, 10, 10), marquee))
	assert.True(t, IntersectsRect(rect("partial", 90, 90, 50, 50), marquee))
	assert.False(t, IntersectsRect(rect("out", 200, 200, 10, 10), marquee))

	e := rect("e", 95, 95, 40, 40)
	e.Type = chart.ShapeEllipse
	assert.False(t, IntersectsRect(e, marquee), "only the ellipse's bounding box corner overlaps")
	e.X, e.Y = 80, 80
	assert.True(t, IntersectsRect(e, marquee))

	assert.True(t, IntersectsRect(line("cross", -10, 50, 110, 50), marquee), "crosses two edges")
	assert.True(t, IntersectsRect(line("inside", 10, 10, 20, 20), marquee))
	assert.False(t, IntersectsRect(line("outside", 150, 0, 150, 100), marquee))
}
