package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mla/mla/chart-go/internal/chart"
)

func viewports() []Viewport {
	frame := FrameFor(Rect{X: -500, Y: -300, Width: 1000, Height: 600})
	return []Viewport{
		{Camera: DefaultCamera(), Frame: frame, Width: 800, Height: 600},
		{Camera: Camera{X: 0.2, Y: 0.9, Ratio: 0.01}, Frame: frame, Width: 1920, Height: 1080},
		{Camera: Camera{X: 0.5, Y: 0.5, Ratio: 40}, Frame: frame, Width: 320, Height: 480},
		{Camera: Camera{X: 0.7, Y: 0.1, Ratio: 1.5, Angle: math.Pi / 5}, Frame: frame, Width: 1024, Height: 768},
	}
}

func assertShapeEqual(t *testing.T, want, got chart.Shape) {
	t.Helper()
	const eps = 1e-6
	assert.Equal(t, want.Space, got.Space)
	assert.InDelta(t, want.X, got.X, eps)
	assert.InDelta(t, want.Y, got.Y, eps)
	assert.InDelta(t, want.Width, got.Width, eps)
	assert.InDelta(t, want.Height, got.Height, eps)
	if want.LinePoints != nil {
		assert.InDelta(t, want.LinePoints.X1, got.LinePoints.X1, eps)
		assert.InDelta(t, want.LinePoints.Y1, got.LinePoints.Y1, eps)
		assert.InDelta(t, want.LinePoints.X2, got.LinePoints.X2, eps)
		assert.InDelta(t, want.LinePoints.Y2, got.LinePoints.Y2, eps)
	}
}

func TestRoundTrip(t *testing.T) {
	shapes := []chart.Shape{
		rect("r", 12.5, -40, 300, 20),
		line("l", -100, 250, 80, -3),
		{ID: "t", Type: chart.ShapeText, X: 0, Y: 0, Width: 1, Height: 1e-3, Space: chart.SpaceGraph},
	}
	for _, vp := range viewports() {
		for _, s := range shapes {
			screen := ToScreen(s, vp)
			assert.Equal(t, chart.SpaceScreen, screen.Space)
			assertShapeEqual(t, s, ToGraph(screen, vp))
		}
	}
}

func TestTransformPassThrough(t *testing.T) {
	vp := viewports()[1]
	g := rect("r", 1, 2, 3, 4)
	assert.Equal(t, g, ToGraph(g, vp))

	screen := ToScreen(g, vp)
	again := ToScreen(screen, vp)
	assert.Equal(t, screen, again)
}

func TestTransformUsesBothCorners(t *testing.T) {
	vp := viewports()[0]
	s := rect("r", 10, 20, 30, 40)
	screen := ToScreen(s, vp)
	a := vp.GraphToViewport(Point{10, 20})
	b := vp.GraphToViewport(Point{40, 60})
	assert.InDelta(t, a.X, screen.X, 1e-9)
	assert.InDelta(t, b.X-a.X, screen.Width, 1e-9)
	assert.InDelta(t, b.Y-a.Y, screen.Height, 1e-9)
}

func TestTransformDoesNotAliasLinePoints(t *testing.T) {
	vp := viewports()[0]
	l := line("l", 0, 0, 10, 10)
	screen := ToScreen(l, vp)
	screen.LinePoints.X1 = 999
	assert.Equal(t, 0.0, l.LinePoints.X1)
}

func TestViewportPanKeepsPointUnderCursor(t *testing.T) {
	vp := viewports()[3]
	from, to := Point{100, 100}, Point{180, 60}
	grabbed := vp.ViewportToGraph(from)

	vp.Camera = vp.Pan(from, to)
	got := vp.ViewportToGraph(to)
	assert.InDelta(t, grabbed.X, got.X, 1e-6)
	assert.InDelta(t, grabbed.Y, got.Y, 1e-6)
}

func TestViewportZoomKeepsAnchor(t *testing.T) {
	vp := viewports()[0]
	at := Point{200, 150}
	before := vp.ViewportToGraph(at)
	vp.Camera = vp.Zoom(at, 2)
	assert.InDelta(t, 0.5, vp.Camera.Ratio, 1e-12)
	after := vp.ViewportToGraph(at)
	assert.InDelta(t, before.X, after.X, 1e-6)
	assert.InDelta(t, before.Y, after.Y, 1e-6)
}
