package engine

import "math"

// Camera is the view state in framed-graph space. Ratio > 1 zooms out.
type Camera struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Ratio float64 `json:"ratio"`
	Angle float64 `json:"angle"`
}

// DefaultCamera centers the framed graph at 1:1.
func DefaultCamera() Camera {
	return Camera{X: 0.5, Y: 0.5, Ratio: 1}
}

// Frame maps graph space to the unit square used by the camera.
type Frame struct {
	MinX, MinY float64
	Extent     float64
}

// FrameFor computes a frame around the given graph-space bounds.
func FrameFor(b Rect) Frame {
	extent := math.Max(b.Width, b.Height)
	if extent <= 0 {
		extent = 1
	}
	// Center the shorter axis in the unit square.
	return Frame{
		MinX:   b.X - (extent-b.Width)/2,
		MinY:   b.Y - (extent-b.Height)/2,
		Extent: extent,
	}
}

// Projector converts points between graph, framed-graph and viewport space.
type Projector interface {
	GraphToViewport(p Point) Point
	ViewportToGraph(p Point) Point
	ViewportToFramedGraph(p Point) Point
}

// Viewport is a Projector for a camera looking at a framed graph on a
// surface of the given pixel size.
type Viewport struct {
	Camera Camera
	Frame  Frame
	Width  float64
	Height float64
}

// graphToFramed maps graph space to the unit square.
func (v Viewport) graphToFramed() Matrix2D {
	e := v.Frame.Extent
	if e == 0 {
		e = 1
	}
	return Translate(-v.Frame.MinX, -v.Frame.MinY).Then(Scale(1/e, 1/e))
}

// framedToViewport applies the camera and centers on the surface.
func (v Viewport) framedToViewport() Matrix2D {
	ratio := v.Camera.Ratio
	if ratio <= 0 {
		ratio = 1
	}
	k := math.Min(v.Width, v.Height) / ratio
	return Translate(-v.Camera.X, -v.Camera.Y).Then(
		Rotate(-v.Camera.Angle),
		Scale(k, k),
		Translate(v.Width/2, v.Height/2),
	)
}

// Matrix returns the full graph-to-viewport transform.
func (v Viewport) Matrix() Matrix2D {
	return v.graphToFramed().Then(v.framedToViewport())
}

func (v Viewport) GraphToViewport(p Point) Point {
	return v.Matrix().Apply(p)
}

func (v Viewport) ViewportToGraph(p Point) Point {
	return v.Matrix().Invert().Apply(p)
}

func (v Viewport) ViewportToFramedGraph(p Point) Point {
	return v.framedToViewport().Invert().Apply(p)
}

// Pan returns the camera translated so that the framed-graph point under
// from moves under to. Both points are viewport coordinates measured with
// the receiver's camera.
func (v Viewport) Pan(from, to Point) Camera {
	a := v.ViewportToFramedGraph(from)
	b := v.ViewportToFramedGraph(to)
	c := v.Camera
	c.X += a.X - b.X
	c.Y += a.Y - b.Y
	return c
}

// Zoom returns the camera scaled by factor around the viewport point at,
// keeping that point fixed on screen.
func (v Viewport) Zoom(at Point, factor float64) Camera {
	if factor <= 0 {
		return v.Camera
	}
	before := v.ViewportToFramedGraph(at)
	next := v
	next.Camera.Ratio = v.Camera.Ratio / factor
	after := next.ViewportToFramedGraph(at)
	next.Camera.X += before.X - after.X
	next.Camera.Y += before.Y - after.Y
	return next.Camera
}
