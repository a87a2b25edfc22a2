package engine

import "github.com/mla/mla/chart-go/internal/chart"

// ToScreen converts a graph-space shape to screen space. Both defining
// corners (or both line endpoints) are projected independently and the
// size is derived from them. A screen-space shape is returned unchanged.
func ToScreen(s chart.Shape, p Projector) chart.Shape {
	if s.Space == chart.SpaceScreen {
		return s.Clone()
	}
	out := convert(s, p.GraphToViewport)
	out.Space = chart.SpaceScreen
	return out
}

// ToGraph is the inverse of ToScreen. A graph-space shape is returned
// unchanged.
func ToGraph(s chart.Shape, p Projector) chart.Shape {
	if s.Space == chart.SpaceGraph {
		return s.Clone()
	}
	out := convert(s, p.ViewportToGraph)
	out.Space = chart.SpaceGraph
	return out
}

func convert(s chart.Shape, f func(Point) Point) chart.Shape {
	out := s.Clone()
	a := f(Point{s.X, s.Y})
	b := f(Point{s.X + s.Width, s.Y + s.Height})
	out.X, out.Y = a.X, a.Y
	out.Width, out.Height = b.X-a.X, b.Y-a.Y
	if out.LinePoints != nil {
		lp := out.LinePoints
		p1 := f(Point{lp.X1, lp.Y1})
		p2 := f(Point{lp.X2, lp.Y2})
		lp.X1, lp.Y1, lp.X2, lp.Y2 = p1.X, p1.Y, p2.X, p2.Y
	}
	return out
}
