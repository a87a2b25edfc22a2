package engine

import (
	"math"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/store"
)

const (
	// CurvatureAmplitude bounds the curvature of a parallel-edge fan.
	CurvatureAmplitude = 3.5
	// DefaultNodeSize is used when neither the entity nor its type sets one.
	DefaultNodeSize = 10.0
	DefaultEdgeSize = 2.0
	DefaultColor    = "#666666"
)

// Catalog supplies per-type views. Missing types use defaults and are shown.
type Catalog interface {
	EntityView(typeID string) (chart.TypeView, bool)
	LinkView(typeID string) (chart.TypeView, bool)
}

// Projection keeps a Surface in sync with the current-date slice of the
// store.
type Projection struct {
	surface Surface
	catalog Catalog
}

// NewProjection creates a projection onto surface. catalog may be nil.
func NewProjection(surface Surface, catalog Catalog) *Projection {
	return &Projection{surface: surface, catalog: catalog}
}

// Sync adds, updates and removes nodes and edges so the surface shows
// exactly the slice. Parallel-edge indices are recomputed when the edge set
// changed.
func (p *Projection) Sync(slice store.Slice) {
	s := p.surface

	live := make(map[string]bool, len(slice.Entities))
	for _, e := range slice.Entities {
		key := e.Key().String()
		live[key] = true
		attrs := p.nodeAttrs(e)
		if s.HasNode(key) {
			s.UpdateNode(key, func(NodeAttrs) NodeAttrs { return attrs })
		} else {
			s.AddNode(key, attrs)
		}
	}
	for _, key := range s.Nodes() {
		if !live[key] {
			s.RemoveNode(key)
		}
	}

	edgesChanged := false
	liveEdges := make(map[string]bool, len(slice.Links))
	for _, l := range slice.Links {
		src, dst := l.FromKey().String(), l.ToKey().String()
		if !live[src] || !live[dst] {
			continue
		}
		key := l.Key().String()
		liveEdges[key] = true
		attrs := p.edgeAttrs(l)
		if prev, ok := s.Edge(key); ok {
			attrs.Type, attrs.Curvature = prev.Type, prev.Curvature
			attrs.ParallelIndex, attrs.ParallelMax = prev.ParallelIndex, prev.ParallelMax
			if prev.Source != attrs.Source || prev.Target != attrs.Target {
				edgesChanged = true
			}
			s.UpdateEdge(key, func(EdgeAttrs) EdgeAttrs { return attrs })
		} else {
			s.AddEdge(key, attrs)
			edgesChanged = true
		}
	}
	for _, key := range s.Edges() {
		if !liveEdges[key] {
			s.RemoveEdge(key)
			edgesChanged = true
		}
	}

	if edgesChanged {
		IndexParallelEdges(s)
	}
}

func (p *Projection) nodeAttrs(e chart.Entity) NodeAttrs {
	view := chart.TypeView{Show: true}
	if p.catalog != nil {
		if v, ok := p.catalog.EntityView(e.TypeID); ok {
			view = v
		}
	}
	a := NodeAttrs{
		X:      e.PosX,
		Y:      e.PosY,
		Size:   DefaultNodeSize,
		Label:  e.Label(),
		Color:  firstNonEmpty(e.Color, view.Color, DefaultColor),
		Image:  view.Icon,
		Hidden: !view.Show,
	}
	if view.Size > 0 {
		a.Size = view.Size
	}
	if e.Size != nil {
		a.Size = *e.Size
	}
	return a
}

func (p *Projection) edgeAttrs(l chart.Link) EdgeAttrs {
	view := chart.TypeView{Show: true}
	if p.catalog != nil {
		if v, ok := p.catalog.LinkView(l.TypeID); ok {
			view = v
		}
	}
	a := EdgeAttrs{
		Source: l.FromKey().String(),
		Target: l.ToKey().String(),
		Label:  l.Label(),
		Color:  firstNonEmpty(l.Color, view.Color, DefaultColor),
		Size:   DefaultEdgeSize,
		Type:   EdgeStraight,
		Hidden: !view.Show,
	}
	switch l.Direction {
	case chart.DirectionTo:
		a.Arrow = true
	case chart.DirectionFrom:
		a.Source, a.Target = a.Target, a.Source
		a.Arrow = true
	}
	if view.Size > 0 {
		a.Size = view.Size
	}
	if l.Size != nil {
		a.Size = *l.Size
	}
	return a
}

// Curvature returns the curvature of parallel index i out of maxIndex.
// The fan approaches the amplitude asymptotically as maxIndex grows.
func Curvature(i, maxIndex int) float64 {
	if maxIndex <= 0 {
		return 0
	}
	m := float64(maxIndex)
	return CurvatureAmplitude * (1 - math.Exp(-m/CurvatureAmplitude)) * float64(i) / m
}

// ParallelIndices spreads n parallel edges over [-n/2 .. n/2]. Zero is
// used only when n is odd.
func ParallelIndices(n int) (indices []int, maxIndex int) {
	if n <= 1 {
		return make([]int, n), 0
	}
	k := n / 2
	indices = make([]int, 0, n)
	for i := -k; i <= k; i++ {
		if i == 0 && n%2 == 0 {
			continue
		}
		indices = append(indices, i)
	}
	return indices, k
}

// IndexParallelEdges assigns parallel indices and curvature to every edge
// of s, grouping edges by unordered endpoint pair.
func IndexParallelEdges(s Surface) {
	type pair struct{ a, b string }
	groups := make(map[pair][]string)
	var order []pair
	for _, key := range s.Edges() {
		e, _ := s.Edge(key)
		pr := pair{e.Source, e.Target}
		if pr.b < pr.a {
			pr.a, pr.b = pr.b, pr.a
		}
		if _, ok := groups[pr]; !ok {
			order = append(order, pr)
		}
		groups[pr] = append(groups[pr], key)
	}

	for _, pr := range order {
		keys := groups[pr]
		indices, maxIndex := ParallelIndices(len(keys))
		for i, key := range keys {
			idx := indices[i]
			s.UpdateEdge(key, func(e EdgeAttrs) EdgeAttrs {
				e.ParallelIndex = idx
				e.ParallelMax = maxIndex
				c := Curvature(idx, maxIndex)
				// Keep the fan on one side regardless of which way the edge points.
				if e.Source != pr.a {
					c = -c
				}
				e.Curvature = c
				if maxIndex > 0 {
					e.Type = EdgeCurved
				} else {
					e.Type = EdgeStraight
				}
				return e
			})
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
