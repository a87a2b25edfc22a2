package engine

import (
	"math"
	"sort"
	"sync"
)

// NodeAttrs are the rendering attributes of a graph node. Positions are
// graph space; Size is a radius in pixels.
type NodeAttrs struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Size   float64 `json:"size"`
	Label  string  `json:"label,omitempty"`
	Color  string  `json:"color,omitempty"`
	Image  string  `json:"image,omitempty"`
	Hidden bool    `json:"hidden,omitempty"`
}

type EdgeType string

const (
	EdgeStraight EdgeType = "straight"
	EdgeCurved   EdgeType = "curved"
)

// EdgeAttrs are the rendering attributes of a graph edge.
type EdgeAttrs struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	Label         string   `json:"label,omitempty"`
	Color         string   `json:"color,omitempty"`
	Size          float64  `json:"size"`
	Type          EdgeType `json:"type"`
	Arrow         bool     `json:"arrow,omitempty"`
	Curvature     float64  `json:"curvature,omitempty"`
	ParallelIndex int      `json:"parallelIndex"`
	ParallelMax   int      `json:"parallelMaxIndex"`
	Hidden        bool     `json:"hidden,omitempty"`
}

type EventKind string

const (
	EventDownNode      EventKind = "downNode"
	EventDownEdge      EventKind = "downEdge"
	EventDownStage     EventKind = "downStage"
	EventMove          EventKind = "moveBody"
	EventUp            EventKind = "upStage"
	EventRightClick    EventKind = "rightClick"
	EventKeyDown       EventKind = "keyDown"
	EventDocumentClick EventKind = "documentClick"
	EventResize        EventKind = "resize"
	EventAfterRender   EventKind = "afterRender"
)

type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Event is one entry of the surface event stream. Point is in viewport
// pixels.
type Event struct {
	Kind   EventKind
	Key    string
	Point  Point
	Button Button
	Ctrl   bool
	Shift  bool
	Clicks int
	// KeyName is set for keyDown, e.g. "Escape" or "a".
	KeyName string
	// InsideEditor is set for documentClick when the click hit the text editor.
	InsideEditor bool
}

// Surface is the render-surface capability set the interaction machine is
// written against.
type Surface interface {
	Projector

	Camera() Camera
	SetCamera(c Camera)
	Viewport() Viewport
	Size() (w, h float64)

	HasNode(key string) bool
	Node(key string) (NodeAttrs, bool)
	AddNode(key string, a NodeAttrs)
	UpdateNode(key string, fn func(NodeAttrs) NodeAttrs)
	RemoveNode(key string)
	Nodes() []string

	HasEdge(key string) bool
	Edge(key string) (EdgeAttrs, bool)
	AddEdge(key string, a EdgeAttrs)
	UpdateEdge(key string, fn func(EdgeAttrs) EdgeAttrs)
	RemoveEdge(key string)
	Edges() []string

	On(kind EventKind, fn func(Event)) (dispose func())
}

// Stage is the in-memory Surface. It keeps insertion order so that later
// nodes are drawn and picked on top.
type Stage struct {
	width, height float64
	camera        Camera
	frame         Frame

	nodes     map[string]NodeAttrs
	nodeOrder []string
	edges     map[string]EdgeAttrs
	edgeOrder []string

	handlers map[EventKind]map[int]func(Event)
	nextID   int
}

// NewStage creates a stage of the given pixel size.
func NewStage(width, height float64) *Stage {
	return &Stage{
		width:    width,
		height:   height,
		camera:   DefaultCamera(),
		frame:    Frame{MinX: -width / 2, MinY: -height / 2, Extent: math.Max(width, height)},
		nodes:    make(map[string]NodeAttrs),
		edges:    make(map[string]EdgeAttrs),
		handlers: make(map[EventKind]map[int]func(Event)),
	}
}

func (s *Stage) Viewport() Viewport {
	return Viewport{Camera: s.camera, Frame: s.frame, Width: s.width, Height: s.height}
}

func (s *Stage) GraphToViewport(p Point) Point       { return s.Viewport().GraphToViewport(p) }
func (s *Stage) ViewportToGraph(p Point) Point       { return s.Viewport().ViewportToGraph(p) }
func (s *Stage) ViewportToFramedGraph(p Point) Point { return s.Viewport().ViewportToFramedGraph(p) }

func (s *Stage) Camera() Camera     { return s.camera }
func (s *Stage) SetCamera(c Camera) { s.camera = c }

// SetFrame replaces the graph framing, e.g. after fitting to content.
func (s *Stage) SetFrame(f Frame) { s.frame = f }

func (s *Stage) Size() (float64, float64) { return s.width, s.height }

// Resize changes the surface size and emits a resize event.
func (s *Stage) Resize(w, h float64) {
	s.width, s.height = w, h
	s.Emit(Event{Kind: EventResize})
}

func (s *Stage) HasNode(key string) bool {
	_, ok := s.nodes[key]
	return ok
}

func (s *Stage) Node(key string) (NodeAttrs, bool) {
	a, ok := s.nodes[key]
	return a, ok
}

func (s *Stage) AddNode(key string, a NodeAttrs) {
	if _, ok := s.nodes[key]; !ok {
		s.nodeOrder = append(s.nodeOrder, key)
	}
	s.nodes[key] = a
}

func (s *Stage) UpdateNode(key string, fn func(NodeAttrs) NodeAttrs) {
	if a, ok := s.nodes[key]; ok {
		s.nodes[key] = fn(a)
	}
}

func (s *Stage) RemoveNode(key string) {
	if _, ok := s.nodes[key]; !ok {
		return
	}
	delete(s.nodes, key)
	s.nodeOrder = removeString(s.nodeOrder, key)
	for _, ek := range append([]string(nil), s.edgeOrder...) {
		e := s.edges[ek]
		if e.Source == key || e.Target == key {
			s.RemoveEdge(ek)
		}
	}
}

func (s *Stage) Nodes() []string {
	return append([]string(nil), s.nodeOrder...)
}

func (s *Stage) HasEdge(key string) bool {
	_, ok := s.edges[key]
	return ok
}

func (s *Stage) Edge(key string) (EdgeAttrs, bool) {
	a, ok := s.edges[key]
	return a, ok
}

func (s *Stage) AddEdge(key string, a EdgeAttrs) {
	if _, ok := s.edges[key]; !ok {
		s.edgeOrder = append(s.edgeOrder, key)
	}
	s.edges[key] = a
}

func (s *Stage) UpdateEdge(key string, fn func(EdgeAttrs) EdgeAttrs) {
	if a, ok := s.edges[key]; ok {
		s.edges[key] = fn(a)
	}
}

func (s *Stage) RemoveEdge(key string) {
	if _, ok := s.edges[key]; !ok {
		return
	}
	delete(s.edges, key)
	s.edgeOrder = removeString(s.edgeOrder, key)
}

func (s *Stage) Edges() []string {
	return append([]string(nil), s.edgeOrder...)
}

// On subscribes fn to one event kind. The disposer is idempotent.
func (s *Stage) On(kind EventKind, fn func(Event)) func() {
	if s.handlers[kind] == nil {
		s.handlers[kind] = make(map[int]func(Event))
	}
	id := s.nextID
	s.nextID++
	s.handlers[kind][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() { delete(s.handlers[kind], id) })
	}
}

// Listeners returns the number of live handlers, for leak checks.
func (s *Stage) Listeners() int {
	n := 0
	for _, hs := range s.handlers {
		n += len(hs)
	}
	return n
}

// Emit delivers ev to every handler of its kind in subscription order.
func (s *Stage) Emit(ev Event) {
	hs := s.handlers[ev.Kind]
	if len(hs) == 0 {
		return
	}
	ids := make([]int, 0, len(hs))
	for id := range hs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := hs[id]; ok {
			fn(ev)
		}
	}
}

// PointerDown picks the target under p and emits the matching down event.
// A right-button press is emitted as rightClick.
func (s *Stage) PointerDown(ev Event) {
	if ev.Button == ButtonRight {
		ev.Kind = EventRightClick
		s.Emit(ev)
		return
	}
	if key := s.NodeAt(ev.Point); key != "" {
		ev.Kind, ev.Key = EventDownNode, key
	} else if key := s.EdgeAt(ev.Point); key != "" {
		ev.Kind, ev.Key = EventDownEdge, key
	} else {
		ev.Kind = EventDownStage
	}
	s.Emit(ev)
}

// NodeAt returns the top-most visible node whose disc contains the viewport
// point p.
func (s *Stage) NodeAt(p Point) string {
	for i := len(s.nodeOrder) - 1; i >= 0; i-- {
		key := s.nodeOrder[i]
		n := s.nodes[key]
		if n.Hidden {
			continue
		}
		c := s.GraphToViewport(Point{n.X, n.Y})
		if math.Hypot(p.X-c.X, p.Y-c.Y) <= n.Size {
			return key
		}
	}
	return ""
}

// EdgeAt returns the top-most visible edge near the viewport point p.
func (s *Stage) EdgeAt(p Point) string {
	for i := len(s.edgeOrder) - 1; i >= 0; i-- {
		key := s.edgeOrder[i]
		e := s.edges[key]
		if e.Hidden {
			continue
		}
		src, ok1 := s.nodes[e.Source]
		dst, ok2 := s.nodes[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		a := s.GraphToViewport(Point{src.X, src.Y})
		b := s.GraphToViewport(Point{dst.X, dst.Y})
		if PointNearLine(p, a, b) {
			return key
		}
	}
	return ""
}

// GraphBounds returns the graph-space box around all visible nodes.
func (s *Stage) GraphBounds() Rect {
	var r Rect
	first := true
	for _, key := range s.nodeOrder {
		n := s.nodes[key]
		if n.Hidden {
			continue
		}
		if first {
			r = Rect{X: n.X, Y: n.Y}
			first = false
			continue
		}
		minX, minY := math.Min(r.X, n.X), math.Min(r.Y, n.Y)
		maxX, maxY := math.Max(r.X+r.Width, n.X), math.Max(r.Y+r.Height, n.Y)
		r = Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	}
	return r
}

func removeString(in []string, s string) []string {
	out := in[:0]
	for _, v := range in {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
