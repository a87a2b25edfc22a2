// Package store holds the authoritative state of one editor session:
// versioned entities and links, annotation shapes and both selection sets.
// All mutation goes through typed commands passed to Apply.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/history"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrShapeMissing = errors.New("shape not found")
	ErrDuplicateGID = errors.New("duplicate version id")
)

// Change describes which parts of the store a command touched.
type Change struct {
	Graph     bool
	Shapes    bool
	Selection bool
}

func (c Change) merge(o Change) Change {
	return Change{
		Graph:     c.Graph || o.Graph,
		Shapes:    c.Shapes || o.Shapes,
		Selection: c.Selection || o.Selection,
	}
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return !c.Graph && !c.Shapes && !c.Selection
}

// Command is a typed mutation of the store.
type Command interface {
	apply(s *Store) (Change, error)
}

// Store is constructed once per editor session.
type Store struct {
	mu sync.RWMutex

	entities    map[chart.Key][]chart.Entity
	links       map[chart.Key][]chart.Link
	entityOrder []chart.Key
	linkOrder   []chart.Key
	byRenderKey map[string]chart.Key

	shapes []chart.Shape

	selectedGraph  map[string]bool
	selectedShapes map[string]bool

	context string
	nextGID int64

	listeners    map[int]func(Change)
	nextListener int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entities:       make(map[chart.Key][]chart.Entity),
		links:          make(map[chart.Key][]chart.Link),
		byRenderKey:    make(map[string]chart.Key),
		selectedGraph:  make(map[string]bool),
		selectedShapes: make(map[string]bool),
		listeners:      make(map[int]func(Change)),
	}
}

// Apply runs the commands in order and notifies subscribers once with the
// combined change. If any command fails the store is rolled back to its
// state before the call and nobody is notified.
func (s *Store) Apply(cmds ...Command) error {
	var total Change
	var err error

	s.mu.Lock()
	saved := s.checkpoint()
	for _, cmd := range cmds {
		var c Change
		c, err = cmd.apply(s)
		total = total.merge(c)
		if err != nil {
			s.swap(saved)
			total = Change{}
			break
		}
	}
	listeners := make([]func(Change), 0, len(s.listeners))
	if !total.Empty() {
		ids := make([]int, 0, len(s.listeners))
		for id := range s.listeners {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			listeners = append(listeners, s.listeners[id])
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(total)
	}
	return err
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Change)) (dispose func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// contents is everything a command may change.
type contents struct {
	entities       map[chart.Key][]chart.Entity
	links          map[chart.Key][]chart.Link
	entityOrder    []chart.Key
	linkOrder      []chart.Key
	byRenderKey    map[string]chart.Key
	shapes         []chart.Shape
	selectedGraph  map[string]bool
	selectedShapes map[string]bool
	context        string
	nextGID        int64
}

func (s *Store) checkpoint() contents {
	c := contents{
		entities:       make(map[chart.Key][]chart.Entity, len(s.entities)),
		links:          make(map[chart.Key][]chart.Link, len(s.links)),
		entityOrder:    append([]chart.Key(nil), s.entityOrder...),
		linkOrder:      append([]chart.Key(nil), s.linkOrder...),
		byRenderKey:    make(map[string]chart.Key, len(s.byRenderKey)),
		shapes:         make([]chart.Shape, 0, len(s.shapes)),
		selectedGraph:  make(map[string]bool, len(s.selectedGraph)),
		selectedShapes: make(map[string]bool, len(s.selectedShapes)),
		context:        s.context,
		nextGID:        s.nextGID,
	}
	for k, v := range s.entities {
		c.entities[k] = append([]chart.Entity(nil), v...)
	}
	for k, v := range s.links {
		c.links[k] = append([]chart.Link(nil), v...)
	}
	for k, v := range s.byRenderKey {
		c.byRenderKey[k] = v
	}
	for _, sh := range s.shapes {
		c.shapes = append(c.shapes, sh.Clone())
	}
	for k := range s.selectedGraph {
		c.selectedGraph[k] = true
	}
	for k := range s.selectedShapes {
		c.selectedShapes[k] = true
	}
	return c
}

func (s *Store) swap(c contents) {
	s.entities = c.entities
	s.links = c.links
	s.entityOrder = c.entityOrder
	s.linkOrder = c.linkOrder
	s.byRenderKey = c.byRenderKey
	s.shapes = c.shapes
	s.selectedGraph = c.selectedGraph
	s.selectedShapes = c.selectedShapes
	s.context = c.context
	s.nextGID = c.nextGID
}

func (s *Store) gid() int64 {
	s.nextGID++
	return s.nextGID
}

// Slice is the current-date projection of the chart.
type Slice struct {
	Date     time.Time
	Entities []chart.Entity
	Links    []chart.Link
}

// Slice resolves every tracked id to its version current at date.
func (s *Store) Slice(date time.Time) Slice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Slice{Date: date}
	for _, k := range s.entityOrder {
		if v, ok := history.Current(s.entities[k], date); ok {
			out.Entities = append(out.Entities, v)
		}
	}
	for _, k := range s.linkOrder {
		if v, ok := history.Current(s.links[k], date); ok {
			out.Links = append(out.Links, v)
		}
	}
	return out
}

// EntityVersions returns a copy of all versions of an entity.
func (s *Store) EntityVersions(k chart.Key) []chart.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chart.Entity(nil), s.entities[k]...)
}

// LinkVersions returns a copy of all versions of a link.
func (s *Store) LinkVersions(k chart.Key) []chart.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chart.Link(nil), s.links[k]...)
}

// Lookup maps a rendered-graph key back to the object key. The second
// result says whether the key belongs to a link.
func (s *Store) Lookup(renderKey string) (chart.Key, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.byRenderKey[renderKey]
	if !ok {
		return chart.Key{}, false, false
	}
	_, isLink := s.links[k]
	return k, isLink, true
}

// Boundaries returns every distinct version bound, for playback.
func (s *Store) Boundaries() []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []history.Versioned
	for _, vs := range s.entities {
		for _, v := range vs {
			all = append(all, v)
		}
	}
	for _, vs := range s.links {
		for _, v := range vs {
			all = append(all, v)
		}
	}
	return history.Boundaries(all)
}

// Shapes returns a copy of the shape list in z-order (back to front).
func (s *Store) Shapes() []chart.Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chart.Shape, len(s.shapes))
	for i, sh := range s.shapes {
		out[i] = sh.Clone()
	}
	return out
}

// Shape returns one shape by id.
func (s *Store) Shape(id string) (chart.Shape, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sh := range s.shapes {
		if sh.ID == id {
			return sh.Clone(), true
		}
	}
	return chart.Shape{}, false
}

// SelectedGraph returns the selected node and link keys, sorted.
func (s *Store) SelectedGraph() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.selectedGraph)
}

// SelectedShapes returns the selected shape ids, sorted.
func (s *Store) SelectedShapes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.selectedShapes)
}

// IsGraphSelected reports whether a node or link is selected.
func (s *Store) IsGraphSelected(renderKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedGraph[renderKey]
}

// IsShapeSelected reports whether a shape is selected.
func (s *Store) IsShapeSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedShapes[id]
}

// Context returns the opaque save context string.
func (s *Store) Context() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context
}

// Snapshot returns the save payload with every version of every object.
func (s *Store) Snapshot() chart.SaveFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := chart.SaveFile{Context: s.context}
	for _, k := range s.entityOrder {
		out.Entities = append(out.Entities, s.entities[k]...)
	}
	for _, k := range s.linkOrder {
		out.Links = append(out.Links, s.links[k]...)
	}
	for _, sh := range s.shapes {
		out.Shapes = append(out.Shapes, sh.Clone())
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) shapeIndex(id string) int {
	for i, sh := range s.shapes {
		if sh.ID == id {
			return i
		}
	}
	return -1
}

func notFound(k chart.Key) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, k.TypeID, k.ID)
}
