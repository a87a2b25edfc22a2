// Package analysis runs link-analysis algorithms over the chart as it
// stands at one date.
package analysis

import (
	"errors"
	"sort"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/store"
)

var (
	ErrUnknownNode = errors.New("node not in graph")
	ErrNoPath      = errors.New("no path between nodes")
)

// Edge is one link between two rendered entity keys.
type Edge struct {
	Link     string
	From     string
	To       string
	Forward  bool
	Backward bool
}

// Graph is an adjacency view of a chart slice. Node keys are the rendered
// keys (Id+TypeId) so results can be fed back into a selection.
type Graph struct {
	nodes  []string
	labels map[string]string
	edges  []Edge
	// adj lists the undirected neighbours of each node, sorted.
	adj map[string][]string
}

// FromSlice builds a graph from the versions current at one date. Links
// with a missing endpoint are skipped.
func FromSlice(s store.Slice) *Graph {
	g := &Graph{labels: make(map[string]string), adj: make(map[string][]string)}
	for _, e := range s.Entities {
		key := e.Key().String()
		if _, dup := g.labels[key]; dup {
			continue
		}
		g.nodes = append(g.nodes, key)
		g.labels[key] = e.Label()
	}
	for _, l := range s.Links {
		from, to := l.FromKey().String(), l.ToKey().String()
		if _, ok := g.labels[from]; !ok {
			continue
		}
		if _, ok := g.labels[to]; !ok {
			continue
		}
		e := Edge{Link: l.Key().String(), From: from, To: to}
		switch l.Direction {
		case chart.DirectionTo:
			e.Forward = true
		case chart.DirectionFrom:
			e.Backward = true
		case chart.DirectionBoth:
			e.Forward, e.Backward = true, true
		}
		g.edges = append(g.edges, e)
		if from != to {
			g.adj[from] = appendUnique(g.adj[from], to)
			g.adj[to] = appendUnique(g.adj[to], from)
		}
	}
	sort.Strings(g.nodes)
	for k := range g.adj {
		sort.Strings(g.adj[k])
	}
	return g
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// Nodes returns the node keys in sorted order.
func (g *Graph) Nodes() []string { return append([]string(nil), g.nodes...) }

// Label returns the chart label of a node.
func (g *Graph) Label(key string) string { return g.labels[key] }

// Neighbours returns the sorted undirected neighbours of key.
func (g *Graph) Neighbours(key string) []string { return g.adj[key] }

func (g *Graph) has(key string) bool {
	_, ok := g.labels[key]
	return ok
}
