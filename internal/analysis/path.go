package analysis

import "fmt"

// ShortestPath returns the node keys of an unweighted shortest path from
// one node to another, both included. Link direction is ignored. Among
// paths of equal length the one through lexically smaller keys wins.
func ShortestPath(g *Graph, from, to string) ([]string, error) {
	if !g.has(from) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, from)
	}
	if !g.has(to) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, to)
	}
	if from == to {
		return []string{from}, nil
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adj[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				return walkBack(prev, from, to), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("%w: %q to %q", ErrNoPath, from, to)
}

func walkBack(prev map[string]string, from, to string) []string {
	var rev []string
	for cur := to; cur != from; cur = prev[cur] {
		rev = append(rev, cur)
	}
	rev = append(rev, from)
	path := make([]string, len(rev))
	for i, k := range rev {
		path[len(rev)-1-i] = k
	}
	return path
}

// Reachable returns every node within maxHops of key, with its distance.
func Reachable(g *Graph, key string, maxHops int) (map[string]int, error) {
	if !g.has(key) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, key)
	}
	dist := map[string]int{key: 0}
	queue := []string{key}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if dist[cur] >= maxHops {
			continue
		}
		for _, next := range g.adj[cur] {
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return dist, nil
}
