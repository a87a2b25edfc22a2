package analysis

import "sort"

// DefaultIterations bounds label propagation.
const DefaultIterations = 50

// Communities detects communities by label propagation. Nodes are visited
// in key order and adopt the label most common among their neighbours
// until nothing changes. A node keeps its label when it is among the most
// common; otherwise the largest tied label wins. Community ids
// are renumbered from 0 in order of their first member's key, so the
// result is deterministic.
func Communities(g *Graph, maxIterations int) map[string]int {
	if maxIterations <= 0 {
		maxIterations = DefaultIterations
	}
	label := make(map[string]int, len(g.nodes))
	for i, key := range g.nodes {
		label[key] = i
	}

	for it := 0; it < maxIterations; it++ {
		changed := false
		for _, key := range g.nodes {
			neighbours := g.adj[key]
			if len(neighbours) == 0 {
				continue
			}
			counts := make(map[int]int)
			for _, n := range neighbours {
				counts[label[n]]++
			}
			top := 0
			for _, c := range counts {
				if c > top {
					top = c
				}
			}
			best := label[key]
			if counts[best] < top {
				best = -1
				for l, c := range counts {
					if c == top && l > best {
						best = l
					}
				}
			}
			if best != label[key] {
				label[key] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	renumber := make(map[int]int)
	out := make(map[string]int, len(label))
	for _, key := range g.nodes {
		l := label[key]
		id, ok := renumber[l]
		if !ok {
			id = len(renumber)
			renumber[l] = id
		}
		out[key] = id
	}
	return out
}

// Groups inverts a community map into sorted member lists.
func Groups(communities map[string]int) [][]string {
	var groups [][]string
	for key, id := range communities {
		for len(groups) <= id {
			groups = append(groups, nil)
		}
		groups[id] = append(groups[id], key)
	}
	for _, g := range groups {
		sort.Strings(g)
	}
	return groups
}
