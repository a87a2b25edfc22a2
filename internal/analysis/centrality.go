package analysis

import "sort"

// Score is a per-node result.
type Score struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	In    int     `json:"in"`
	Out   int     `json:"out"`
}

// Degree counts incident links per node. Parallel links count once each;
// In and Out follow link direction, undirected links count for neither.
// Value is the degree normalised by n-1. Results are ordered by degree
// then key.
func Degree(g *Graph) []Score {
	degree := make(map[string]int, len(g.nodes))
	in := make(map[string]int)
	out := make(map[string]int)
	for _, e := range g.edges {
		degree[e.From]++
		if e.To != e.From {
			degree[e.To]++
		}
		if e.Forward {
			out[e.From]++
			in[e.To]++
		}
		if e.Backward {
			out[e.To]++
			in[e.From]++
		}
	}

	norm := float64(len(g.nodes) - 1)
	scores := make([]Score, 0, len(g.nodes))
	for _, key := range g.nodes {
		s := Score{Key: key, Label: g.labels[key], In: in[key], Out: out[key]}
		if norm > 0 {
			s.Value = float64(degree[key]) / norm
		}
		scores = append(scores, s)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Value > scores[j].Value
	})
	return scores
}
