package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/store"
)

func entity(id string) chart.Entity {
	return chart.Entity{Object: chart.Object{ID: id, TypeID: "p", LabelShort: "label " + id}}
}

func link(id, from, to string, dir chart.Direction) chart.Link {
	return chart.Link{
		Object:       chart.Object{ID: id, TypeID: "k"},
		FromEntityID: from, FromEntityTypeID: "p",
		ToEntityID: to, ToEntityTypeID: "p",
		Direction: dir,
	}
}

// graph builds a graph from "ab" style edge specs over single-letter
// entities. Node keys are the letter followed by "p".
func graph(nodes string, edges ...string) *Graph {
	var s store.Slice
	for _, r := range nodes {
		s.Entities = append(s.Entities, entity(string(r)))
	}
	for i, e := range edges {
		s.Links = append(s.Links, link(string(rune('A'+i)), e[:1], e[1:], chart.DirectionTo))
	}
	return FromSlice(s)
}

func TestFromSliceSkipsDanglingLinks(t *testing.T) {
	g := graph("ab", "ab", "ax")
	assert.Equal(t, []string{"ap", "bp"}, g.Nodes())
	assert.Equal(t, []string{"bp"}, g.Neighbours("ap"))
	assert.Equal(t, "label a", g.Label("ap"))
}

func TestDegree(t *testing.T) {
	g := graph("abcd", "ab", "ac", "ad", "bc")
	scores := Degree(g)
	require.Len(t, scores, 4)
	assert.Equal(t, "ap", scores[0].Key)
	assert.InDelta(t, 1.0, scores[0].Value, 1e-12)
	assert.Equal(t, 3, scores[0].Out)
	assert.Equal(t, 0, scores[0].In)
	assert.Equal(t, "bp", scores[1].Key, "ties are ordered by key")
	assert.Equal(t, "cp", scores[2].Key)
	assert.Equal(t, "dp", scores[3].Key)
	assert.Equal(t, 2, scores[2].In)
}

func TestDegreeDirectionFrom(t *testing.T) {
	s := store.Slice{
		Entities: []chart.Entity{entity("a"), entity("b")},
		Links:    []chart.Link{link("l", "a", "b", chart.DirectionFrom), link("m", "a", "b", chart.DirectionNone)},
	}
	scores := Degree(FromSlice(s))
	for _, sc := range scores {
		if sc.Key == "ap" {
			assert.Equal(t, 1, sc.In)
			assert.Equal(t, 0, sc.Out)
			assert.InDelta(t, 2.0, sc.Value, 1e-12, "parallel links count separately")
		}
	}
}

func TestShortestPath(t *testing.T) {
	g := graph("abcde", "ab", "bc", "cd", "ae", "ed")
	path, err := ShortestPath(g, "ap", "dp")
	require.NoError(t, err)
	assert.Equal(t, []string{"ap", "ep", "dp"}, path)

	path, err = ShortestPath(g, "dp", "ap")
	require.NoError(t, err)
	assert.Len(t, path, 3, "direction is ignored")

	path, err = ShortestPath(g, "cp", "cp")
	require.NoError(t, err)
	assert.Equal(t, []string{"cp"}, path)
}

func TestShortestPathErrors(t *testing.T) {
	g := graph("abc", "ab")
	_, err := ShortestPath(g, "ap", "cp")
	assert.ErrorIs(t, err, ErrNoPath)
	_, err = ShortestPath(g, "ap", "zp")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestReachable(t *testing.T) {
	g := graph("abcd", "ab", "bc", "cd")
	dist, err := Reachable(g, "ap", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ap": 0, "bp": 1, "cp": 2}, dist)
}

func TestCommunitiesSplitsBridgedCliques(t *testing.T) {
	g := graph("abcdefgh",
		"ab", "ac", "ad", "bc", "bd", "cd",
		"ef", "eg", "eh", "fg", "fh", "gh",
		"de",
	)
	c := Communities(g, 0)
	assert.Equal(t, [][]string{
		{"ap", "bp", "cp", "dp"},
		{"ep", "fp", "gp", "hp"},
	}, Groups(c))
}

func TestCommunitiesIsolatedNodes(t *testing.T) {
	g := graph("abc", "ab")
	c := Communities(g, 10)
	assert.Equal(t, c["ap"], c["bp"])
	assert.NotEqual(t, c["ap"], c["cp"])
	assert.Equal(t, 0, c["ap"], "ids start at 0 in key order")
}
