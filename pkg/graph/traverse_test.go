package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/yggdrasil/pkg/kv"
)

func TestTraversal_EvolutionScenario(t *testing.T) {
	g, _ := newTestGraph(t)

	_, err := g.AddVertex("Bulbasaur")
	require.NoError(t, err)
	_, err = g.AddVertex("Ivysaur")
	require.NoError(t, err)
	_, err = g.AddEdge("Bulbasaur", "Ivysaur", WithLabel("evolves-into"))
	require.NoError(t, err)

	bulbasaur, err := g.GetVertex("Bulbasaur")
	require.NoError(t, err)
	out, err := bulbasaur.OutV().Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ivysaur"}, out)

	ivysaur, err := g.GetVertex("Ivysaur")
	require.NoError(t, err)
	in, err := ivysaur.InV().Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bulbasaur"}, in)
}

func TestTraversal_EmptySet(t *testing.T) {
	g, _ := newTestGraph(t)

	edges, err := g.V().OutE().Members()
	require.NoError(t, err)
	assert.Empty(t, edges)

	empty, err := g.V().InE("any").IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	// Traversing from a vertex that does not exist yields nothing.
	members, err := g.V("ghost").OutV().Members()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestTraversal_LabelFilter(t *testing.T) {
	g, _ := newTestGraph(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddVertex(id)
		require.NoError(t, err)
	}
	_, err := g.AddEdge("a", "b", WithLabel("likes"))
	require.NoError(t, err)
	_, err = g.AddEdge("a", "c", WithLabel("blocks"))
	require.NoError(t, err)
	_, err = g.AddEdge("a", "c")
	require.NoError(t, err)

	likes, err := g.V("a").OutV("likes").Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, likes)

	// No filter covers every label, including the empty one.
	all, err := g.V("a").OutV().Members()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, all)

	// The empty label selects only unlabeled edges.
	unlabeled, err := g.V("a").OutE("").Len()
	require.NoError(t, err)
	assert.Equal(t, 1, unlabeled)

	// Multiple labels union their matches.
	both, err := g.V("a").OutV("likes", "blocks").Members()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, both)
}

func TestTraversal_Identities(t *testing.T) {
	g, _ := newTestGraph(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddVertex(id)
		require.NoError(t, err)
	}
	_, err := g.AddEdge("a", "b", WithLabel("x"))
	require.NoError(t, err)
	_, err = g.AddEdge("c", "a", WithLabel("x"))
	require.NoError(t, err)

	// out_v(S) == in_v(out_e(S)) and in_v(S) == out_v(in_e(S)).
	outV, err := g.V("a").OutV("x").Members()
	require.NoError(t, err)
	composed, err := g.V("a").OutE("x").InV().Members()
	require.NoError(t, err)
	assert.Equal(t, composed, outV)

	inV, err := g.V("a").InV("x").Members()
	require.NoError(t, err)
	composed, err = g.V("a").InE("x").OutV().Members()
	require.NoError(t, err)
	assert.Equal(t, composed, inV)
}

func TestTraversal_Deduplication(t *testing.T) {
	g, _ := newTestGraph(t)
	for _, id := range []string{"a", "b", "hub"} {
		_, err := g.AddVertex(id)
		require.NoError(t, err)
	}
	_, err := g.AddEdge("a", "hub", WithLabel("x"))
	require.NoError(t, err)
	_, err = g.AddEdge("b", "hub", WithLabel("x"))
	require.NoError(t, err)

	// Two edges converge on one vertex; the vertex appears once.
	members, err := g.V("a", "b").OutV("x").Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"hub"}, members)

	// Duplicate base ids collapse too.
	members, err = g.V("a", "a").OutV("x").Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"hub"}, members)
}

func TestTraversal_Union(t *testing.T) {
	g, _ := newTestGraph(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := g.AddVertex(id)
		require.NoError(t, err)
	}
	_, err := g.AddEdge("a", "b", WithLabel("x"))
	require.NoError(t, err)
	_, err = g.AddEdge("c", "d", WithLabel("y"))
	require.NoError(t, err)

	union, err := g.V("a").OutV("x").Union(g.V("c").OutV("y")).Members()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "d"}, union)

	edges, err := g.V("a").OutE("x").Union(g.V("c").OutE("y")).Len()
	require.NoError(t, err)
	assert.Equal(t, 2, edges)
}

func TestTraversal_Lazy(t *testing.T) {
	g, _ := newTestGraph(t)
	_, err := g.AddVertex("a")
	require.NoError(t, err)
	_, err = g.AddVertex("b")
	require.NoError(t, err)

	// Built before the edge exists; nothing is resolved yet.
	set := g.V("a").OutV("x")

	members, err := set.Members()
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = g.AddEdge("a", "b", WithLabel("x"))
	require.NoError(t, err)

	// The same expression reflects the store's state at enumeration time.
	members, err = set.Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestTraversal_RestartableIteration(t *testing.T) {
	g, _ := newTestGraph(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddVertex(id)
		require.NoError(t, err)
	}
	_, err := g.AddEdge("a", "b", WithLabel("x"))
	require.NoError(t, err)
	_, err = g.AddEdge("a", "c", WithLabel("x"))
	require.NoError(t, err)

	set := g.V("a").OutV("x")

	collect := func() []string {
		it := set.Iterate()
		defer it.Close()
		var out []string
		for it.Next() {
			out = append(out, it.Vertex().ID())
		}
		require.NoError(t, it.Err())
		return out
	}

	first := collect()
	second := collect()
	assert.Equal(t, first, second, "re-enumeration without writes must repeat")
	assert.Len(t, first, 2)
}

func TestTraversal_EdgeIterator(t *testing.T) {
	g, _ := newTestGraph(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddVertex(id)
		require.NoError(t, err)
	}
	_, err := g.AddEdge("a", "b", WithLabel("x"), WithWeight(2))
	require.NoError(t, err)
	_, err = g.AddEdge("a", "c", WithLabel("x"), WithWeight(3))
	require.NoError(t, err)

	var total float64
	it := g.V("a").OutE("x").Iterate()
	defer it.Close()
	for it.Next() {
		w, err := it.Edge().Weight()
		require.NoError(t, err)
		total += w
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 5.0, total)
}

func TestTraversal_AllVerticesAndEdges(t *testing.T) {
	g, _ := newTestGraph(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddVertex(id)
		require.NoError(t, err)
	}
	_, err := g.AddEdge("a", "b")
	require.NoError(t, err)

	vertices, err := g.Vertices().Members()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, vertices)

	edges, err := g.Edges().Edges()
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Src())
	assert.Equal(t, "b", edges[0].Dst())

	ok, err := g.Vertices().Contains("b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTraversal_ChainedHops(t *testing.T) {
	g, _ := newTestGraph(t)
	for _, id := range []string{"Bulbasaur", "Ivysaur", "Venusaur"} {
		_, err := g.AddVertex(id)
		require.NoError(t, err)
	}
	_, err := g.AddEdge("Bulbasaur", "Ivysaur", WithLabel("evolves-into"))
	require.NoError(t, err)
	_, err = g.AddEdge("Ivysaur", "Venusaur", WithLabel("evolves-into"))
	require.NoError(t, err)

	final, err := g.V("Bulbasaur").OutV("evolves-into").OutV("evolves-into").Members()
	require.NoError(t, err)
	assert.Equal(t, []string{"Venusaur"}, final)
}

func TestTraversal_InconsistentState(t *testing.T) {
	g, store := newTestGraph(t)
	_, err := g.AddVertex("a")
	require.NoError(t, err)

	// Plant an adjacency entry whose edge record does not exist. AddEdge can
	// never produce this; it simulates a corrupted store.
	err = store.Update(func(tx kv.Tx) error {
		if err := tx.SAdd("graph:testing:vertex:a:out:x", "a/ghost/x"); err != nil {
			return err
		}
		return tx.SAdd("graph:testing:vertex:a:labels:out", "x")
	})
	require.NoError(t, err)

	_, err = g.V("a").OutV("x").Members()
	assert.ErrorIs(t, err, ErrInconsistentState)

	// Enumerating the edges themselves does not dereference records.
	edges, err := g.V("a").OutE("x").Members()
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}
