package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTSV(t *testing.T) {
	g, _ := newTestGraph(t)

	input := strings.Join([]string{
		"# small trust network",
		"",
		"alice\tbob",
		"alice\tcarol\tfollows",
		"bob\tcarol\tfollows\t0.5",
		"carol\talice\tfollows\t2",
	}, "\n")

	stats, err := g.LoadTSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Edges)
	assert.Equal(t, int64(2), stats.Skipped)

	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, 3, order)

	size, err := g.Size()
	require.NoError(t, err)
	assert.Equal(t, 4, size)

	// Unlabeled and labeled columns land on distinct edges.
	e, err := g.GetEdge("alice", "bob", "")
	require.NoError(t, err)
	w, err := e.Weight()
	require.NoError(t, err)
	assert.Equal(t, 1.0, w)

	e, err = g.GetEdge("bob", "carol", "follows")
	require.NoError(t, err)
	w, err = e.Weight()
	require.NoError(t, err)
	assert.Equal(t, 0.5, w)

	v, err := g.GetVertex("alice")
	require.NoError(t, err)
	out, err := v.OutDegree()
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	in, err := v.InDegree()
	require.NoError(t, err)
	assert.Equal(t, 1, in)
}

func TestLoadTSV_RepeatedPairs(t *testing.T) {
	g, _ := newTestGraph(t)

	input := "a\tb\tx\t1\na\tb\tx\t3\n"
	stats, err := g.LoadTSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Edges)

	// A repeated triple replaces the record rather than duplicating it.
	size, err := g.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	e, err := g.GetEdge("a", "b", "x")
	require.NoError(t, err)
	w, err := e.Weight()
	require.NoError(t, err)
	assert.Equal(t, 3.0, w)
}

func TestLoadTSV_Malformed(t *testing.T) {
	g, _ := newTestGraph(t)

	_, err := g.LoadTSV(context.Background(), strings.NewReader("loner\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")

	_, err = g.LoadTSV(context.Background(), strings.NewReader("a\tb\tx\theavy\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad weight")
}

func TestLoadTSV_Canceled(t *testing.T) {
	g, _ := newTestGraph(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.LoadTSV(ctx, strings.NewReader("a\tb\n"))
	require.ErrorIs(t, err, context.Canceled)
}
