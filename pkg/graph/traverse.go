// Package graph - Lazy traversal sets and their resolver.
//
// VertexSet and EdgeSet wrap a small expression tree describing how the set
// is derived: an explicit id list, the whole-graph registries, a union, a
// direction-and-label adjacency step, or an endpoint projection. Building an
// expression never touches the backing store. Enumeration resolves the whole
// tree inside one read-only transaction, so each enumeration observes a
// consistent snapshot of the store at that moment; a later re-enumeration
// resolves again and reflects any intervening writes.
package graph

import (
	"fmt"

	"github.com/orneryd/yggdrasil/pkg/kv"
)

// direction distinguishes the two adjacency indexes of a vertex.
type direction string

const (
	dirOut direction = "out"
	dirIn  direction = "in"
)

// setExpr is a node in a traversal expression tree. The ids it resolves to
// are vertex ids or edge ids depending on where the node sits in the tree.
type setExpr interface {
	isSetExpr()
}

// idsExpr is an explicit base list.
type idsExpr struct{ ids []string }

// allVerticesExpr is the graph's vertex registry.
type allVerticesExpr struct{}

// allEdgesExpr is the graph's edge registry.
type allEdgesExpr struct{}

// unionExpr merges two homogeneous sets.
type unionExpr struct{ left, right setExpr }

// traverseExpr maps a vertex set to the edges incident in one direction,
// optionally restricted to labels.
type traverseExpr struct {
	src    setExpr
	dir    direction
	labels []string
}

// endpointExpr maps an edge set to one of its endpoint vertex sets.
// dirIn selects destinations (in_v), dirOut selects sources (out_v).
type endpointExpr struct {
	src setExpr
	end direction
}

func (idsExpr) isSetExpr()         {}
func (allVerticesExpr) isSetExpr() {}
func (allEdgesExpr) isSetExpr()    {}
func (unionExpr) isSetExpr()       {}
func (traverseExpr) isSetExpr()    {}
func (endpointExpr) isSetExpr()    {}

// resolve evaluates an expression tree to a deduplicated, ordered id list.
// It is the only place traversal semantics live; every set operation above
// merely builds the tree this function walks.
func resolve(g *Graph, tx kv.Tx, expr setExpr) ([]string, error) {
	switch e := expr.(type) {
	case idsExpr:
		return dedupe(e.ids), nil

	case allVerticesExpr:
		return tx.SMembers(vertexRegistryKey(g.name))

	case allEdgesExpr:
		return tx.SMembers(edgeRegistryKey(g.name))

	case unionExpr:
		left, err := resolve(g, tx, e.left)
		if err != nil {
			return nil, err
		}
		right, err := resolve(g, tx, e.right)
		if err != nil {
			return nil, err
		}
		return dedupe(append(left, right...)), nil

	case traverseExpr:
		vertexIDs, err := resolve(g, tx, e.src)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, vid := range vertexIDs {
			labels := e.labels
			if len(labels) == 0 {
				// No filter: every label this vertex has edges under.
				labels, err = tx.SMembers(labelRegistryKey(g.name, vid, e.dir))
				if err != nil {
					return nil, err
				}
			}
			for _, label := range labels {
				edgeIDs, err := tx.SMembers(adjacencyKey(g.name, vid, e.dir, label))
				if err != nil {
					return nil, err
				}
				out = append(out, edgeIDs...)
			}
		}
		return dedupe(out), nil

	case endpointExpr:
		edgeIDs, err := resolve(g, tx, e.src)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, eid := range edgeIDs {
			field := fieldDst
			if e.end == dirOut {
				field = fieldSrc
			}
			vid, err := tx.HGet(edgePropsKey(g.name, eid), field)
			if err == kv.ErrNotFound {
				return nil, fmt.Errorf("%w: edge %q has no readable record", ErrInconsistentState, eid)
			}
			if err != nil {
				return nil, err
			}
			out = append(out, vid)
		}
		return dedupe(out), nil

	default:
		return nil, fmt.Errorf("unknown set expression %T", expr)
	}
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ============================================================================
// VertexSet
// ============================================================================

// VertexSet is a lazily evaluated logical collection of vertices.
//
// Sets are values produced by traversal and set-algebra operations; they are
// never persisted. Chaining operations only grows the expression tree:
//
//	reachable := g.V("Bulbasaur").OutV("evolves-into").OutV("evolves-into")
//
// performs no store access until the set is enumerated with Members, Len,
// IsEmpty, Contains, Vertices, or Iterate. Enumeration is restartable:
// each call re-resolves the expression against the store's current state.
type VertexSet struct {
	g    *Graph
	expr setExpr
}

// OutE returns the edges leaving the set's vertices, optionally filtered
// by label.
func (s *VertexSet) OutE(labels ...string) *EdgeSet {
	return &EdgeSet{g: s.g, expr: traverseExpr{src: s.expr, dir: dirOut, labels: labels}}
}

// InE returns the edges arriving at the set's vertices, optionally filtered
// by label.
func (s *VertexSet) InE(labels ...string) *EdgeSet {
	return &EdgeSet{g: s.g, expr: traverseExpr{src: s.expr, dir: dirIn, labels: labels}}
}

// OutV returns the vertices reachable over outgoing edges. It is defined as
// InV(OutE(labels...)); the two are the same set by construction.
func (s *VertexSet) OutV(labels ...string) *VertexSet {
	return s.OutE(labels...).InV()
}

// InV returns the vertices that reach this set over their outgoing edges.
// It is defined as OutV(InE(labels...)).
func (s *VertexSet) InV(labels ...string) *VertexSet {
	return s.InE(labels...).OutV()
}

// Union returns the set union of s and other. Both sets must come from the
// same graph.
func (s *VertexSet) Union(other *VertexSet) *VertexSet {
	return &VertexSet{g: s.g, expr: unionExpr{left: s.expr, right: other.expr}}
}

// Members enumerates the set, returning vertex ids.
func (s *VertexSet) Members() ([]string, error) {
	var out []string
	err := s.g.view(func(tx kv.Tx) error {
		ids, err := resolve(s.g, tx, s.expr)
		out = ids
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Vertices enumerates the set, returning vertex references.
func (s *VertexSet) Vertices() ([]*Vertex, error) {
	ids, err := s.Members()
	if err != nil {
		return nil, err
	}
	out := make([]*Vertex, len(ids))
	for i, id := range ids {
		out[i] = &Vertex{g: s.g, id: id}
	}
	return out, nil
}

// Len enumerates the set and returns its cardinality.
func (s *VertexSet) Len() (int, error) {
	ids, err := s.Members()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// IsEmpty reports whether the set has no members.
func (s *VertexSet) IsEmpty() (bool, error) {
	n, err := s.Len()
	return n == 0, err
}

// Contains reports whether id is a member of the set.
func (s *VertexSet) Contains(id string) (bool, error) {
	ids, err := s.Members()
	if err != nil {
		return false, err
	}
	for _, member := range ids {
		if member == id {
			return true, nil
		}
	}
	return false, nil
}

// Iterate resolves the set and returns an iterator over its vertices.
// Calling Iterate again re-resolves against the store's current state.
func (s *VertexSet) Iterate() *VertexIterator {
	ids, err := s.Members()
	return &VertexIterator{g: s.g, ids: ids, err: err}
}

// VertexIterator walks a resolved VertexSet.
//
// Usage follows the conventional Next/Err shape:
//
//	it := set.Iterate()
//	defer it.Close()
//	for it.Next() {
//		fmt.Println(it.Vertex().ID())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
type VertexIterator struct {
	g    *Graph
	ids  []string
	pos  int
	cur  *Vertex
	err  error
	done bool
}

// Next advances the iterator. It returns false when the set is exhausted or
// an error occurred; check Err afterwards.
func (it *VertexIterator) Next() bool {
	if it.err != nil || it.done || it.pos >= len(it.ids) {
		return false
	}
	it.cur = &Vertex{g: it.g, id: it.ids[it.pos]}
	it.pos++
	return true
}

// Vertex returns the current vertex reference.
func (it *VertexIterator) Vertex() *Vertex { return it.cur }

// Err returns the error that stopped iteration, if any.
func (it *VertexIterator) Err() error { return it.err }

// Close releases the iterator. It is safe to call more than once.
func (it *VertexIterator) Close() error {
	it.done = true
	return nil
}

// ============================================================================
// EdgeSet
// ============================================================================

// EdgeSet is the lazily evaluated edge counterpart of VertexSet.
type EdgeSet struct {
	g    *Graph
	expr setExpr
}

// InV returns the destination vertices of the set's edges, deduplicated.
func (s *EdgeSet) InV() *VertexSet {
	return &VertexSet{g: s.g, expr: endpointExpr{src: s.expr, end: dirIn}}
}

// OutV returns the source vertices of the set's edges, deduplicated.
func (s *EdgeSet) OutV() *VertexSet {
	return &VertexSet{g: s.g, expr: endpointExpr{src: s.expr, end: dirOut}}
}

// Union returns the set union of s and other. Both sets must come from the
// same graph.
func (s *EdgeSet) Union(other *EdgeSet) *EdgeSet {
	return &EdgeSet{g: s.g, expr: unionExpr{left: s.expr, right: other.expr}}
}

// Members enumerates the set, returning edge ids.
func (s *EdgeSet) Members() ([]string, error) {
	var out []string
	err := s.g.view(func(tx kv.Tx) error {
		ids, err := resolve(s.g, tx, s.expr)
		out = ids
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Edges enumerates the set, returning edge references.
func (s *EdgeSet) Edges() ([]*Edge, error) {
	ids, err := s.Members()
	if err != nil {
		return nil, err
	}
	out := make([]*Edge, len(ids))
	for i, eid := range ids {
		src, dst, label, ok := splitEdgeID(eid)
		if !ok {
			return nil, fmt.Errorf("%w: malformed edge id %q", ErrInconsistentState, eid)
		}
		out[i] = &Edge{g: s.g, id: eid, src: src, dst: dst, label: label}
	}
	return out, nil
}

// Len enumerates the set and returns its cardinality.
func (s *EdgeSet) Len() (int, error) {
	ids, err := s.Members()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// IsEmpty reports whether the set has no members.
func (s *EdgeSet) IsEmpty() (bool, error) {
	n, err := s.Len()
	return n == 0, err
}

// Iterate resolves the set and returns an iterator over its edges.
// Calling Iterate again re-resolves against the store's current state.
func (s *EdgeSet) Iterate() *EdgeIterator {
	edges, err := s.Edges()
	return &EdgeIterator{edges: edges, err: err}
}

// EdgeIterator walks a resolved EdgeSet.
type EdgeIterator struct {
	edges []*Edge
	pos   int
	cur   *Edge
	err   error
	done  bool
}

// Next advances the iterator. It returns false when the set is exhausted or
// an error occurred; check Err afterwards.
func (it *EdgeIterator) Next() bool {
	if it.err != nil || it.done || it.pos >= len(it.edges) {
		return false
	}
	it.cur = it.edges[it.pos]
	it.pos++
	return true
}

// Edge returns the current edge reference.
func (it *EdgeIterator) Edge() *Edge { return it.cur }

// Err returns the error that stopped iteration, if any.
func (it *EdgeIterator) Err() error { return it.err }

// Close releases the iterator. It is safe to call more than once.
func (it *EdgeIterator) Close() error {
	it.done = true
	return nil
}
