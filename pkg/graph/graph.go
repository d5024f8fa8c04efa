// Package graph implements the Yggdrasil graph data model on top of a
// generic key-value store.
//
// A Graph is a named namespace inside a kv.Store holding vertices and
// directed, labeled, weighted edges. The design goal is index-free
// adjacency: every vertex carries its own per-label sets of incident edge
// ids, so walking the neighborhood of a vertex costs its local degree, never
// the size of the graph. There is no global edge index to consult and none
// to rebuild.
//
// Key properties:
//   - Vertices and edges carry open-ended property maps of typed scalars
//   - An edge is identified by its (src, dst, label) triple; re-adding the
//     same triple replaces the previous edge's weight and properties
//   - Every mutation commits through a single store transaction, so readers
//     never observe an edge record without its adjacency entries
//   - Traversals build lazy VertexSet/EdgeSet expressions that only touch
//     the store when enumerated
//
// Example Usage:
//
//	store := kv.NewMemoryStore()
//	defer store.Close()
//
//	g, err := graph.New(store, "pokedex")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	g.AddVertex("Bulbasaur")
//	g.AddVertex("Ivysaur")
//	g.AddEdge("Bulbasaur", "Ivysaur", graph.WithLabel("evolves-into"))
//
//	next, _ := g.V("Bulbasaur").OutV("evolves-into").Members()
//	fmt.Println(next) // [Ivysaur]
//
// A Graph handle holds no state of its own beyond the namespace name; two
// handles with the same name over the same store observe the same graph.
// Operating on a name that has never been used is equivalent to operating on
// an empty graph.
package graph

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/orneryd/yggdrasil/pkg/kv"
)

// Graph is a handle to one named graph inside a backing store.
//
// Thread Safety:
//
//	A Graph is safe for concurrent use. All durability and isolation comes
//	from the backing store's transactions; the handle itself is immutable.
type Graph struct {
	name  string
	store kv.Store
}

// New binds a graph namespace inside store.
//
// The namespace is created implicitly on first write; there is no distinction
// between a new and an extant graph. Returns ErrInvalidIdentifier if name is
// empty or contains a reserved character.
func New(store kv.Store, name string) (*Graph, error) {
	if !validIdent(name, false) {
		return nil, fmt.Errorf("%w: graph name %q", ErrInvalidIdentifier, name)
	}
	return &Graph{name: name, store: store}, nil
}

// Name returns the graph's namespace name.
func (g *Graph) Name() string { return g.name }

// view runs fn read-only and normalizes backing-store failures.
func (g *Graph) view(fn func(kv.Tx) error) error {
	return wrapStoreErr(g.store.View(fn))
}

// update runs fn transactionally and normalizes backing-store failures.
func (g *Graph) update(fn func(kv.Tx) error) error {
	return wrapStoreErr(g.store.Update(fn))
}

// wrapStoreErr folds infrastructure failures into ErrStoreUnavailable while
// letting graph-level errors pass through untouched.
func wrapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNoSuchVertex),
		errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrReservedProperty),
		errors.Is(err, ErrInconsistentState),
		errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// AddVertex creates a vertex, or returns the existing one when id is taken.
//
// Pass an empty id to have the graph allocate one from its monotonic
// counter; a fresh graph hands out "0", "1", "2", ... Allocation and
// registration happen in one transaction, so concurrent callers never
// receive the same id.
//
// Adding a vertex whose id already exists is an idempotent no-op: the
// returned reference addresses the extant vertex and its properties are
// untouched.
func (g *Graph) AddVertex(id string) (*Vertex, error) {
	if id != "" && !validIdent(id, false) {
		return nil, fmt.Errorf("%w: vertex id %q", ErrInvalidIdentifier, id)
	}

	var created string
	err := g.update(func(tx kv.Tx) error {
		// Recomputed on transaction retry; an id handed out by an aborted
		// attempt is simply burned.
		vid := id
		if vid == "" {
			n, err := tx.Incr(counterKey(g.name))
			if err != nil {
				return err
			}
			vid = strconv.FormatInt(n-1, 10)
		}
		if err := tx.SAdd(vertexRegistryKey(g.name), vid); err != nil {
			return err
		}
		created = vid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Vertex{g: g, id: created}, nil
}

// GetVertex returns a reference to an existing vertex.
//
// Returns ErrNotFound if no vertex with that id exists.
func (g *Graph) GetVertex(id string) (*Vertex, error) {
	if !validIdent(id, false) {
		return nil, fmt.Errorf("%w: vertex id %q", ErrInvalidIdentifier, id)
	}

	var exists bool
	err := g.view(func(tx kv.Tx) error {
		var err error
		exists, err = tx.SIsMember(vertexRegistryKey(g.name), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: vertex %q", ErrNotFound, id)
	}
	return &Vertex{g: g, id: id}, nil
}

// HasVertex reports whether a vertex with the given id exists.
func (g *Graph) HasVertex(id string) (bool, error) {
	if !validIdent(id, false) {
		return false, nil
	}
	var exists bool
	err := g.view(func(tx kv.Tx) error {
		var err error
		exists, err = tx.SIsMember(vertexRegistryKey(g.name), id)
		return err
	})
	return exists, err
}

// RemoveVertex deletes a vertex together with every incident edge.
//
// All incident edge records, their adjacency entries on the opposite
// endpoints, and the vertex's own records are removed in one transaction.
// Returns ErrNotFound if the vertex does not exist.
func (g *Graph) RemoveVertex(id string) error {
	if !validIdent(id, false) {
		return fmt.Errorf("%w: vertex id %q", ErrInvalidIdentifier, id)
	}

	return g.update(func(tx kv.Tx) error {
		exists, err := tx.SIsMember(vertexRegistryKey(g.name), id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: vertex %q", ErrNotFound, id)
		}

		for _, dir := range []direction{dirOut, dirIn} {
			labels, err := tx.SMembers(labelRegistryKey(g.name, id, dir))
			if err != nil {
				return err
			}
			for _, label := range labels {
				edgeIDs, err := tx.SMembers(adjacencyKey(g.name, id, dir, label))
				if err != nil {
					return err
				}
				for _, eid := range edgeIDs {
					if err := removeEdgeInTx(tx, g.name, eid); err != nil {
						return err
					}
				}
			}
			if err := tx.Del(labelRegistryKey(g.name, id, dir)); err != nil {
				return err
			}
		}

		if err := tx.Del(vertexPropsKey(g.name, id)); err != nil {
			return err
		}
		return tx.SRem(vertexRegistryKey(g.name), id)
	})
}

// Order returns the number of vertices in the graph.
func (g *Graph) Order() (int, error) {
	var n int
	err := g.view(func(tx kv.Tx) error {
		var err error
		n, err = tx.SCard(vertexRegistryKey(g.name))
		return err
	})
	return n, err
}

// Size returns the number of edges in the graph.
func (g *Graph) Size() (int, error) {
	var n int
	err := g.view(func(tx kv.Tx) error {
		var err error
		n, err = tx.SCard(edgeRegistryKey(g.name))
		return err
	})
	return n, err
}

// V builds a lazy VertexSet from explicit vertex ids.
//
// Construction performs no store access and no existence check; a
// non-existent id simply contributes nothing when the set is traversed.
func (g *Graph) V(ids ...string) *VertexSet {
	return &VertexSet{g: g, expr: idsExpr{ids: ids}}
}

// Vertices returns the lazy set of every vertex in the graph.
func (g *Graph) Vertices() *VertexSet {
	return &VertexSet{g: g, expr: allVerticesExpr{}}
}

// Edges returns the lazy set of every edge in the graph.
func (g *Graph) Edges() *EdgeSet {
	return &EdgeSet{g: g, expr: allEdgesExpr{}}
}
