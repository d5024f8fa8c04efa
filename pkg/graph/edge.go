package graph

import (
	"fmt"
	"strconv"

	"github.com/orneryd/yggdrasil/pkg/kv"
)

// defaultWeight is assigned to edges created without WithWeight.
const defaultWeight = 1.0

// Edge is a reference to one directed edge, identified by its
// (src, dst, label) triple.
//
// Like Vertex, an Edge is a stateless reference: weight and property
// accessors read through to the backing store.
type Edge struct {
	g     *Graph
	id    string
	src   string
	dst   string
	label string
}

// Src returns the source vertex id.
func (e *Edge) Src() string { return e.src }

// Dst returns the destination vertex id.
func (e *Edge) Dst() string { return e.dst }

// Label returns the edge label; an unlabeled edge returns "".
func (e *Edge) Label() string { return e.label }

// ID returns the edge's storage id (the encoded triple).
func (e *Edge) ID() string { return e.id }

// String implements fmt.Stringer.
func (e *Edge) String() string {
	if e.label == "" {
		return fmt.Sprintf("Edge(%s->%s)", e.src, e.dst)
	}
	return fmt.Sprintf("Edge(%s-%s->%s)", e.src, e.label, e.dst)
}

// EdgeOption configures AddEdge.
type EdgeOption func(*edgeConfig)

type edgeConfig struct {
	label  string
	weight float64
	props  map[string]Value
}

// WithLabel sets the edge label. Unlabeled edges use the empty label.
func WithLabel(label string) EdgeOption {
	return func(c *edgeConfig) { c.label = label }
}

// WithWeight sets the edge weight. The default is 1.0.
func WithWeight(w float64) EdgeOption {
	return func(c *edgeConfig) { c.weight = w }
}

// WithProperties sets the edge's initial property map.
func WithProperties(props map[string]Value) EdgeOption {
	return func(c *edgeConfig) { c.props = props }
}

// AddEdge creates or replaces the edge from src to dst.
//
// Both endpoints must already exist; referencing an absent vertex fails with
// ErrNoSuchVertex rather than creating it implicitly. At most one edge
// exists per (src, dst, label) triple: re-adding the same triple overwrites
// the previous edge's weight and properties and leaves exactly one
// adjacency-index entry per endpoint per label.
//
// The edge record write and both adjacency-index updates commit as one
// transaction. On stores with optimistic concurrency the transaction is
// retried a bounded number of times before AddEdge fails with
// ErrStoreUnavailable; a partially applied edge is never visible.
//
// Example:
//
//	g.AddEdge("Bulbasaur", "Ivysaur",
//		graph.WithLabel("evolves-into"),
//		graph.WithWeight(16),
//		graph.WithProperties(map[string]graph.Value{
//			"method": graph.String("level-up"),
//		}))
func (g *Graph) AddEdge(src, dst string, opts ...EdgeOption) (*Edge, error) {
	cfg := edgeConfig{weight: defaultWeight}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !validIdent(src, false) {
		return nil, fmt.Errorf("%w: vertex id %q", ErrInvalidIdentifier, src)
	}
	if !validIdent(dst, false) {
		return nil, fmt.Errorf("%w: vertex id %q", ErrInvalidIdentifier, dst)
	}
	if !validIdent(cfg.label, true) {
		return nil, fmt.Errorf("%w: label %q", ErrInvalidIdentifier, cfg.label)
	}
	for name := range cfg.props {
		if err := validPropertyName(name); err != nil {
			return nil, err
		}
	}

	eid := edgeID(src, dst, cfg.label)
	err := g.update(func(tx kv.Tx) error {
		for _, endpoint := range []string{src, dst} {
			exists, err := tx.SIsMember(vertexRegistryKey(g.name), endpoint)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: %q", ErrNoSuchVertex, endpoint)
			}
		}

		// Replacement drops the previous record's properties wholesale.
		propsKey := edgePropsKey(g.name, eid)
		if err := tx.Del(propsKey); err != nil {
			return err
		}

		if err := tx.HSet(propsKey, fieldSrc, src); err != nil {
			return err
		}
		if err := tx.HSet(propsKey, fieldDst, dst); err != nil {
			return err
		}
		if err := tx.HSet(propsKey, fieldLabel, cfg.label); err != nil {
			return err
		}
		if err := tx.HSet(propsKey, fieldWeight, encodeWeight(cfg.weight)); err != nil {
			return err
		}
		for name, value := range cfg.props {
			if err := tx.HSet(propsKey, name, value.encode()); err != nil {
				return err
			}
		}

		// Adjacency entries and registries. SAdd is idempotent, so a
		// replaced edge contributes no duplicates.
		if err := tx.SAdd(adjacencyKey(g.name, src, dirOut, cfg.label), eid); err != nil {
			return err
		}
		if err := tx.SAdd(adjacencyKey(g.name, dst, dirIn, cfg.label), eid); err != nil {
			return err
		}
		if err := tx.SAdd(labelRegistryKey(g.name, src, dirOut), cfg.label); err != nil {
			return err
		}
		if err := tx.SAdd(labelRegistryKey(g.name, dst, dirIn), cfg.label); err != nil {
			return err
		}
		return tx.SAdd(edgeRegistryKey(g.name), eid)
	})
	if err != nil {
		return nil, err
	}
	return &Edge{g: g, id: eid, src: src, dst: dst, label: cfg.label}, nil
}

// GetEdge returns a reference to the edge identified by the triple.
// Pass an empty label for unlabeled edges. Returns ErrNotFound if no such
// edge exists.
func (g *Graph) GetEdge(src, dst, label string) (*Edge, error) {
	if !validIdent(src, false) || !validIdent(dst, false) || !validIdent(label, true) {
		return nil, fmt.Errorf("%w: edge (%q, %q, %q)", ErrInvalidIdentifier, src, dst, label)
	}

	eid := edgeID(src, dst, label)
	var exists bool
	err := g.view(func(tx kv.Tx) error {
		var err error
		exists, err = tx.SIsMember(edgeRegistryKey(g.name), eid)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: edge (%q, %q, %q)", ErrNotFound, src, dst, label)
	}
	return &Edge{g: g, id: eid, src: src, dst: dst, label: label}, nil
}

// RemoveEdge deletes the edge identified by the triple, including both of
// its adjacency entries, in one transaction. Returns ErrNotFound if no such
// edge exists.
func (g *Graph) RemoveEdge(src, dst, label string) error {
	if !validIdent(src, false) || !validIdent(dst, false) || !validIdent(label, true) {
		return fmt.Errorf("%w: edge (%q, %q, %q)", ErrInvalidIdentifier, src, dst, label)
	}

	eid := edgeID(src, dst, label)
	return g.update(func(tx kv.Tx) error {
		exists, err := tx.SIsMember(edgeRegistryKey(g.name), eid)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: edge (%q, %q, %q)", ErrNotFound, src, dst, label)
		}
		return removeEdgeInTx(tx, g.name, eid)
	})
}

// removeEdgeInTx deletes an edge record, its adjacency entries, and any
// label-registry entries left empty, all within the caller's transaction.
func removeEdgeInTx(tx kv.Tx, graphName, eid string) error {
	src, dst, label, ok := splitEdgeID(eid)
	if !ok {
		return fmt.Errorf("%w: malformed edge id %q", ErrInconsistentState, eid)
	}

	if err := tx.Del(edgePropsKey(graphName, eid)); err != nil {
		return err
	}
	if err := tx.SRem(edgeRegistryKey(graphName), eid); err != nil {
		return err
	}

	outKey := adjacencyKey(graphName, src, dirOut, label)
	if err := tx.SRem(outKey, eid); err != nil {
		return err
	}
	if n, err := tx.SCard(outKey); err != nil {
		return err
	} else if n == 0 {
		if err := tx.SRem(labelRegistryKey(graphName, src, dirOut), label); err != nil {
			return err
		}
	}

	inKey := adjacencyKey(graphName, dst, dirIn, label)
	if err := tx.SRem(inKey, eid); err != nil {
		return err
	}
	if n, err := tx.SCard(inKey); err != nil {
		return err
	} else if n == 0 {
		if err := tx.SRem(labelRegistryKey(graphName, dst, dirIn), label); err != nil {
			return err
		}
	}
	return nil
}

// encodeWeight renders a weight for storage.
func encodeWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}

// decodeWeight parses a stored weight.
func decodeWeight(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}

// Weight returns the edge's weight.
func (e *Edge) Weight() (float64, error) {
	var raw string
	err := e.g.view(func(tx kv.Tx) error {
		s, err := tx.HGet(edgePropsKey(e.g.name, e.id), fieldWeight)
		if err == kv.ErrNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, e)
		}
		if err != nil {
			return err
		}
		raw = s
		return nil
	})
	if err != nil {
		return 0, err
	}

	w, err := decodeWeight(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s weight: %v", ErrInconsistentState, e, err)
	}
	return w, nil
}

// SetWeight overwrites the edge's weight, last write wins.
func (e *Edge) SetWeight(w float64) error {
	return e.g.update(func(tx kv.Tx) error {
		exists, err := tx.SIsMember(edgeRegistryKey(e.g.name), e.id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, e)
		}
		return tx.HSet(edgePropsKey(e.g.name, e.id), fieldWeight, encodeWeight(w))
	})
}

// SetProperty writes a property on the edge, last write wins. Reserved
// "__"-prefixed names are rejected.
func (e *Edge) SetProperty(name string, value Value) error {
	if err := validPropertyName(name); err != nil {
		return err
	}
	return e.g.update(func(tx kv.Tx) error {
		exists, err := tx.SIsMember(edgeRegistryKey(e.g.name), e.id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, e)
		}
		return tx.HSet(edgePropsKey(e.g.name, e.id), name, value.encode())
	})
}

// Property reads one property. The second return reports presence: a
// missing property is (zero, false, nil), not an error.
func (e *Edge) Property(name string) (Value, bool, error) {
	if err := validPropertyName(name); err != nil {
		return Value{}, false, err
	}

	var raw string
	var found bool
	err := e.g.view(func(tx kv.Tx) error {
		s, err := tx.HGet(edgePropsKey(e.g.name, e.id), name)
		if err == kv.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, found = s, true
		return nil
	})
	if err != nil || !found {
		return Value{}, false, err
	}

	val, err := decodeValue(raw)
	if err != nil {
		return Value{}, false, fmt.Errorf("%w: %s property %q: %v", ErrInconsistentState, e, name, err)
	}
	return val, true, nil
}

// Properties returns the edge's user properties, excluding the reserved
// __src/__dst/__label/__weight fields.
func (e *Edge) Properties() (map[string]Value, error) {
	var fields map[string]string
	err := e.g.view(func(tx kv.Tx) error {
		var err error
		fields, err = tx.HGetAll(edgePropsKey(e.g.name, e.id))
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]Value, len(fields))
	for name, raw := range fields {
		if name == fieldSrc || name == fieldDst || name == fieldLabel || name == fieldWeight {
			continue
		}
		val, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s property %q: %v", ErrInconsistentState, e, name, err)
		}
		out[name] = val
	}
	return out, nil
}

// InV returns the lazy set holding this edge's destination vertex.
func (e *Edge) InV() *VertexSet {
	return (&EdgeSet{g: e.g, expr: idsExpr{ids: []string{e.id}}}).InV()
}

// OutV returns the lazy set holding this edge's source vertex.
func (e *Edge) OutV() *VertexSet {
	return (&EdgeSet{g: e.g, expr: idsExpr{ids: []string{e.id}}}).OutV()
}
