package graph

import (
	"fmt"
	"strings"

	"github.com/orneryd/yggdrasil/pkg/kv"
)

// Vertex is a reference to one vertex in a graph.
//
// The reference itself is stateless: every accessor reads through to the
// backing store, so two references with the same id are interchangeable and
// always observe the same vertex. References remain cheap to copy and safe
// for concurrent use.
//
// Example:
//
//	v, err := g.GetVertex("Bulbasaur")
//	if err != nil {
//		return err
//	}
//	v.SetProperty("number", graph.Int(1))
//
//	if num, ok, _ := v.Property("number"); ok {
//		fmt.Println(num.AsInt())
//	}
type Vertex struct {
	g  *Graph
	id string
}

// ID returns the vertex id, unique within its graph.
func (v *Vertex) ID() string { return v.id }

// String implements fmt.Stringer.
func (v *Vertex) String() string {
	return fmt.Sprintf("Vertex(%s)", v.id)
}

// validPropertyName rejects empty and reserved ("__"-prefixed) names.
func validPropertyName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty property name", ErrInvalidIdentifier)
	}
	if strings.HasPrefix(name, "__") {
		return fmt.Errorf("%w: %q", ErrReservedProperty, name)
	}
	return nil
}

// SetProperty writes a property on the vertex, last write wins.
//
// Returns ErrNotFound if the vertex has been removed since the reference was
// obtained.
func (v *Vertex) SetProperty(name string, value Value) error {
	if err := validPropertyName(name); err != nil {
		return err
	}
	return v.g.update(func(tx kv.Tx) error {
		exists, err := tx.SIsMember(vertexRegistryKey(v.g.name), v.id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: vertex %q", ErrNotFound, v.id)
		}
		return tx.HSet(vertexPropsKey(v.g.name, v.id), name, value.encode())
	})
}

// Property reads one property. The second return reports presence: a
// missing property is (zero, false, nil), not an error.
func (v *Vertex) Property(name string) (Value, bool, error) {
	if err := validPropertyName(name); err != nil {
		return Value{}, false, err
	}

	var raw string
	var found bool
	err := v.g.view(func(tx kv.Tx) error {
		s, err := tx.HGet(vertexPropsKey(v.g.name, v.id), name)
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
		return Value{}, false, fmt.Errorf("%w: vertex %q property %q: %v", ErrInconsistentState, v.id, name, err)
	}
	return val, true, nil
}

// Properties returns every property of the vertex.
func (v *Vertex) Properties() (map[string]Value, error) {
	var fields map[string]string
	err := v.g.view(func(tx kv.Tx) error {
		var err error
		fields, err = tx.HGetAll(vertexPropsKey(v.g.name, v.id))
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]Value, len(fields))
	for name, raw := range fields {
		val, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: vertex %q property %q: %v", ErrInconsistentState, v.id, name, err)
		}
		out[name] = val
	}
	return out, nil
}

// OutE returns the lazy set of edges leaving this vertex, optionally
// filtered by label.
func (v *Vertex) OutE(labels ...string) *EdgeSet {
	return v.g.V(v.id).OutE(labels...)
}

// InE returns the lazy set of edges arriving at this vertex, optionally
// filtered by label.
func (v *Vertex) InE(labels ...string) *EdgeSet {
	return v.g.V(v.id).InE(labels...)
}

// OutV returns the lazy set of vertices reachable over outgoing edges.
func (v *Vertex) OutV(labels ...string) *VertexSet {
	return v.g.V(v.id).OutV(labels...)
}

// InV returns the lazy set of vertices with edges pointing at this vertex.
func (v *Vertex) InV(labels ...string) *VertexSet {
	return v.g.V(v.id).InV(labels...)
}

// OutDegree returns the number of outgoing edges, optionally per label.
func (v *Vertex) OutDegree(labels ...string) (int, error) {
	return v.OutE(labels...).Len()
}

// InDegree returns the number of incoming edges, optionally per label.
func (v *Vertex) InDegree(labels ...string) (int, error) {
	return v.InE(labels...).Len()
}
