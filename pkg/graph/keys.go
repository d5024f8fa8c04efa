package graph

import "strings"

// Key layout (namespace graph, name g):
//
//	graph:{g}:counter                    -> next id source (integer)
//	graph:{g}:vertices                   -> set of vertex ids
//	graph:{g}:edges                      -> set of edge ids
//	graph:{g}:vertex:{id}:props          -> hash of property name -> value
//	graph:{g}:vertex:{id}:out:{label}    -> set of edge ids
//	graph:{g}:vertex:{id}:in:{label}     -> set of edge ids
//	graph:{g}:vertex:{id}:labels:out     -> set of labels with outgoing edges
//	graph:{g}:vertex:{id}:labels:in      -> set of labels with incoming edges
//	graph:{g}:edge:{id}:props            -> hash of property name -> value,
//	                                        plus __src, __dst, __label, __weight
//
// The vertices/edges registry sets and the per-vertex label registries are
// what make existence checks and unlabeled traversal answerable with plain
// set primitives, without any key scanning.

const (
	// keySep joins key components and is forbidden inside identifiers.
	keySep = ":"

	// edgeIDSep joins the (src, dst, label) triple into an edge id and is
	// likewise forbidden inside identifiers.
	edgeIDSep = "/"

	keyRoot = "graph"
)

// Reserved edge-record fields.
const (
	fieldSrc    = "__src"
	fieldDst    = "__dst"
	fieldLabel  = "__label"
	fieldWeight = "__weight"
)

// validIdent reports whether s is usable as a graph name, vertex id, or label.
// The empty string is allowed only where the caller says so (edge labels).
func validIdent(s string, allowEmpty bool) bool {
	if s == "" {
		return allowEmpty
	}
	return !strings.ContainsAny(s, keySep+edgeIDSep)
}

// join builds a backing-store key from parts.
func join(parts ...string) string {
	return strings.Join(parts, keySep)
}

func counterKey(g string) string {
	return join(keyRoot, g, "counter")
}

func vertexRegistryKey(g string) string {
	return join(keyRoot, g, "vertices")
}

func edgeRegistryKey(g string) string {
	return join(keyRoot, g, "edges")
}

func vertexPropsKey(g, id string) string {
	return join(keyRoot, g, "vertex", id, "props")
}

func adjacencyKey(g, id string, dir direction, label string) string {
	return join(keyRoot, g, "vertex", id, string(dir), label)
}

func labelRegistryKey(g, id string, dir direction) string {
	return join(keyRoot, g, "vertex", id, "labels", string(dir))
}

func edgePropsKey(g, id string) string {
	return join(keyRoot, g, "edge", id, "props")
}

// edgeID derives the deterministic edge id from its identifying triple.
// Because identifiers cannot contain the separator, the encoding is
// unambiguous and a same-triple re-add lands on the same record.
func edgeID(src, dst, label string) string {
	return src + edgeIDSep + dst + edgeIDSep + label
}

// splitEdgeID recovers the (src, dst, label) triple from an edge id.
func splitEdgeID(id string) (src, dst, label string, ok bool) {
	parts := strings.SplitN(id, edgeIDSep, 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
