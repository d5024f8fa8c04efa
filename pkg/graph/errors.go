package graph

import "errors"

// Errors returned by graph operations.
var (
	// ErrNotFound is returned when a vertex or edge lookup misses.
	ErrNotFound = errors.New("graph: not found")

	// ErrNoSuchVertex is returned by AddEdge when either endpoint does not
	// exist. Edges never create vertices implicitly.
	ErrNoSuchVertex = errors.New("graph: no such vertex")

	// ErrInvalidIdentifier is returned when a graph name, vertex id, or
	// label is empty or contains a reserved character.
	ErrInvalidIdentifier = errors.New("graph: invalid identifier")

	// ErrReservedProperty is returned when a caller tries to set a property
	// whose name begins with the reserved "__" prefix.
	ErrReservedProperty = errors.New("graph: reserved property name")

	// ErrStoreUnavailable is returned when a backing store call failed or
	// the atomic edge-update protocol exhausted its conflict retries.
	ErrStoreUnavailable = errors.New("graph: backing store unavailable")

	// ErrInconsistentState is returned when an adjacency index references an
	// edge record that cannot be read. It signals a partial write that the
	// atomic update protocol should have made impossible.
	ErrInconsistentState = errors.New("graph: inconsistent adjacency state")
)
