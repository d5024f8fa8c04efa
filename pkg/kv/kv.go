// Package kv defines the backing key-value store contract for Yggdrasil.
//
// Yggdrasil persists its graph onto a generic key-value service. The graph
// layer never talks to a concrete database; it is written entirely against
// the Store and Tx interfaces in this package. Two implementations ship with
// the repository:
//   - MemoryStore: In-memory storage for testing and small datasets
//   - BadgerStore: Persistent disk-based storage using BadgerDB
//
// The contract is deliberately Redis-shaped. A key holds one of three value
// kinds, distinguished only by which primitives are used against it:
//   - A plain string value (Get/Set/Del, Incr)
//   - A hash of field -> string value (HGet/HSet/HDel/HGetAll)
//   - A set of string members (SAdd/SRem/SMembers/SIsMember/SCard)
//
// All reads and writes happen inside a transaction closure. View runs a
// read-only transaction; Update runs a read-write transaction whose writes
// commit atomically as a unit, or not at all. Update is the equivalent of a
// Redis MULTI/EXEC block and is what the graph layer relies on to keep edge
// records and adjacency indexes consistent with each other.
//
// Example Usage:
//
//	store := kv.NewMemoryStore()
//	defer store.Close()
//
//	err := store.Update(func(tx kv.Tx) error {
//		if err := tx.HSet("user:1:props", "name", "Alice"); err != nil {
//			return err
//		}
//		return tx.SAdd("users", "1")
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var name string
//	store.View(func(tx kv.Tx) error {
//		name, _ = tx.HGet("user:1:props", "name")
//		return nil
//	})
package kv

import "errors"

// Common errors returned by Store implementations.
var (
	// ErrNotFound is returned when a key, hash field, or value is absent.
	ErrNotFound = errors.New("kv: not found")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("kv: store closed")

	// ErrConflict is returned by Update when a transaction could not commit
	// because of concurrent modifications, after the implementation has
	// exhausted its internal retries.
	ErrConflict = errors.New("kv: transaction conflict")

	// ErrReadOnlyTx is returned when a write primitive is invoked inside a
	// View transaction.
	ErrReadOnlyTx = errors.New("kv: read-only transaction")
)

// Tx is the primitive surface available inside a transaction closure.
//
// Implementations are not required to be safe for concurrent use; a Tx is
// only ever used by the goroutine that received it, for the duration of the
// View or Update call that produced it.
//
// Missing data is reported uniformly: Get and HGet return ErrNotFound for an
// absent key or field, SMembers returns an empty slice for an absent set,
// and SIsMember returns false. Write primitives create keys implicitly.
type Tx interface {
	// Get returns the plain string value stored at key.
	Get(key string) (string, error)
	// Set stores a plain string value at key.
	Set(key, value string) error
	// Del removes key and any value kind stored under it.
	Del(key string) error

	// HGet returns the value of field in the hash stored at key.
	HGet(key, field string) (string, error)
	// HSet sets field in the hash stored at key.
	HSet(key, field, value string) error
	// HDel removes field from the hash stored at key. Removing an absent
	// field is not an error.
	HDel(key, field string) error
	// HGetAll returns every field of the hash stored at key. An absent key
	// yields an empty map.
	HGetAll(key string) (map[string]string, error)

	// SAdd adds members to the set stored at key. Adding a member that is
	// already present is a no-op.
	SAdd(key string, members ...string) error
	// SRem removes members from the set stored at key.
	SRem(key string, members ...string) error
	// SMembers returns the members of the set stored at key, sorted.
	SMembers(key string) ([]string, error)
	// SIsMember reports whether member is in the set stored at key.
	SIsMember(key, member string) (bool, error)
	// SCard returns the cardinality of the set stored at key.
	SCard(key string) (int, error)

	// Incr atomically increments the integer stored at key and returns the
	// new value. An absent key counts up from zero, so the first Incr
	// returns 1.
	Incr(key string) (int64, error)
}

// Store is a transactional key-value store.
//
// All Store implementations MUST be safe for concurrent use. Writes made
// inside a single Update call become visible to other transactions all at
// once on commit; View transactions observe a consistent snapshot and never
// see a partially applied Update.
type Store interface {
	// View runs fn in a read-only transaction.
	View(fn func(Tx) error) error

	// Update runs fn in a read-write transaction and commits its writes
	// atomically. Implementations may run fn more than once when optimistic
	// concurrency control detects a conflict, so fn must be idempotent and
	// free of side effects outside the transaction.
	Update(fn func(Tx) error) error

	// Close releases the store's resources. Operations on a closed store
	// return ErrStoreClosed.
	Close() error
}
