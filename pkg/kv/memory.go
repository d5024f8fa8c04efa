package kv

import (
	"sort"
	"strconv"
	"sync"
)

// MemoryStore is a thread-safe in-memory Store implementation.
//
// Use Cases:
//   - Unit testing (no disk I/O, fast cleanup)
//   - Development and prototyping
//   - Small graphs that fit entirely in RAM
//
// Concurrency model: a single RWMutex serializes Update transactions, so an
// Update can never observe a conflict and never retries. View transactions
// share the read lock and always see fully committed state.
//
// Performance Characteristics:
//   - Get/Set/HGet/HSet/SIsMember: O(1)
//   - SMembers: O(n log n) in the set size (members are returned sorted)
//   - Memory usage: proportional to stored keys and members
//
// Example:
//
//	store := kv.NewMemoryStore()
//	defer store.Close()
//
//	store.Update(func(tx kv.Tx) error {
//		_, err := tx.Incr("counter")
//		return err
//	})
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
	closed bool
}

// NewMemoryStore creates an empty in-memory store ready for concurrent use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

// View runs fn under the read lock.
func (m *MemoryStore) View(fn func(Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	return fn(&memoryTx{store: m, readOnly: true})
}

// Update runs fn under the write lock. Because updates are fully serialized
// there is no conflict detection and fn runs exactly once.
//
// Rollback semantics: writes are buffered in the transaction and only applied
// to the store maps when fn returns nil, so a failed Update leaves the store
// untouched.
func (m *MemoryStore) Update(fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	tx := &memoryTx{
		store:         m,
		pendingValues: make(map[string]*string),
		pendingHashes: make(map[string]map[string]*string),
		pendingSets:   make(map[string]map[string]bool),
		pendingDels:   make(map[string]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Close marks the store closed. Data is discarded.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.values = nil
	m.hashes = nil
	m.sets = nil
	return nil
}

// memoryTx buffers writes so a failed Update leaves the store untouched.
//
// Pending entries shadow the committed maps: a nil *string marks a pending
// field deletion, a false set-membership marks a pending member removal, and
// presence in pendingDels marks a whole-key deletion. Reads consult the
// pending layer first so the transaction reads its own writes.
type memoryTx struct {
	store    *MemoryStore
	readOnly bool

	pendingValues map[string]*string
	pendingHashes map[string]map[string]*string
	pendingSets   map[string]map[string]bool
	pendingDels   map[string]struct{}
}

func (t *memoryTx) Get(key string) (string, error) {
	if !t.readOnly {
		if v, ok := t.pendingValues[key]; ok {
			if v == nil {
				return "", ErrNotFound
			}
			return *v, nil
		}
		if _, ok := t.pendingDels[key]; ok {
			return "", ErrNotFound
		}
	}
	v, ok := t.store.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (t *memoryTx) Set(key, value string) error {
	if t.readOnly {
		return ErrReadOnlyTx
	}
	t.pendingValues[key] = &value
	return nil
}

func (t *memoryTx) Del(key string) error {
	if t.readOnly {
		return ErrReadOnlyTx
	}
	t.pendingDels[key] = struct{}{}
	delete(t.pendingValues, key)
	delete(t.pendingHashes, key)
	delete(t.pendingSets, key)
	return nil
}

func (t *memoryTx) HGet(key, field string) (string, error) {
	if !t.readOnly {
		if fields, ok := t.pendingHashes[key]; ok {
			if v, ok := fields[field]; ok {
				if v == nil {
					return "", ErrNotFound
				}
				return *v, nil
			}
		}
		if _, ok := t.pendingDels[key]; ok {
			return "", ErrNotFound
		}
	}
	v, ok := t.store.hashes[key][field]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (t *memoryTx) HSet(key, field, value string) error {
	if t.readOnly {
		return ErrReadOnlyTx
	}
	if t.pendingHashes[key] == nil {
		t.pendingHashes[key] = make(map[string]*string)
	}
	t.pendingHashes[key][field] = &value
	return nil
}

func (t *memoryTx) HDel(key, field string) error {
	if t.readOnly {
		return ErrReadOnlyTx
	}
	if t.pendingHashes[key] == nil {
		t.pendingHashes[key] = make(map[string]*string)
	}
	t.pendingHashes[key][field] = nil
	return nil
}

func (t *memoryTx) HGetAll(key string) (map[string]string, error) {
	out := make(map[string]string)
	if t.readOnly {
		for f, v := range t.store.hashes[key] {
			out[f] = v
		}
		return out, nil
	}
	if _, deleted := t.pendingDels[key]; !deleted {
		for f, v := range t.store.hashes[key] {
			out[f] = v
		}
	}
	for f, v := range t.pendingHashes[key] {
		if v == nil {
			delete(out, f)
		} else {
			out[f] = *v
		}
	}
	return out, nil
}

func (t *memoryTx) SAdd(key string, members ...string) error {
	if t.readOnly {
		return ErrReadOnlyTx
	}
	if t.pendingSets[key] == nil {
		t.pendingSets[key] = make(map[string]bool)
	}
	for _, m := range members {
		t.pendingSets[key][m] = true
	}
	return nil
}

func (t *memoryTx) SRem(key string, members ...string) error {
	if t.readOnly {
		return ErrReadOnlyTx
	}
	if t.pendingSets[key] == nil {
		t.pendingSets[key] = make(map[string]bool)
	}
	for _, m := range members {
		t.pendingSets[key][m] = false
	}
	return nil
}

// members resolves the effective set at key, merging pending writes.
func (t *memoryTx) members(key string) map[string]struct{} {
	out := make(map[string]struct{})
	if t.readOnly {
		for m := range t.store.sets[key] {
			out[m] = struct{}{}
		}
		return out
	}
	if _, deleted := t.pendingDels[key]; !deleted {
		for m := range t.store.sets[key] {
			out[m] = struct{}{}
		}
	}
	for m, present := range t.pendingSets[key] {
		if present {
			out[m] = struct{}{}
		} else {
			delete(out, m)
		}
	}
	return out
}

func (t *memoryTx) SMembers(key string) ([]string, error) {
	set := t.members(key)
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (t *memoryTx) SIsMember(key, member string) (bool, error) {
	if !t.readOnly {
		if present, ok := t.pendingSets[key][member]; ok {
			return present, nil
		}
		if _, ok := t.pendingDels[key]; ok {
			return false, nil
		}
	}
	_, ok := t.store.sets[key][member]
	return ok, nil
}

func (t *memoryTx) SCard(key string) (int, error) {
	return len(t.members(key)), nil
}

func (t *memoryTx) Incr(key string) (int64, error) {
	if t.readOnly {
		return 0, ErrReadOnlyTx
	}
	var current int64
	if raw, err := t.Get(key); err == nil {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}
	current++
	if err := t.Set(key, strconv.FormatInt(current, 10)); err != nil {
		return 0, err
	}
	return current, nil
}

// commit applies buffered writes to the store maps. Caller holds the write lock.
func (t *memoryTx) commit() {
	for key := range t.pendingDels {
		delete(t.store.values, key)
		delete(t.store.hashes, key)
		delete(t.store.sets, key)
	}
	for key, v := range t.pendingValues {
		if v == nil {
			delete(t.store.values, key)
			continue
		}
		t.store.values[key] = *v
	}
	for key, fields := range t.pendingHashes {
		for f, v := range fields {
			if v == nil {
				delete(t.store.hashes[key], f)
				if len(t.store.hashes[key]) == 0 {
					delete(t.store.hashes, key)
				}
				continue
			}
			if t.store.hashes[key] == nil {
				t.store.hashes[key] = make(map[string]string)
			}
			t.store.hashes[key][f] = *v
		}
	}
	for key, memberships := range t.pendingSets {
		for m, present := range memberships {
			if !present {
				delete(t.store.sets[key], m)
				if len(t.store.sets[key]) == 0 {
					delete(t.store.sets, key)
				}
				continue
			}
			if t.store.sets[key] == nil {
				t.store.sets[key] = make(map[string]struct{})
			}
			t.store.sets[key][m] = struct{}{}
		}
	}
}
