// Package kv - Persistent Store implementation using BadgerDB.
//
// BadgerStore maps the Redis-shaped primitive contract onto BadgerDB's flat
// keyspace with full ACID transaction support.
package kv

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Value-kind prefixes for BadgerDB keys.
// Using single-byte prefixes for efficiency.
const (
	prefixValue = byte(0x01) // value:key -> string
	prefixHash  = byte(0x02) // hash:key + 0x00 + field -> string
	prefixSet   = byte(0x03) // set:key + 0x00 + member -> empty
)

// keySeparator terminates the logical key inside hash and set entries.
// Logical keys must not contain a NUL byte; the graph layer never produces one.
const keySeparator = byte(0x00)

// defaultMaxRetries bounds the optimistic retry loop in Update.
const defaultMaxRetries = 32

// BadgerStore provides persistent storage using BadgerDB.
//
// Features:
//   - ACID transactions for all operations
//   - Persistent storage to disk
//   - Thread-safe concurrent access
//   - Automatic crash recovery
//
// Key structure:
//   - Plain values: 0x01 + key -> value
//   - Hash fields:  0x02 + key + 0x00 + field -> value
//   - Set members:  0x03 + key + 0x00 + member -> empty
//
// BadgerDB uses serializable snapshot isolation, so two concurrent Update
// transactions touching the same keys conflict at commit time. Update retries
// a bounded number of times with backoff before surfacing ErrConflict.
//
// Example:
//
//	store, err := kv.NewBadgerStore("/path/to/data")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Update(func(tx kv.Tx) error {
//		return tx.Set("greeting", "hello")
//	})
type BadgerStore struct {
	db         *badger.DB
	maxRetries int
	mu         sync.RWMutex // Protects closed
	closed     bool
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	// Slower but more durable.
	SyncWrites bool

	// MaxRetries bounds the Update conflict-retry loop.
	// Zero means the default (32).
	MaxRetries int

	// Logger for BadgerDB internal logging.
	// If nil, BadgerDB logging is disabled.
	Logger badger.Logger
}

// NewBadgerStore creates a persistent store with default settings.
//
// The store keeps all data under dataDir and recovers it on reopen. For
// custom durability or memory settings use NewBadgerStoreWithOptions.
//
// Example:
//
//	store, err := kv.NewBadgerStore("./data/yggdrasil")
//	if err != nil {
//		return fmt.Errorf("open store: %w", err)
//	}
//	defer store.Close()
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerStoreWithOptions creates a BadgerStore with custom configuration.
func NewBadgerStoreWithOptions(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	// Trimmed buffer sizes for containerized environments
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &BadgerStore{db: db, maxRetries: maxRetries}, nil
}

// NewBadgerStoreInMemory creates an in-memory BadgerDB for testing.
//
// Data is not persisted and is lost when the store is closed. Useful for
// tests that need real transaction conflict semantics without disk I/O.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{InMemory: true})
}

// View runs fn in a read-only snapshot transaction.
func (b *BadgerStore) View(fn func(Tx) error) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrStoreClosed
	}
	b.mu.RUnlock()

	return b.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// Update runs fn in a read-write transaction, retrying on commit conflicts.
//
// fn may run multiple times; see the Store contract.
func (b *BadgerStore) Update(fn func(Tx) error) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrStoreClosed
	}
	b.mu.RUnlock()

	var err error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		err = b.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTx{txn: txn})
		})
		if err != badger.ErrConflict {
			return err
		}
		// Brief backoff keeps hot counters from livelocking.
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
	return fmt.Errorf("%w: gave up after %d attempts", ErrConflict, b.maxRetries)
}

// Close releases the underlying BadgerDB handle.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// ============================================================================
// Key encoding helpers
// ============================================================================

// valueKey encodes a plain value key.
func valueKey(key string) []byte {
	return append([]byte{prefixValue}, key...)
}

// fieldKey encodes a hash field or set member entry.
func fieldKey(prefix byte, key, field string) []byte {
	out := make([]byte, 0, 1+len(key)+1+len(field))
	out = append(out, prefix)
	out = append(out, key...)
	out = append(out, keySeparator)
	out = append(out, field...)
	return out
}

// scanPrefix returns the iteration prefix covering every field of key.
func scanPrefix(prefix byte, key string) []byte {
	out := make([]byte, 0, 1+len(key)+1)
	out = append(out, prefix)
	out = append(out, key...)
	out = append(out, keySeparator)
	return out
}

// extractField returns the field or member portion of an encoded entry key.
func extractField(encoded, prefix []byte) string {
	return string(bytes.TrimPrefix(encoded, prefix))
}

// ============================================================================
// Transaction
// ============================================================================

// badgerTx adapts a badger.Txn to the Tx interface.
type badgerTx struct {
	txn *badger.Txn
}

// mapErr translates badger sentinel errors to package errors.
func mapErr(err error) error {
	switch err {
	case badger.ErrKeyNotFound:
		return ErrNotFound
	case badger.ErrReadOnlyTxn:
		return ErrReadOnlyTx
	default:
		return err
	}
}

func (t *badgerTx) getString(encoded []byte) (string, error) {
	item, err := t.txn.Get(encoded)
	if err != nil {
		return "", mapErr(err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (t *badgerTx) Get(key string) (string, error) {
	return t.getString(valueKey(key))
}

func (t *badgerTx) Set(key, value string) error {
	return mapErr(t.txn.Set(valueKey(key), []byte(value)))
}

func (t *badgerTx) Del(key string) error {
	if err := t.txn.Delete(valueKey(key)); err != nil {
		return mapErr(err)
	}
	for _, prefix := range []byte{prefixHash, prefixSet} {
		if err := t.deletePrefix(scanPrefix(prefix, key)); err != nil {
			return err
		}
	}
	return nil
}

// deletePrefix removes every entry under prefix.
func (t *badgerTx) deletePrefix(prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := t.txn.Delete(k); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (t *badgerTx) HGet(key, field string) (string, error) {
	return t.getString(fieldKey(prefixHash, key, field))
}

func (t *badgerTx) HSet(key, field, value string) error {
	return mapErr(t.txn.Set(fieldKey(prefixHash, key, field), []byte(value)))
}

func (t *badgerTx) HDel(key, field string) error {
	return mapErr(t.txn.Delete(fieldKey(prefixHash, key, field)))
}

func (t *badgerTx) HGetAll(key string) (map[string]string, error) {
	prefix := scanPrefix(prefixHash, key)
	out := make(map[string]string)

	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		out[extractField(item.KeyCopy(nil), prefix)] = string(raw)
	}
	return out, nil
}

func (t *badgerTx) SAdd(key string, members ...string) error {
	for _, m := range members {
		if err := t.txn.Set(fieldKey(prefixSet, key, m), nil); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (t *badgerTx) SRem(key string, members ...string) error {
	for _, m := range members {
		if err := t.txn.Delete(fieldKey(prefixSet, key, m)); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (t *badgerTx) SMembers(key string) ([]string, error) {
	prefix := scanPrefix(prefixSet, key)
	var out []string

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		out = append(out, extractField(it.Item().KeyCopy(nil), prefix))
	}
	// Badger iterates in byte order, so members come out already sorted.
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (t *badgerTx) SIsMember(key, member string) (bool, error) {
	_, err := t.txn.Get(fieldKey(prefixSet, key, member))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

func (t *badgerTx) SCard(key string) (int, error) {
	members, err := t.SMembers(key)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

func (t *badgerTx) Incr(key string) (int64, error) {
	var current int64
	raw, err := t.Get(key)
	switch err {
	case nil:
		current, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incr on non-integer value at %q: %w", key, err)
		}
	case ErrNotFound:
		// Absent key counts up from zero.
	default:
		return 0, err
	}
	current++
	if err := t.Set(key, strconv.FormatInt(current, 10)); err != nil {
		return 0, err
	}
	return current, nil
}
