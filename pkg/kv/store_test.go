// Package kv - Contract tests run against every Store implementation.
package kv

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"golang.org/x/sync/errgroup"
)

// storeFactories enumerates the Store implementations under test.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"badger": func(t *testing.T) Store {
			store, err := NewBadgerStoreInMemory()
			if err != nil {
				t.Fatalf("NewBadgerStoreInMemory failed: %v", err)
			}
			return store
		},
	}
}

func TestStore_PlainValues(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			if err := store.View(func(tx Tx) error {
				_, err := tx.Get("missing")
				if err != ErrNotFound {
					t.Errorf("Get on absent key: got %v, want ErrNotFound", err)
				}
				return nil
			}); err != nil {
				t.Fatalf("View failed: %v", err)
			}

			if err := store.Update(func(tx Tx) error {
				return tx.Set("greeting", "hello")
			}); err != nil {
				t.Fatalf("Update failed: %v", err)
			}

			store.View(func(tx Tx) error {
				v, err := tx.Get("greeting")
				if err != nil || v != "hello" {
					t.Errorf("Get = (%q, %v), want (hello, nil)", v, err)
				}
				return nil
			})

			if err := store.Update(func(tx Tx) error {
				return tx.Del("greeting")
			}); err != nil {
				t.Fatalf("Del failed: %v", err)
			}

			store.View(func(tx Tx) error {
				if _, err := tx.Get("greeting"); err != ErrNotFound {
					t.Errorf("Get after Del: got %v, want ErrNotFound", err)
				}
				return nil
			})
		})
	}
}

func TestStore_HashFields(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			err := store.Update(func(tx Tx) error {
				if err := tx.HSet("user:1", "name", "Alice"); err != nil {
					return err
				}
				if err := tx.HSet("user:1", "email", "alice@example.com"); err != nil {
					return err
				}
				// Read-your-writes inside the transaction.
				v, err := tx.HGet("user:1", "name")
				if err != nil || v != "Alice" {
					t.Errorf("in-tx HGet = (%q, %v), want (Alice, nil)", v, err)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}

			store.View(func(tx Tx) error {
				all, err := tx.HGetAll("user:1")
				if err != nil {
					t.Fatalf("HGetAll failed: %v", err)
				}
				want := map[string]string{"name": "Alice", "email": "alice@example.com"}
				if !reflect.DeepEqual(all, want) {
					t.Errorf("HGetAll = %v, want %v", all, want)
				}
				if _, err := tx.HGet("user:1", "missing"); err != ErrNotFound {
					t.Errorf("HGet absent field: got %v, want ErrNotFound", err)
				}
				return nil
			})

			store.Update(func(tx Tx) error {
				return tx.HDel("user:1", "email")
			})

			store.View(func(tx Tx) error {
				all, _ := tx.HGetAll("user:1")
				if len(all) != 1 {
					t.Errorf("after HDel, HGetAll has %d fields, want 1", len(all))
				}
				return nil
			})
		})
	}
}

func TestStore_SetMembers(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			if err := store.Update(func(tx Tx) error {
				if err := tx.SAdd("tags", "b", "a", "c"); err != nil {
					return err
				}
				// Re-adding an existing member is a no-op.
				return tx.SAdd("tags", "a")
			}); err != nil {
				t.Fatalf("Update failed: %v", err)
			}

			store.View(func(tx Tx) error {
				members, err := tx.SMembers("tags")
				if err != nil {
					t.Fatalf("SMembers failed: %v", err)
				}
				if !reflect.DeepEqual(members, []string{"a", "b", "c"}) {
					t.Errorf("SMembers = %v, want [a b c]", members)
				}

				ok, _ := tx.SIsMember("tags", "b")
				if !ok {
					t.Error("SIsMember(tags, b) = false, want true")
				}
				ok, _ = tx.SIsMember("tags", "z")
				if ok {
					t.Error("SIsMember(tags, z) = true, want false")
				}

				n, _ := tx.SCard("tags")
				if n != 3 {
					t.Errorf("SCard = %d, want 3", n)
				}

				empty, _ := tx.SMembers("nope")
				if len(empty) != 0 {
					t.Errorf("SMembers on absent set = %v, want empty", empty)
				}
				return nil
			})

			store.Update(func(tx Tx) error {
				return tx.SRem("tags", "a", "c")
			})

			store.View(func(tx Tx) error {
				members, _ := tx.SMembers("tags")
				if !reflect.DeepEqual(members, []string{"b"}) {
					t.Errorf("after SRem, SMembers = %v, want [b]", members)
				}
				return nil
			})
		})
	}
}

func TestStore_Incr(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			for want := int64(1); want <= 3; want++ {
				var got int64
				err := store.Update(func(tx Tx) error {
					var err error
					got, err = tx.Incr("counter")
					return err
				})
				if err != nil {
					t.Fatalf("Incr failed: %v", err)
				}
				if got != want {
					t.Errorf("Incr = %d, want %d", got, want)
				}
			}
		})
	}
}

func TestStore_IncrConcurrent(t *testing.T) {
	const increments = 100

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			var eg errgroup.Group
			eg.SetLimit(8)
			for i := 0; i < increments; i++ {
				eg.Go(func() error {
					return store.Update(func(tx Tx) error {
						_, err := tx.Incr("counter")
						return err
					})
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatalf("concurrent Incr failed: %v", err)
			}

			store.View(func(tx Tx) error {
				v, err := tx.Get("counter")
				if err != nil {
					t.Fatalf("Get counter failed: %v", err)
				}
				if v != fmt.Sprint(increments) {
					t.Errorf("counter = %s, want %d", v, increments)
				}
				return nil
			})
		})
	}
}

func TestStore_UpdateRollback(t *testing.T) {
	boom := errors.New("boom")

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			err := store.Update(func(tx Tx) error {
				if err := tx.Set("a", "1"); err != nil {
					return err
				}
				if err := tx.SAdd("s", "m"); err != nil {
					return err
				}
				if err := tx.HSet("h", "f", "v"); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("Update = %v, want boom", err)
			}

			store.View(func(tx Tx) error {
				if _, err := tx.Get("a"); err != ErrNotFound {
					t.Error("value write survived a failed transaction")
				}
				if ok, _ := tx.SIsMember("s", "m"); ok {
					t.Error("set write survived a failed transaction")
				}
				if _, err := tx.HGet("h", "f"); err != ErrNotFound {
					t.Error("hash write survived a failed transaction")
				}
				return nil
			})
		})
	}
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			store.View(func(tx Tx) error {
				if err := tx.Set("k", "v"); !errors.Is(err, ErrReadOnlyTx) {
					t.Errorf("Set in View = %v, want ErrReadOnlyTx", err)
				}
				if err := tx.SAdd("s", "m"); !errors.Is(err, ErrReadOnlyTx) {
					t.Errorf("SAdd in View = %v, want ErrReadOnlyTx", err)
				}
				if _, err := tx.Incr("c"); !errors.Is(err, ErrReadOnlyTx) {
					t.Errorf("Incr in View = %v, want ErrReadOnlyTx", err)
				}
				return nil
			})
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			store.Close()

			if err := store.View(func(Tx) error { return nil }); err != ErrStoreClosed {
				t.Errorf("View on closed store = %v, want ErrStoreClosed", err)
			}
			if err := store.Update(func(Tx) error { return nil }); err != ErrStoreClosed {
				t.Errorf("Update on closed store = %v, want ErrStoreClosed", err)
			}
		})
	}
}
