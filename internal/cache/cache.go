// Package cache stores rendered conversion results in BadgerDB, keyed by a
// digest of the inputs that produced them.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Version is mixed into every key so that a format change never serves
// stale output.
const Version = "1"

const prefixResult = "r:"

// Cache is a persistent result cache.
type Cache struct {
	db *badger.DB
	mu sync.Mutex // serializes compute-and-store per cache
}

// Open opens or creates a cache in dir.
func Open(dir string) (*Cache, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a cache that lives only as long as the process.
func OpenInMemory() (*Cache, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Cache, error) {
	db, err := badger.Open(opts.WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the cache key of a computation kind over its inputs. Inputs
// are length-prefixed so ("ab", "c") and ("a", "bc") differ.
func Key(kind string, inputs ...string) []byte {
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	var n [8]byte
	for _, in := range inputs {
		binary.BigEndian.PutUint64(n[:], uint64(len(in)))
		h.Write(n[:])
		h.Write([]byte(in))
	}
	return []byte(prefixResult + kind + ":" + hex.EncodeToString(h.Sum(nil)))
}

// Get returns the value stored under key.
func (c *Cache) Get(key []byte) (value []byte, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}
	return value, true, nil
}

// Put stores value under key.
func (c *Cache) Put(key, value []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// GetOrCompute returns the cached value of key, computing and storing it on
// a miss. hit reports whether the value came from the cache. Failed
// computations are not stored.
func (c *Cache) GetOrCompute(key []byte, compute func() ([]byte, error)) (value []byte, hit bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, ok, err := c.Get(key); err != nil || ok {
		return value, ok, err
	}
	value, err = compute()
	if err != nil {
		return nil, false, err
	}
	if err := c.Put(key, value); err != nil {
		return nil, false, err
	}
	return value, false, nil
}

// Count returns the number of stored results.
func (c *Cache) Count() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixResult)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Purge removes every stored result.
func (c *Cache) Purge() error {
	if err := c.db.DropPrefix([]byte(prefixResult)); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}
