// Package qcache caches result rows keyed by the compiled query that
// produced them. Entries are msgpack-encoded, so cached rows are
// detached from caller-owned slices and portable to external stores.
package qcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores row sets under compiled-query fingerprints.
type Cache interface {
	// Get returns the rows cached under key, if any.
	Get(key string) ([][]any, bool)
	// Put stores rows under key, replacing any existing entry.
	Put(key string, rows [][]any) error
}

// Key fingerprints a compiled query. Identical SQL with identical
// parameters maps to the same key.
func Key(query string, params []any) string {
	h := sha256.New()
	h.Write([]byte(query))
	if encoded, err := msgpack.Marshal(params); err == nil {
		h.Write(encoded)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Memory is an in-process Cache. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

// Get decodes and returns the rows cached under key.
func (m *Memory) Get(key string) ([][]any, bool) {
	m.mu.RLock()
	encoded, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	var rows [][]any
	if err := msgpack.Unmarshal(encoded, &rows); err != nil {
		// A corrupt entry behaves like a miss.
		return nil, false
	}
	return rows, true
}

// Put encodes and stores rows under key.
func (m *Memory) Put(key string, rows [][]any) error {
	encoded, err := msgpack.Marshal(rows)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = encoded
	m.mu.Unlock()
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
