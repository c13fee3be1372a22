package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Key identifies a cached query result: the query name plus its serialized
// parameters.
type Key struct {
	Query  string
	Params string
}

// NewKey builds a key from a query name and a parameter value.
// Params are serialized as JSON; struct fields keep declaration order and map
// keys are sorted, so equal parameter sets produce equal keys.
func NewKey(query string, params any) Key {
	if params == nil {
		return Key{Query: query, Params: "{}"}
	}
	data, err := json.Marshal(params)
	if err != nil {
		// Parameters are plain IDs; a marshal failure is a programming error.
		panic(fmt.Sprintf("cache: marshal params for %s: %v", query, err))
	}
	return Key{Query: query, Params: string(data)}
}

func (k Key) String() string {
	return k.Query + k.Params
}

// UpdateFunc receives the current entry (ok=false when absent) and returns the
// replacement. Returning ok=false leaves the store unchanged.
type UpdateFunc func(prior any, ok bool) (next any, keep bool)

// Store owns every cached query result. Values are treated as immutable:
// updaters must build new values rather than modify the ones they receive, so
// a reader holding an entry never sees a partially-updated structure.
//
// Every key carries a generation that moves whenever the entry is replaced
// wholesale or evicted. Patches leave it alone. The store as a whole carries
// an epoch that moves on Clear.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]any
	gens    map[Key]uint64
	lastGen uint64

	// epochMu is taken before mu, never after.
	epochMu sync.RWMutex
	epoch   uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]any),
		gens:    make(map[Key]uint64),
	}
}

// Get returns the entry for key, or ok=false when it was never fetched.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Update applies fn to the entry for key under the write lock and returns the
// key's generation. An updater that preserves absence never creates an entry.
func (s *Store) Update(key Key, fn UpdateFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update(key, fn)
	return s.gens[key]
}

// UpdateAt is Update, applied only while the key is still at generation gen.
// It reports whether fn ran.
func (s *Store) UpdateAt(key Key, gen uint64, fn UpdateFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] != gen {
		return false
	}
	s.update(key, fn)
	return true
}

func (s *Store) update(key Key, fn UpdateFunc) {
	prior, ok := s.entries[key]
	next, keep := fn(prior, ok)
	if !keep {
		return
	}
	s.entries[key] = next
}

// Put stores value wholesale, replacing any previous entry.
// Used by fetches and background refetches.
func (s *Store) Put(key Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	s.bump(key)
}

// Invalidate evicts the entry for key. Later patches on it are no-ops.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	s.bump(key)
}

func (s *Store) bump(key Key) {
	s.lastGen++
	s.gens[key] = s.lastGen
}

// Generation returns the current generation of key.
func (s *Store) Generation(key Key) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[key]
}

// Clear evicts every entry and starts a new epoch. Work bound to an earlier
// epoch through Within no longer touches the store.
func (s *Store) Clear() {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		s.bump(key)
	}
	s.entries = make(map[Key]any)
	s.epoch++
}

// Epoch returns the current epoch.
func (s *Store) Epoch() uint64 {
	s.epochMu.RLock()
	defer s.epochMu.RUnlock()
	return s.epoch
}

// Begin runs fn and returns the epoch it ran in. No Clear can interleave
// with fn. fn must not call Begin, Within, Epoch or Clear.
func (s *Store) Begin(fn func(*Store)) uint64 {
	s.epochMu.RLock()
	defer s.epochMu.RUnlock()
	if fn != nil {
		fn(s)
	}
	return s.epoch
}

// Within runs fn only if the store is still in epoch, and reports whether it
// ran. No Clear can interleave with fn. fn must not call Begin, Within, Epoch
// or Clear.
func (s *Store) Within(epoch uint64, fn func(*Store)) bool {
	s.epochMu.RLock()
	defer s.epochMu.RUnlock()
	if s.epoch != epoch {
		return false
	}
	if fn != nil {
		fn(s)
	}
	return true
}

// Keys returns the resident keys of a query, sorted by parameters.
func (s *Store) Keys(query string) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []Key
	for k := range s.entries {
		if k.Query == query {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Params < keys[j].Params })
	return keys
}

// Len returns the number of resident entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
