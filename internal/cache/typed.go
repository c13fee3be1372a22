package cache

import "log"

// Updater is the typed form of UpdateFunc. It must be total over "entry or
// absent": when called with ok=false it returns ok=false unless the caller
// explicitly wants to create the entry.
type Updater[T any] func(prior T, ok bool) (T, bool)

// Page is one fetched page of a paginated query.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

// InfiniteData is the full cached shape of a paginated query: pages in fetch
// order.
type InfiniteData[T any] struct {
	Pages []Page[T] `json:"pages"`
}

// Items flattens the pages in order.
func (d *InfiniteData[T]) Items() []T {
	var out []T
	for _, p := range d.Pages {
		out = append(out, p.Items...)
	}
	return out
}

// LastCursor returns the continuation cursor of the last page.
func (d *InfiniteData[T]) LastCursor() *string {
	if len(d.Pages) == 0 {
		return nil
	}
	return d.Pages[len(d.Pages)-1].NextCursor
}

// GetEntry reads a singleton entry of type T.
// An entry of a different type reads as absent.
func GetEntry[T any](s *Store, key Key) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		log.Printf("[Cache] GetEntry type mismatch: key=%s", key)
		return zero, false
	}
	return t, true
}

// SetEntry applies a typed updater to a singleton entry and returns the key's
// generation.
func SetEntry[T any](s *Store, key Key, fn Updater[T]) uint64 {
	return s.Update(key, typedUpdate(key, fn))
}

// SetEntryAt applies a typed updater only while key is still at generation
// gen. It reports whether the updater ran.
func SetEntryAt[T any](s *Store, key Key, gen uint64, fn Updater[T]) bool {
	return s.UpdateAt(key, gen, typedUpdate(key, fn))
}

func typedUpdate[T any](key Key, fn Updater[T]) UpdateFunc {
	return func(prior any, ok bool) (any, bool) {
		var typed T
		if ok {
			t, isT := prior.(T)
			if !isT {
				log.Printf("[Cache] SetEntry type mismatch: key=%s", key)
				return nil, false
			}
			typed = t
		}
		next, keep := fn(typed, ok)
		return next, keep
	}
}

// GetInfiniteEntry reads a paginated entry.
func GetInfiniteEntry[T any](s *Store, key Key) (*InfiniteData[T], bool) {
	return GetEntry[*InfiniteData[T]](s, key)
}

// SetInfiniteEntry applies an updater that receives the full pages structure
// of a paginated entry.
func SetInfiniteEntry[T any](s *Store, key Key, fn Updater[*InfiniteData[T]]) uint64 {
	return SetEntry(s, key, fn)
}
