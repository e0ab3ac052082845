// Package fetchcache holds raw upstream responses for the lifetime of the
// process, keyed by request locator. Entries are never evicted; unbounded
// growth is an accepted tradeoff for a single-session tool.
package fetchcache

import (
	"errors"
	"sync"
)

// ErrInFlight is returned to a caller that loses the BeginFetch race: some
// other caller already owns the network fetch for that locator.
//
// Known edge case, kept deliberately: a second legitimate request for the
// same locator while the first is still outstanding is reported in-flight
// and not re-queued. Callers that need supersession semantics must track
// "is this response still wanted" themselves (the controller uses a
// generation counter); the cache only answers "is this URL being fetched".
var ErrInFlight = errors.New("fetch already in flight")

// State describes what the cache knows about a locator.
type State int

const (
	Absent State = iota
	InFlight
	Resolved
)

type entry struct {
	inflight bool
	payload  []byte
}

// Cache maps request locators to fetched payloads or an in-flight sentinel.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Lookup returns the current state for a locator without side effects.
func (c *Cache) Lookup(locator string) ([]byte, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[locator]
	if !ok {
		return nil, Absent
	}
	if e.inflight {
		return nil, InFlight
	}
	return e.payload, Resolved
}

// BeginFetch atomically transitions a locator from absent to in-flight and
// reports whether the caller now owns the fetch. A false return is the
// debounce contract: the caller must not issue a duplicate network call.
func (c *Cache) BeginFetch(locator string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[locator]; ok {
		return false
	}
	c.entries[locator] = &entry{inflight: true}
	return true
}

// Complete transitions an in-flight locator to resolved with its payload.
func (c *Cache) Complete(locator string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[locator] = &entry{payload: payload}
}

// Fail clears the in-flight sentinel after a failed fetch so the locator can
// be retried later. A failed fetch must never leave a permanent tombstone.
func (c *Cache) Fail(locator string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[locator]
	if ok && e.inflight {
		delete(c.entries, locator)
	}
}

// Len reports how many locators the cache currently tracks.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
