package inertiaclient

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"go.inout.gg/foundations/must"

	"go.inout.gg/inertiaclient/internal/inertialocation"
)

// prefetchEntry is a prefetch in flight or a cached prefetch response.
// resp and err are set before done is closed.
type prefetchEntry struct {
	expires time.Time
	done    chan struct{}
	resp    *Response
	err     error
}

func (e *prefetchEntry) settled() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// prefetchCache holds prefetched responses keyed by method and URL.
type prefetchCache struct {
	now     func() time.Time
	entries map[string]*prefetchEntry
	mu      sync.Mutex
}

func newPrefetchCache(now func() time.Time) *prefetchCache {
	return &prefetchCache{now: now, entries: make(map[string]*prefetchEntry)} //nolint:exhaustruct
}

// prefetchRequest is what the server sees of a request, apart from its
// method and URL.
type prefetchRequest struct {
	Headers  http.Header `json:"headers"`
	ErrorBag string      `json:"errorBag"`
	Only     []string    `json:"only"`
	Except   []string    `json:"except"`
	Reset    []string    `json:"reset"`
}

// prefetchKey identifies a request by method, URL without fragment and the
// options that change the server's answer. A partial reload never shares a
// key with a full visit.
func prefetchKey(method string, u *url.URL, opts VisitOptions) string {
	req := prefetchRequest{
		Headers:  opts.Headers,
		ErrorBag: opts.ErrorBag,
		Only:     opts.Only,
		Except:   opts.Except,
		Reset:    opts.Reset,
	}

	b := must.Must(json.Marshal(req, json.Deterministic(true)))

	return method + " " + inertialocation.WithoutHash(u).String() + " " + string(b)
}

// lookup returns the entry for key if it is in flight or still fresh.
func (c *prefetchCache) lookup(key string) *prefetchEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.get(key)
}

func (c *prefetchCache) get(key string) *prefetchEntry {
	e, ok := c.entries[key]
	if !ok {
		return nil
	}

	if e.settled() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil
	}

	return e
}

// start returns the usable entry for key, or creates an in-flight one.
// created reports whether the caller must complete the new entry.
func (c *prefetchCache) start(key string) (e *prefetchEntry, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.get(key); e != nil {
		return e, false
	}

	e = &prefetchEntry{done: make(chan struct{})} //nolint:exhaustruct
	c.entries[key] = e

	return e, true
}

// complete settles e. A failed prefetch is removed from the cache.
func (c *prefetchCache) complete(key string, e *prefetchEntry, resp *Response, err error, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.resp = resp
	e.err = err
	e.expires = c.now().Add(ttl)

	if err != nil && c.entries[key] == e {
		delete(c.entries, key)
	}

	close(e.done)
}

func (c *prefetchCache) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}
