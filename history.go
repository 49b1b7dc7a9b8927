package inertiaclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/inertiaclient/inertiavalue"
	"go.inout.gg/inertiaclient/internal/inertialocation"
	"go.inout.gg/inertiaclient/internal/inertiaqueue"
)

var (
	_ SessionHistory = (*MemoryHistory)(nil)
	_ Locator        = (*MemoryHistory)(nil)
)

// Keys understood by History.GetState.
const (
	StateRememberedState = "rememberedState"
	StateScrollRegions   = "scrollRegions"
)

// HistoryEntry is one session history entry.
type HistoryEntry struct {
	// Page is the page shown by the entry. It is nil for entries created by a
	// full navigation and for entries whose state was cleared.
	Page *Page

	// URL is the entry's URL, either absolute or relative to the document.
	URL string
}

// SessionHistory is the browser's session history.
type SessionHistory interface {
	// PushState adds entry after the current one and makes it current.
	PushState(ctx context.Context, entry HistoryEntry) error

	// ReplaceState overwrites the current entry.
	ReplaceState(ctx context.Context, entry HistoryEntry) error

	// State returns the current entry. ok is false if there is none.
	State() (entry HistoryEntry, ok bool)

	// Clear forgets the page state of every entry but the current one.
	Clear(ctx context.Context) error
}

// History mirrors committed pages into a SessionHistory.
//
// Writes are applied through a dedicated queue, so rapid successive commits
// reach the session history in the order they were made.
type History struct {
	nav         SessionHistory
	queue       *inertiaqueue.Queue
	preserveURL atomic.Bool
}

// NewHistory creates a History on top of nav.
func NewHistory(nav SessionHistory) *History {
	debug.Assert(nav != nil, "session history must be set")

	return &History{nav: nav, queue: inertiaqueue.New("history")} //nolint:exhaustruct
}

// PreserveURL reports whether the next commit keeps the visible URL.
func (h *History) PreserveURL() bool { return h.preserveURL.Load() }

// SetPreserveURL toggles preserve-URL mode for the visit being processed.
func (h *History) SetPreserveURL(v bool) { h.preserveURL.Store(v) }

// PushState records page as a new history entry.
func (h *History) PushState(ctx context.Context, page *Page) error {
	entry := HistoryEntry{Page: page.Clone(), URL: page.URL}

	return h.queue.Do(ctx, func(ctx context.Context) error {
		if err := h.nav.PushState(ctx, entry); err != nil {
			return fmt.Errorf("inertiaclient: failed to push history state: %w", err)
		}

		return nil
	})
}

// ReplaceState overwrites the current history entry with page.
func (h *History) ReplaceState(ctx context.Context, page *Page) error {
	entry := HistoryEntry{Page: page.Clone(), URL: page.URL}

	return h.queue.Do(ctx, func(ctx context.Context) error {
		if err := h.nav.ReplaceState(ctx, entry); err != nil {
			return fmt.Errorf("inertiaclient: failed to replace history state: %w", err)
		}

		return nil
	})
}

// ProcessQueue waits until every pending history write has been applied.
func (h *History) ProcessQueue(ctx context.Context) error {
	return h.queue.Wait(ctx) //nolint:wrapcheck
}

// GetState returns the field key of the page stored in the current history
// entry, or def if there is no such field.
func (h *History) GetState(key string, def inertiavalue.Value) inertiavalue.Value {
	entry, ok := h.nav.State()
	if !ok || entry.Page == nil {
		return def
	}

	state, err := inertiavalue.FromAny(entry.Page)
	if err != nil {
		d("failed to encode history state: %v", err)
		return def
	}

	v, ok := state.Map().Get(key)
	if !ok || v.IsNull() {
		return def
	}

	return v
}

// RememberedState returns a copy of the remembered state of the current
// history entry, or nil if there is no entry.
func (h *History) RememberedState() *inertiavalue.Map {
	entry, ok := h.nav.State()
	if !ok || entry.Page == nil {
		return nil
	}

	if entry.Page.RememberedState == nil {
		return inertiavalue.NewMap()
	}

	return entry.Page.RememberedState.Clone()
}

// ScrollRegions returns the scroll regions of the current history entry.
func (h *History) ScrollRegions() []ScrollRegion {
	entry, ok := h.nav.State()
	if !ok || entry.Page == nil {
		return nil
	}

	return slices.Clone(entry.Page.ScrollRegions)
}

// Remember stores data under key in the remembered state of the current
// history entry.
func (h *History) Remember(ctx context.Context, data inertiavalue.Value, key string) error {
	return h.update(ctx, func(page *Page) {
		if page.RememberedState == nil {
			page.RememberedState = inertiavalue.NewMap()
		}

		page.RememberedState.Set(key, data.Clone())
	})
}

// Restore returns the value remembered under key.
func (h *History) Restore(key string) (inertiavalue.Value, bool) {
	v, ok := h.RememberedState().Get(key)
	if !ok {
		return inertiavalue.Value{}, false
	}

	return v.Clone(), true
}

// SaveScrollPositions records regions in the current history entry.
func (h *History) SaveScrollPositions(ctx context.Context, regions []ScrollRegion) error {
	regions = slices.Clone(regions)

	return h.update(ctx, func(page *Page) { page.ScrollRegions = regions })
}

// Clear forgets the page state of all history entries except the current one.
func (h *History) Clear(ctx context.Context) error {
	return h.queue.Do(ctx, func(ctx context.Context) error {
		if err := h.nav.Clear(ctx); err != nil {
			return fmt.Errorf("inertiaclient: failed to clear history: %w", err)
		}

		return nil
	})
}

// update rewrites the page of the current entry in place.
func (h *History) update(ctx context.Context, fn func(*Page)) error {
	return h.queue.Do(ctx, func(ctx context.Context) error {
		entry, ok := h.nav.State()
		if !ok || entry.Page == nil {
			return errors.New("inertiaclient: no current history entry")
		}

		entry.Page = entry.Page.Clone()
		fn(entry.Page)

		if err := h.nav.ReplaceState(ctx, entry); err != nil {
			return fmt.Errorf("inertiaclient: failed to replace history state: %w", err)
		}

		return nil
	})
}

// MemoryHistory is an in-process SessionHistory. It also acts as the
// Locator, reporting the URL of the current entry and recording full page
// loads instead of performing them.
type MemoryHistory struct {
	base        *url.URL
	entries     []HistoryEntry
	navigations []*url.URL
	index       int
	reloads     int
	mu          sync.RWMutex
}

// NewMemoryHistory creates an empty history for a document loaded from
// baseURL, which must be absolute.
func NewMemoryHistory(baseURL string) (*MemoryHistory, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("inertiaclient: invalid base URL: %w", err)
	}

	if !base.IsAbs() {
		return nil, fmt.Errorf("inertiaclient: base URL %q must be absolute", baseURL)
	}

	return &MemoryHistory{base: base, index: -1}, nil //nolint:exhaustruct
}

func (h *MemoryHistory) PushState(_ context.Context, entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.push(entry)

	return nil
}

func (h *MemoryHistory) push(entry HistoryEntry) {
	h.entries = append(h.entries[:h.index+1], entry)
	h.index = len(h.entries) - 1
}

func (h *MemoryHistory) ReplaceState(_ context.Context, entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index < 0 {
		h.push(entry)
		return nil
	}

	h.entries[h.index] = entry

	return nil
}

func (h *MemoryHistory) State() (HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.index < 0 {
		return HistoryEntry{}, false
	}

	return h.entries[h.index], true
}

func (h *MemoryHistory) Clear(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		if i != h.index {
			h.entries[i].Page = nil
		}
	}

	return nil
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Back moves to the previous entry and returns it.
func (h *MemoryHistory) Back() (HistoryEntry, bool) { return h.move(-1) }

// Forward moves to the next entry and returns it.
func (h *MemoryHistory) Forward() (HistoryEntry, bool) { return h.move(1) }

func (h *MemoryHistory) move(delta int) (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		return HistoryEntry{}, false
	}

	h.index = next

	return h.entries[next], true
}

func (h *MemoryHistory) Location() *url.URL {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.index < 0 {
		u := *h.base
		return &u
	}

	u, err := inertialocation.Resolve(h.entries[h.index].URL, h.base)
	if err != nil {
		u := *h.base
		return &u
	}

	return u
}

func (h *MemoryHistory) Reload(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reloads++

	return nil
}

func (h *MemoryHistory) Assign(_ context.Context, u *url.URL) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	target := *u
	h.navigations = append(h.navigations, &target)
	h.push(HistoryEntry{URL: target.String()}) //nolint:exhaustruct

	return nil
}

// Navigations returns the targets of full page navigations, oldest first.
func (h *MemoryHistory) Navigations() []*url.URL {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.navigations)
}

// Reloads returns the number of full reloads performed.
func (h *MemoryHistory) Reloads() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.reloads
}
