package inertiaclient

import (
	"context"
	"slices"
	"sync"

	"go.inout.gg/inertiaclient/inertiavalue"
	"go.inout.gg/inertiaclient/internal/inertialocation"
)

// SetOptions controls how a page is committed.
type SetOptions struct {
	// Replace overwrites the current history entry instead of pushing one.
	Replace bool

	// PreserveScroll keeps the scroll regions of the previous page.
	PreserveScroll bool

	// PreserveState tells the view to keep its local component state.
	PreserveState bool
}

// Commit describes one page commit delivered to subscribers.
type Commit struct {
	Page *Page
	SetOptions

	// NewComponent is true if the committed page renders a different
	// component than the page before it.
	NewComponent bool
}

// Store holds the page currently shown.
//
// Get is safe to call from any goroutine. Set is called by the processing
// queue only; pages returned by Get must be treated as read-only.
type Store struct {
	history *History
	locator Locator
	events  *Events
	page    *Page
	subs    listenerSet[func(Commit)]
	intent  SetOptions
	mu      sync.RWMutex
}

func newStore(history *History, locator Locator, events *Events) *Store {
	return &Store{history: history, locator: locator, events: events} //nolint:exhaustruct
}

// Get returns the current page, or nil before the first commit.
func (s *Store) Get() *Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.page
}

// Intent returns the options of the last commit.
func (s *Store) Intent() SetOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.intent
}

// Subscribe registers fn to be called after every commit. It returns a
// function that removes the subscription.
func (s *Store) Subscribe(fn func(Commit)) func() { return s.subs.add(fn) }

// Set commits page.
//
// The page is written to history first. Subscribers are notified only after
// history has acknowledged the write, so they never observe a page whose URL
// disagrees with the browser location.
func (s *Store) Set(ctx context.Context, page *Page, opts SetOptions) error {
	prev := s.Get()

	if page.ClearHistory {
		if err := s.history.Clear(ctx); err != nil {
			return err
		}
	}

	if loc := s.locator.Location(); loc != nil {
		if u, err := inertialocation.Resolve(page.URL, loc); err == nil && inertialocation.SameWithoutHash(u, loc) {
			opts.Replace = true
		}
	}

	switch {
	case !opts.PreserveScroll:
		page.ScrollRegions = nil
	case page.ScrollRegions == nil && prev != nil:
		page.ScrollRegions = slices.Clone(prev.ScrollRegions)
	}

	if page.RememberedState == nil {
		page.RememberedState = inertiavalue.NewMap()
	}

	write := s.history.PushState
	if opts.Replace {
		write = s.history.ReplaceState
	}

	if err := write(ctx, page); err != nil {
		return err
	}

	s.mu.Lock()
	s.page = page
	s.intent = opts
	s.mu.Unlock()

	d("committed %s at %s (replace=%t)", page.Component, page.URL, opts.Replace)

	commit := Commit{
		Page:         page,
		SetOptions:   opts,
		NewComponent: prev == nil || prev.Component != page.Component,
	}
	for _, fn := range s.subs.snapshot() {
		fn(commit)
	}

	s.events.fireNavigate(page)

	return nil
}
