package inertiaclient

import (
	"slices"
	"sync"

	"go.inout.gg/inertiaclient/internal/inertiahttp"
)

// Progress reports how much of a visit's request body has been sent.
type Progress = inertiahttp.Progress

type listener[F any] struct{ fn F }

// listenerSet is an ordered set of listeners that may be modified while
// being notified.
type listenerSet[F any] struct {
	entries []*listener[F]
	mu      sync.RWMutex
}

func (s *listenerSet[F]) add(fn F) func() {
	l := &listener[F]{fn}

	s.mu.Lock()
	s.entries = append(s.entries, l)
	s.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.entries = slices.DeleteFunc(s.entries, func(e *listener[F]) bool { return e == l })
			s.mu.Unlock()
		})
	}
}

func (s *listenerSet[F]) snapshot() []F {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fns := make([]F, len(s.entries))
	for i, e := range s.entries {
		fns[i] = e.fn
	}

	return fns
}

// Events dispatches global lifecycle notifications. Every On* method returns
// a function that removes the listener.
//
// Listeners are called synchronously from the goroutine that raises the
// event, typically the processing queue. They must not wait for another
// visit to be handled.
type Events struct {
	before     listenerSet[func(*Visit) bool]
	start      listenerSet[func(*Visit)]
	progress   listenerSet[func(*Visit, Progress)]
	finish     listenerSet[func(*Visit)]
	navigate   listenerSet[func(*Page)]
	success    listenerSet[func(*Page)]
	error      listenerSet[func(Errors)]
	invalid    listenerSet[func(*RawResponse) bool]
	prefetched listenerSet[func(*RawResponse, VisitOptions)]
	exception  listenerSet[func(error)]
}

// OnBefore registers fn to run before a visit starts. Returning false
// prevents the visit.
func (e *Events) OnBefore(fn func(*Visit) bool) func() { return e.before.add(fn) }

// OnStart registers fn to run when a visit starts.
func (e *Events) OnStart(fn func(*Visit)) func() { return e.start.add(fn) }

// OnProgress registers fn to receive upload progress.
func (e *Events) OnProgress(fn func(*Visit, Progress)) func() { return e.progress.add(fn) }

// OnFinish registers fn to run when a visit completes, whatever its outcome.
func (e *Events) OnFinish(fn func(*Visit)) func() { return e.finish.add(fn) }

// OnNavigate registers fn to run after every page commit.
func (e *Events) OnNavigate(fn func(*Page)) func() { return e.navigate.add(fn) }

// OnSuccess registers fn to run when a response is accepted without
// validation errors.
func (e *Events) OnSuccess(fn func(*Page)) func() { return e.success.add(fn) }

// OnError registers fn to receive validation errors.
func (e *Events) OnError(fn func(Errors)) func() { return e.error.add(fn) }

// OnInvalid registers fn to run when a response is not an Inertia page.
// Returning false suppresses the interstitial.
func (e *Events) OnInvalid(fn func(*RawResponse) bool) func() { return e.invalid.add(fn) }

// OnPrefetched registers fn to run when a prefetch response arrives.
func (e *Events) OnPrefetched(fn func(*RawResponse, VisitOptions)) func() {
	return e.prefetched.add(fn)
}

// OnException registers fn to receive transport failures.
func (e *Events) OnException(fn func(error)) func() { return e.exception.add(fn) }

func (e *Events) fireBefore(v *Visit) bool {
	allowed := true
	for _, fn := range e.before.snapshot() {
		if !fn(v) {
			allowed = false
		}
	}

	return allowed
}

func (e *Events) fireStart(v *Visit) {
	for _, fn := range e.start.snapshot() {
		fn(v)
	}
}

func (e *Events) fireProgress(v *Visit, p Progress) {
	for _, fn := range e.progress.snapshot() {
		fn(v, p)
	}
}

func (e *Events) fireFinish(v *Visit) {
	for _, fn := range e.finish.snapshot() {
		fn(v)
	}
}

func (e *Events) fireNavigate(page *Page) {
	for _, fn := range e.navigate.snapshot() {
		fn(page)
	}
}

func (e *Events) fireSuccess(page *Page) {
	for _, fn := range e.success.snapshot() {
		fn(page)
	}
}

func (e *Events) fireError(errs Errors) {
	for _, fn := range e.error.snapshot() {
		fn(errs)
	}
}

// fireInvalid reports whether the interstitial should be shown.
func (e *Events) fireInvalid(raw *RawResponse) bool {
	show := true
	for _, fn := range e.invalid.snapshot() {
		if !fn(raw) {
			show = false
		}
	}

	return show
}

func (e *Events) firePrefetched(raw *RawResponse, opts VisitOptions) {
	for _, fn := range e.prefetched.snapshot() {
		fn(raw, opts)
	}
}

func (e *Events) fireException(err error) {
	for _, fn := range e.exception.snapshot() {
		fn(err)
	}
}
