package inertiaclient

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"sync"
)

// Preserve decides whether scroll or component state survives a visit.
//
// The zero value never preserves.
type Preserve struct {
	when   func(*Page) bool
	always bool
}

//nolint:gochecknoglobals
var (
	// PreserveAlways always preserves.
	PreserveAlways = Preserve{always: true} //nolint:exhaustruct

	// PreserveOnErrors preserves only if the response carries validation
	// errors.
	PreserveOnErrors = Preserve{when: HasErrors} //nolint:exhaustruct
)

// PreserveWhen preserves if fn returns true for the incoming page.
func PreserveWhen(fn func(*Page) bool) Preserve { return Preserve{when: fn} } //nolint:exhaustruct

// IsAlways reports whether p preserves unconditionally.
func (p Preserve) IsAlways() bool { return p.always }

// isSet reports whether p was configured at all.
func (p Preserve) isSet() bool { return p.always || p.when != nil }

// Resolve decides p for the incoming page.
func (p Preserve) Resolve(page *Page) bool {
	if p.always {
		return true
	}

	if p.when != nil {
		return p.when(page)
	}

	return false
}

// CancelToken cancels the visit it was handed out for.
type CancelToken interface {
	Cancel()
}

// VisitOptions configures a single visit.
//
// Every hook is optional and runs at most once per visit. Hooks run on
// worker or processing goroutines and must not wait for another visit to be
// handled.
type VisitOptions struct {
	// Data is sent with the visit. GET visits encode it into the query
	// string; other methods send it as JSON, or urlencoded if ForceFormData
	// is set. It may be a map[string]any, *inertiavalue.Map,
	// inertiavalue.Value or any struct the encoders understand.
	Data any

	// Headers are added to the request.
	Headers http.Header

	// OnCancelToken receives the token that cancels the visit.
	OnCancelToken func(CancelToken)

	// OnBefore runs before the visit starts. Returning false prevents it.
	OnBefore func(*Visit) bool

	// OnStart runs when the request is about to be sent.
	OnStart func(*Visit)

	// OnProgress receives upload progress.
	OnProgress func(Progress)

	// OnSuccess runs after the page was committed without validation
	// errors. Processing of later responses waits for it to return.
	OnSuccess func(context.Context, *Page) error

	// OnError receives validation errors scoped to ErrorBag.
	OnError func(Errors)

	// OnCancel runs when the visit is cancelled through its token.
	OnCancel func()

	// OnFinish runs once the visit has completed, whatever its outcome.
	OnFinish func(*Visit)

	// OnPrefetched runs when the response to a prefetch arrives.
	OnPrefetched func(*RawResponse, VisitOptions)

	// Method is the HTTP method. It defaults to GET.
	Method string

	// ErrorBag scopes validation errors.
	ErrorBag string

	// Only, Except and Reset make the visit a partial reload. Only and Except
	// filter the props the server resolves; Reset lists merge props the
	// server should send unmerged.
	Only   []string
	Except []string
	Reset  []string

	PreserveScroll Preserve
	PreserveState  Preserve

	// Replace overwrites the current history entry.
	Replace bool

	// PreserveURL keeps the visible URL instead of the response's.
	PreserveURL bool

	// Async marks the visit as a background refresh. It does not interrupt
	// other visits, and its response is dropped if the user navigated away.
	Async bool

	// ForceFormData sends non-GET data urlencoded instead of as JSON.
	ForceFormData bool
}

func (o VisitOptions) method() string {
	if o.Method == "" {
		return http.MethodGet
	}

	return o.Method
}

func (o VisitOptions) clone() VisitOptions {
	o.Headers = o.Headers.Clone()
	o.Only = slices.Clone(o.Only)
	o.Except = slices.Clone(o.Except)
	o.Reset = slices.Clone(o.Reset)

	return o
}

type hook uint8

const (
	hookCancelToken hook = iota
	hookBefore
	hookStart
	hookSuccess
	hookError
	hookCancel
	hookFinish
	hookPrefetched
)

// RequestParams is the configuration of a visit captured when it was
// dispatched.
type RequestParams struct {
	url       *url.URL
	fired     map[hook]struct{}
	callbacks []func()
	opts      VisitOptions
	mu        sync.Mutex

	prefetch       bool
	preserveScroll bool
	preserveState  bool
}

// NewRequestParams captures opts for a visit to u.
func NewRequestParams(u *url.URL, opts VisitOptions) *RequestParams {
	target := *u

	return &RequestParams{ //nolint:exhaustruct
		url:   &target,
		opts:  opts.clone(),
		fired: make(map[hook]struct{}),
	}
}

func newPrefetchParams(u *url.URL, opts VisitOptions) *RequestParams {
	p := NewRequestParams(u, opts)
	p.prefetch = true

	return p
}

// URL returns the visit's target.
func (p *RequestParams) URL() *url.URL {
	u := *p.url
	return &u
}

// Options returns a copy of the visit options.
func (p *RequestParams) Options() VisitOptions {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.opts.clone()
}

// IsPartial reports whether the visit is a partial reload.
func (p *RequestParams) IsPartial() bool {
	opts := p.Options()
	return len(opts.Only) > 0 || len(opts.Except) > 0 || len(opts.Reset) > 0
}

// IsPrefetch reports whether the visit is an unconsumed prefetch.
func (p *RequestParams) IsPrefetch() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.prefetch
}

// consumePrefetch clears the prefetch flag and reports whether it was set.
func (p *RequestParams) consumePrefetch() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	was := p.prefetch
	p.prefetch = false

	return was
}

// Defer registers fn to run when the response is processed, before any page
// state is touched. Deferred functions run in registration order.
func (p *RequestParams) Defer(fn func()) {
	p.mu.Lock()
	p.callbacks = append(p.callbacks, fn)
	p.mu.Unlock()
}

func (p *RequestParams) runCallbacks() {
	p.mu.Lock()
	fns := p.callbacks
	p.callbacks = nil
	p.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// merge rebinds p to the options of a new visit, as happens when a visit
// reuses a prefetched response.
func (p *RequestParams) merge(opts VisitOptions) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.opts = opts.clone()
	p.prefetch = false
	p.fired = make(map[hook]struct{})
}

// setPreserveOptions resolves the preserve options against the incoming page.
func (p *RequestParams) setPreserveOptions(page *Page) {
	opts := p.Options()

	p.mu.Lock()
	p.preserveScroll = opts.PreserveScroll.Resolve(page)
	p.preserveState = opts.PreserveState.Resolve(page)
	p.mu.Unlock()
}

func (p *RequestParams) preserveFlags() (scroll, state bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.preserveScroll, p.preserveState
}

// once reports whether h has not fired yet and marks it fired.
func (p *RequestParams) once(h hook) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.fired[h]; ok {
		return false
	}

	p.fired[h] = struct{}{}

	return true
}

func (p *RequestParams) onCancelToken(t CancelToken) {
	if fn := p.Options().OnCancelToken; fn != nil && p.once(hookCancelToken) {
		fn(t)
	}
}

func (p *RequestParams) onBefore(v *Visit) bool {
	if fn := p.Options().OnBefore; fn != nil && p.once(hookBefore) {
		return fn(v)
	}

	return true
}

func (p *RequestParams) onStart(v *Visit) {
	if fn := p.Options().OnStart; fn != nil && p.once(hookStart) {
		fn(v)
	}
}

func (p *RequestParams) onProgress(progress Progress) {
	if fn := p.Options().OnProgress; fn != nil {
		fn(progress)
	}
}

func (p *RequestParams) onSuccess(ctx context.Context, page *Page) error {
	if fn := p.Options().OnSuccess; fn != nil && p.once(hookSuccess) {
		return fn(ctx, page)
	}

	return nil
}

func (p *RequestParams) onError(errs Errors) {
	if fn := p.Options().OnError; fn != nil && p.once(hookError) {
		fn(errs)
	}
}

func (p *RequestParams) onCancel() {
	if fn := p.Options().OnCancel; fn != nil && p.once(hookCancel) {
		fn()
	}
}

func (p *RequestParams) onFinish(v *Visit) {
	if fn := p.Options().OnFinish; fn != nil && p.once(hookFinish) {
		fn(v)
	}
}

func (p *RequestParams) onPrefetched(raw *RawResponse) {
	opts := p.Options()
	if opts.OnPrefetched != nil && p.once(hookPrefetched) {
		opts.OnPrefetched(raw, opts)
	}
}
