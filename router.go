package inertiaclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-json-experiment/json"
	"github.com/go-playground/form/v4"

	"go.inout.gg/inertiaclient/inertiavalue"
	"go.inout.gg/inertiaclient/internal/inertiaheader"
	"go.inout.gg/inertiaclient/internal/inertiahttp"
	"go.inout.gg/inertiaclient/internal/inertialocation"
)

// Router dispatches visits.
//
// Network requests run on a bounded worker pool. Responses are handed to the
// Client's processing queue, so pages are committed in the order responses
// arrive, one at a time.
type Router struct {
	client     *Client
	transport  inertiahttp.Client
	pool       pond.Pool
	encoder    *form.Encoder
	prefetched *prefetchCache
	activeSync *Visit
	active     map[*Visit]struct{}
	timeout    time.Duration
	cacheFor   time.Duration
	mu         sync.Mutex
}

func newRouter(c *Client, transport inertiahttp.Client, config *Config) *Router {
	return &Router{ //nolint:exhaustruct
		client:     c,
		transport:  transport,
		pool:       pond.NewPool(config.Concurrency),
		encoder:    form.NewEncoder(),
		prefetched: newPrefetchCache(time.Now),
		active:     make(map[*Visit]struct{}),
		timeout:    config.Timeout,
		cacheFor:   config.PrefetchCacheFor,
	}
}

// Visit dispatches a visit to href, resolved against the current location.
//
// It returns immediately; use Visit.Wait to wait for the outcome. A
// synchronous visit interrupts the previous synchronous visit that is still
// in flight.
func (r *Router) Visit(ctx context.Context, href string, opts VisitOptions) *Visit {
	opts.Method = strings.ToUpper(opts.method())

	u, err := r.target(href, opts)
	if err != nil {
		v := newVisit(ctx, opts.Method, NewRequestParams(r.client.locator.Location(), opts))
		r.finishEarly(v, err)

		return v
	}

	params := NewRequestParams(u, opts)
	v := newVisit(ctx, opts.Method, params)

	if !params.onBefore(v) || !r.client.events.fireBefore(v) {
		d("visit to %s prevented", u.Redacted())
		r.finishEarly(v, ErrVisitPrevented)

		return v
	}

	r.track(v, !opts.Async)

	originating := r.client.store.Get()

	if entry := r.prefetched.lookup(prefetchKey(opts.Method, u, opts)); entry != nil {
		d("visit to %s uses prefetched response", u.Redacted())

		// Waiting for an in-flight prefetch must not hold a worker the
		// prefetch itself may need.
		go r.runPrefetched(v, entry, originating)

		return v
	}

	r.pool.Submit(func() { r.run(v, originating) })

	return v
}

// Get visits href with GET. data is encoded into the query string.
func (r *Router) Get(ctx context.Context, href string, data any, opts VisitOptions) *Visit {
	opts.Method, opts.Data = http.MethodGet, data
	return r.Visit(ctx, href, opts)
}

// Post visits href with POST.
func (r *Router) Post(ctx context.Context, href string, data any, opts VisitOptions) *Visit {
	opts.Method, opts.Data = http.MethodPost, data
	return r.Visit(ctx, href, opts)
}

// Put visits href with PUT.
func (r *Router) Put(ctx context.Context, href string, data any, opts VisitOptions) *Visit {
	opts.Method, opts.Data = http.MethodPut, data
	return r.Visit(ctx, href, opts)
}

// Patch visits href with PATCH.
func (r *Router) Patch(ctx context.Context, href string, data any, opts VisitOptions) *Visit {
	opts.Method, opts.Data = http.MethodPatch, data
	return r.Visit(ctx, href, opts)
}

// Delete visits href with DELETE.
func (r *Router) Delete(ctx context.Context, href string, opts VisitOptions) *Visit {
	opts.Method = http.MethodDelete
	return r.Visit(ctx, href, opts)
}

// Reload visits the current URL again, keeping scroll and component state.
// Combine it with Only or Except for a partial reload.
func (r *Router) Reload(ctx context.Context, opts VisitOptions) *Visit {
	href := r.client.locator.Location().String()
	if page := r.client.store.Get(); page != nil {
		href = page.URL
	}

	opts.Method = http.MethodGet
	opts.Async = true
	opts.PreserveScroll = PreserveAlways
	opts.PreserveState = PreserveAlways

	return r.Visit(ctx, href, opts)
}

// Cancel cancels the synchronous visit in flight, if any.
func (r *Router) Cancel() {
	r.mu.Lock()
	v := r.activeSync
	r.mu.Unlock()

	if v != nil {
		v.Cancel()
	}
}

// CancelAll cancels every visit in flight.
func (r *Router) CancelAll() {
	r.mu.Lock()
	visits := make([]*Visit, 0, len(r.active))
	for v := range r.active {
		visits = append(visits, v)
	}
	r.mu.Unlock()

	for _, v := range visits {
		v.Cancel()
	}
}

// Stop cancels every visit in flight and waits for the workers to exit.
func (r *Router) Stop() {
	r.CancelAll()
	r.pool.StopAndWait()
}

// target resolves href and, for GET visits, merges the visit data into its
// query string.
func (r *Router) target(href string, opts VisitOptions) (*url.URL, error) {
	u, err := inertialocation.Resolve(href, r.client.locator.Location())
	if err != nil {
		return nil, fmt.Errorf("inertiaclient: invalid visit URL: %w", err)
	}

	if opts.Method != http.MethodGet || opts.Data == nil {
		return u, nil
	}

	values, err := r.encoder.Encode(plainData(opts.Data))
	if err != nil {
		return nil, fmt.Errorf("inertiaclient: failed to encode query: %w", err)
	}

	q := u.Query()
	for k, vs := range values {
		q[k] = vs
	}

	u.RawQuery = q.Encode()

	return u, nil
}

// track registers v as in flight. A synchronous visit interrupts the
// previous one.
func (r *Router) track(v *Visit, isSync bool) {
	r.mu.Lock()
	r.active[v] = struct{}{}

	var prev *Visit
	if isSync {
		prev = r.activeSync
		r.activeSync = v
	}
	r.mu.Unlock()

	if prev != nil {
		prev.interrupt()
	}
}

// release stops tracking v as in flight.
func (r *Router) release(v *Visit) {
	r.mu.Lock()
	delete(r.active, v)

	if r.activeSync == v {
		r.activeSync = nil
	}
	r.mu.Unlock()
}

func (r *Router) run(v *Visit, originating *Page) {
	defer r.finish(v)

	r.begin(v)
	r.runNetwork(v, originating)
}

func (r *Router) runPrefetched(v *Visit, entry *prefetchEntry, originating *Page) {
	defer r.finish(v)

	r.begin(v)

	select {
	case <-entry.done:
	case <-v.ctx.Done():
		v.fail(v.ctx.Err())
		return
	}

	if entry.err != nil {
		d("prefetch failed, sending visit: %v", entry.err)
		r.runNetwork(v, originating)

		return
	}

	if !v.markReceived() {
		return
	}

	resp := entry.resp.rebind(v.URL(), originating)
	resp.MergeParams(v.params.Options())
	resp.Params().Defer(func() { r.release(v) })

	if err := resp.Handle(context.WithoutCancel(v.ctx)); err != nil {
		v.fail(err)
	}
}

// runNetwork sends the request of a started visit and handles the response.
func (r *Router) runNetwork(v *Visit, originating *Page) {
	raw, err := r.send(v, false)
	if err != nil {
		r.fail(v, err)
		return
	}

	if !v.markReceived() {
		return
	}

	resp := r.client.NewResponse(v.params, raw, originating)
	resp.Params().Defer(func() { r.release(v) })

	if err := resp.Handle(context.WithoutCancel(v.ctx)); err != nil {
		v.fail(err)
	}
}

func (r *Router) begin(v *Visit) {
	v.params.onCancelToken(v)
	v.params.onStart(v)
	r.client.events.fireStart(v)
}

func (r *Router) fail(v *Visit, err error) {
	v.fail(err)

	if v.ctx.Err() == nil {
		r.client.events.fireException(err)
	}
}

func (r *Router) finish(v *Visit) {
	r.release(v)

	if v.complete() {
		v.params.onCancel()
	}

	v.params.onFinish(v)
	r.client.events.fireFinish(v)

	v.cancel(nil)
	close(v.done)
}

// finishEarly completes a visit that never started. No hooks run.
func (r *Router) finishEarly(v *Visit, err error) {
	v.fail(err)
	v.complete()
	v.cancel(nil)
	close(v.done)
}

// send performs the request of v.
func (r *Router) send(v *Visit, prefetch bool) (*RawResponse, error) {
	req, err := r.newRequest(v, prefetch)
	if err != nil {
		return nil, err
	}

	ctx := v.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)

		defer cancel()
	}

	resp, err := r.transport.Do(ctx, req)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &RawResponse{
		Header:     resp.Header,
		Body:       resp.Body,
		StatusCode: resp.StatusCode,
	}, nil
}

func (r *Router) newRequest(v *Visit, prefetch bool) (*inertiahttp.Request, error) {
	opts := v.params.Options()

	header := make(http.Header)
	header.Set(inertiaheader.HeaderXInertia, inertiaheader.HeaderValueTrue)
	header.Set(inertiaheader.HeaderXRequestedWith, inertiaheader.XMLHttpRequest)
	header.Set(inertiaheader.HeaderAccept, inertiaheader.AcceptPage)

	if version := r.client.Version(); version != "" {
		header.Set(inertiaheader.HeaderXInertiaVersion, version)
	}

	if v.params.IsPartial() {
		if page := r.client.store.Get(); page != nil {
			header.Set(inertiaheader.HeaderXInertiaPartialComponent, page.Component)
		}

		if len(opts.Only) > 0 {
			header.Set(inertiaheader.HeaderXInertiaPartialData, strings.Join(opts.Only, inertiaheader.HeaderListDivider))
		}

		if len(opts.Except) > 0 {
			header.Set(inertiaheader.HeaderXInertiaPartialExcept, strings.Join(opts.Except, inertiaheader.HeaderListDivider))
		}

		if len(opts.Reset) > 0 {
			header.Set(inertiaheader.HeaderXInertiaReset, strings.Join(opts.Reset, inertiaheader.HeaderListDivider))
		}
	}

	if opts.ErrorBag != "" {
		header.Set(inertiaheader.HeaderXInertiaErrorBag, opts.ErrorBag)
	}

	if prefetch {
		header.Set(inertiaheader.HeaderPurpose, inertiaheader.PurposePrefetch)
	}

	for k, vs := range opts.Headers {
		header[http.CanonicalHeaderKey(k)] = vs
	}

	var body []byte
	if v.method != http.MethodGet && opts.Data != nil {
		var err error

		body, err = r.encodeBody(opts, header)
		if err != nil {
			return nil, err
		}
	}

	return &inertiahttp.Request{
		URL:    v.URL(),
		Header: header,
		Method: v.method,
		Body:   body,
		OnProgress: func(p inertiahttp.Progress) {
			v.params.onProgress(p)
			r.client.events.fireProgress(v, p)
		},
	}, nil
}

func (r *Router) encodeBody(opts VisitOptions, header http.Header) ([]byte, error) {
	data := plainData(opts.Data)

	if opts.ForceFormData {
		values, err := r.encoder.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("inertiaclient: failed to encode form data: %w", err)
		}

		header.Set(inertiaheader.HeaderContentType, inertiaheader.ContentTypeForm)

		return []byte(values.Encode()), nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("inertiaclient: failed to encode JSON data: %w", err)
	}

	header.Set(inertiaheader.HeaderContentType, inertiaheader.ContentTypeJSON)

	return b, nil
}

// plainData converts tagged values into plain Go values the encoders
// understand.
func plainData(data any) any {
	switch t := data.(type) {
	case *inertiavalue.Map:
		return t.Any()
	case inertiavalue.Value:
		return t.Any()
	default:
		return data
	}
}

// Prefetch requests href in the background and keeps the response for
// cacheFor, so that a later GET visit to the same URL is answered without a
// round trip. A zero cacheFor uses the configured default.
//
// Only GET visits can be prefetched. A prefetch already in flight or cached
// for the same URL is reused.
func (r *Router) Prefetch(ctx context.Context, href string, opts VisitOptions, cacheFor time.Duration) *Visit {
	opts.Method = http.MethodGet
	opts.Async = true

	if cacheFor <= 0 {
		cacheFor = r.cacheFor
	}

	u, err := r.target(href, opts)
	if err != nil {
		v := newVisit(ctx, opts.Method, NewRequestParams(r.client.locator.Location(), opts))
		r.finishEarly(v, err)

		return v
	}

	params := newPrefetchParams(u, opts)
	v := newVisit(ctx, opts.Method, params)

	key := prefetchKey(opts.Method, u, opts)

	entry, created := r.prefetched.start(key)
	if !created {
		d("prefetch of %s already cached", u.Redacted())
		r.finishEarly(v, nil)

		return v
	}

	originating := r.client.store.Get()

	r.pool.Submit(func() {
		var (
			resp *Response
			err  error
		)

		// The entry must settle on every path, or visits waiting on it
		// would block until their context ends.
		defer func() {
			if p := recover(); p != nil {
				resp, err = nil, fmt.Errorf("inertiaclient: prefetch panicked: %v", p)
			}

			if err != nil {
				v.fail(err)
			}

			r.prefetched.complete(key, entry, resp, err, cacheFor)

			v.complete()
			v.cancel(nil)
			close(v.done)
		}()

		resp, err = r.prefetch(v, params, originating)
	})

	return v
}

// prefetch sends a prefetch request and hands the response to the
// reconciler, which reports it as prefetched without committing it.
//
// The response goes through Handle rather than HandlePrefetch: prefetches
// usually target another URL than the one shown, and their OnPrefetched hook
// and "prefetched" event must still fire.
func (r *Router) prefetch(v *Visit, params *RequestParams, originating *Page) (*Response, error) {
	raw, err := r.send(v, true)
	if err != nil {
		return nil, err
	}

	resp := r.client.NewResponse(params, raw, originating)
	if err := resp.Handle(context.WithoutCancel(v.ctx)); err != nil {
		return nil, err
	}

	return resp, nil
}

// FlushPrefetched drops every cached prefetch response.
func (r *Router) FlushPrefetched() { r.prefetched.flush() }
