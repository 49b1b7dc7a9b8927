package inertiaclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-json-experiment/json"

	"go.inout.gg/inertiaclient/internal/inertiaheader"
	"go.inout.gg/inertiaclient/internal/inertialocation"
)

// RawResponse is a server response as delivered by the transport.
type RawResponse struct {
	Header http.Header

	// Page is the already decoded page payload, if the transport decoded
	// it. When nil, Body is decoded instead.
	Page *Page

	Body       []byte
	StatusCode int
}

// IsInertia reports whether the response carries the X-Inertia header.
func (r *RawResponse) IsInertia() bool {
	return len(r.Header.Values(inertiaheader.HeaderXInertia)) > 0
}

// outcome is what a response turned out to be. It is decided once, when the
// Response is created.
type outcome interface{ isOutcome() }

type (
	// outcomeStructuredPage is an Inertia page payload.
	outcomeStructuredPage struct{ page *Page }

	// outcomeExternalRedirect asks for a full navigation to location.
	outcomeExternalRedirect struct{ location string }

	// outcomeInvalid is anything else. body is shown as is.
	outcomeInvalid struct{ body []byte }
)

func (outcomeStructuredPage) isOutcome()   {}
func (outcomeExternalRedirect) isOutcome() {}
func (outcomeInvalid) isOutcome()          {}

func classify(raw *RawResponse) outcome {
	if raw.IsInertia() {
		if raw.Page != nil {
			return outcomeStructuredPage{raw.Page.Clone()}
		}

		page, err := decodePage(raw.Body)
		if err != nil {
			d("response marked as Inertia has no valid page: %v", err)
			return outcomeInvalid{raw.Body}
		}

		return outcomeStructuredPage{page}
	}

	if loc := raw.Header.Get(inertiaheader.HeaderXInertiaLocation); raw.StatusCode == http.StatusConflict && loc != "" {
		return outcomeExternalRedirect{loc}
	}

	return outcomeInvalid{raw.Body}
}

// Response pairs a server response with the visit that produced it and the
// page shown when that visit was dispatched.
type Response struct {
	client      *Client
	params      *RequestParams
	raw         *RawResponse
	originating *Page
	outcome     outcome
}

// NewResponse prepares raw for processing. originating is the page that was
// current when the visit was dispatched.
func (c *Client) NewResponse(params *RequestParams, raw *RawResponse, originating *Page) *Response {
	return &Response{
		client:      c,
		params:      params,
		raw:         raw,
		originating: originating,
		outcome:     classify(raw),
	}
}

// Params returns the request parameters the response is bound to.
func (r *Response) Params() *RequestParams { return r.params }

// Raw returns the server response.
func (r *Response) Raw() *RawResponse { return r.raw }

// MergeParams rebinds a prefetched response to the options of a new visit.
func (r *Response) MergeParams(opts VisitOptions) { r.params.merge(opts) }

// HandlePrefetch handles the response only if its visit targeted the URL
// currently shown, ignoring fragments.
func (r *Response) HandlePrefetch(ctx context.Context) error {
	if !inertialocation.SameWithoutHash(r.params.URL(), r.client.locator.Location()) {
		d("dropping prefetched response for %s", r.params.URL().Redacted())
		return nil
	}

	return r.Handle(ctx)
}

// Handle queues the response for processing and waits for the result.
//
// Cancelling ctx stops the wait, not the processing: once queued, the
// response is processed in its turn.
func (r *Response) Handle(ctx context.Context) error {
	return r.client.queue.Do(ctx, func(ctx context.Context) error {
		return r.process(context.WithoutCancel(ctx))
	})
}

func (r *Response) process(ctx context.Context) error {
	if r.params.consumePrefetch() {
		r.params.onPrefetched(r.raw)
		r.client.events.firePrefetched(r.raw, r.params.Options())

		return nil
	}

	r.params.runCallbacks()

	var page *Page
	switch o := r.outcome.(type) {
	case outcomeStructuredPage:
		page = o.page.Clone()
	case outcomeExternalRedirect:
		return r.locationVisit(ctx, o.location)
	case outcomeInvalid:
		return r.showInvalid(ctx, o.body)
	}

	history := r.client.history
	if err := history.ProcessQueue(ctx); err != nil {
		return err //nolint:wrapcheck
	}

	history.SetPreserveURL(r.params.Options().PreserveURL)
	defer history.SetPreserveURL(false)

	ok, err := r.setPage(ctx, page)
	if err != nil {
		return err
	}

	if !ok {
		d("dropping stale response for %s", r.params.URL().Redacted())
		return nil
	}

	current := r.client.store.Get()
	if errs, ok := pageErrors(current); ok {
		scoped := scopedErrors(errs, r.params.Options().ErrorBag)
		r.client.events.fireError(scoped)
		r.params.onError(scoped)

		return nil
	}

	r.client.events.fireSuccess(current)

	if err := r.params.onSuccess(ctx, current); err != nil {
		return fmt.Errorf("inertiaclient: success callback failed: %w", err)
	}

	return nil
}

// setPage commits page unless the response is stale. It reports whether the
// page was committed.
func (r *Response) setPage(ctx context.Context, page *Page) (bool, error) {
	current := r.client.store.Get()
	if !r.shouldSetPage(page, current) {
		return false, nil
	}

	if r.params.IsPartial() && current != nil && page.Component == current.Component {
		mergeProps(page, current)
	}

	r.setRememberedState(page, current)
	r.params.setPreserveOptions(page)

	if r.client.history.PreserveURL() && current != nil {
		page.URL = current.URL
	} else {
		page.URL = r.pageURL(page)
	}

	scroll, state := r.params.preserveFlags()
	opts := SetOptions{
		Replace:        r.params.Options().Replace,
		PreserveScroll: scroll,
		PreserveState:  state,
	}

	if err := r.client.store.Set(ctx, page, opts); err != nil {
		return false, err
	}

	return true, nil
}

// shouldSetPage decides whether page is still relevant to what is shown.
//
// Synchronous visits always win. An async response for another component
// than the one it was requested from is a redirect and wins too. Otherwise
// the originating component must still be shown, at the same origin and
// path.
func (r *Response) shouldSetPage(page, current *Page) bool {
	if !r.params.Options().Async {
		return true
	}

	if r.originating == nil || current == nil {
		return true
	}

	if r.originating.Component != page.Component {
		return true
	}

	if r.originating.Component != current.Component {
		return false
	}

	loc := r.client.locator.Location()

	originatingURL, err := inertialocation.Resolve(r.originating.URL, loc)
	if err != nil {
		return false
	}

	currentURL, err := inertialocation.Resolve(current.URL, loc)
	if err != nil {
		return false
	}

	return inertialocation.SameOriginAndPath(originatingURL, currentURL)
}

func (r *Response) setRememberedState(page, current *Page) {
	if !r.params.Options().PreserveState.isSet() || current == nil || page.Component != current.Component {
		return
	}

	if remembered := r.client.history.RememberedState(); remembered != nil {
		page.RememberedState = remembered
	}
}

// pageURL returns the response URL as path, query and fragment. The request
// fragment is kept when the response URL is otherwise the requested one.
func (r *Response) pageURL(page *Page) string {
	u, err := inertialocation.Resolve(page.URL, r.client.locator.Location())
	if err != nil {
		return page.URL
	}

	inertialocation.CopyHashIfSame(r.params.URL(), u)

	return inertialocation.PathQueryHash(u)
}

// locationVisit leaves the application with a full page load of location.
func (r *Response) locationVisit(ctx context.Context, location string) error {
	current := r.client.locator.Location()

	u, err := inertialocation.Resolve(location, current)
	if err != nil {
		return fmt.Errorf("inertiaclient: invalid redirect location: %w", err)
	}

	marker := locationVisit{PreserveScroll: r.params.Options().PreserveScroll.IsAlways()}
	if b, err := json.Marshal(marker); err != nil {
		d("failed to encode location visit marker: %v", err)
	} else if err := r.client.storage.Set(ctx, LocationVisitKey, b); err != nil {
		d("failed to persist location visit marker: %v", err)
	}

	inertialocation.CopyHashIfSame(r.params.URL(), u)

	if inertialocation.SameWithoutHash(current, u) {
		d("reloading %s", u.Redacted())

		if err := r.client.locator.Reload(ctx); err != nil {
			return fmt.Errorf("inertiaclient: failed to reload: %w", err)
		}

		return nil
	}

	d("navigating to %s", u.Redacted())

	if err := r.client.locator.Assign(ctx, u); err != nil {
		return fmt.Errorf("inertiaclient: failed to navigate: %w", err)
	}

	return nil
}

func (r *Response) showInvalid(ctx context.Context, body []byte) error {
	if !r.client.events.fireInvalid(r.raw) {
		return nil
	}

	if err := r.client.interstitial.Show(ctx, body); err != nil {
		return fmt.Errorf("inertiaclient: failed to show invalid response: %w", err)
	}

	return nil
}

// rebind returns a copy of r bound to fresh request parameters for a visit to
// u dispatched from originating, so that a cached response can serve several
// visits.
func (r *Response) rebind(u *url.URL, originating *Page) *Response {
	cp := *r
	cp.params = NewRequestParams(u, r.params.Options())
	cp.originating = originating

	return &cp
}
