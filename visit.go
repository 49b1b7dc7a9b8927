package inertiaclient

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/google/uuid"
)

var _ CancelToken = (*Visit)(nil)

// Visit tracks one request/response cycle dispatched by the Router.
type Visit struct {
	ctx    context.Context //nolint:containedctx
	cancel context.CancelCauseFunc
	params *RequestParams
	url    *url.URL
	done   chan struct{}
	err    error
	id     string
	method string
	mu     sync.Mutex

	received    bool
	completed   bool
	cancelled   bool
	interrupted bool
}

func newVisit(ctx context.Context, method string, params *RequestParams) *Visit {
	ctx, cancel := context.WithCancelCause(ctx)

	return &Visit{ //nolint:exhaustruct
		ctx:    ctx,
		cancel: cancel,
		params: params,
		url:    params.URL(),
		done:   make(chan struct{}),
		id:     uuid.NewString(),
		method: method,
	}
}

// ID returns a unique identifier of the visit.
func (v *Visit) ID() string { return v.id }

// URL returns the visit's target.
func (v *Visit) URL() *url.URL {
	u := *v.url
	return &u
}

// Method returns the HTTP method of the visit.
func (v *Visit) Method() string { return v.method }

// Options returns the options the visit was made with.
func (v *Visit) Options() VisitOptions { return v.params.Options() }

// Params returns the request parameters of the visit.
func (v *Visit) Params() *RequestParams { return v.params }

// Done is closed once the visit has completed.
func (v *Visit) Done() <-chan struct{} { return v.done }

// Wait waits for the visit to complete and returns its error.
//
// Validation errors and stale responses are not errors.
func (v *Visit) Wait(ctx context.Context) error {
	select {
	case <-v.done:
		return v.Err()
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
}

// Err returns the error the visit completed with. It returns nil while the
// visit is in progress.
func (v *Visit) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.err
}

// Cancel cancels the visit. It has no effect once the response has been
// received.
func (v *Visit) Cancel() { v.abort(ErrVisitCancelled) }

// interrupt cancels the visit on behalf of a newer synchronous visit.
func (v *Visit) interrupt() { v.abort(ErrVisitInterrupted) }

func (v *Visit) abort(cause error) {
	v.mu.Lock()
	if v.received || v.completed || v.cancelled || v.interrupted {
		v.mu.Unlock()
		return
	}

	if errors.Is(cause, ErrVisitInterrupted) {
		v.interrupted = true
	} else {
		v.cancelled = true
	}
	v.mu.Unlock()

	d("visit %s aborted: %v", v.id, cause)
	v.cancel(cause)
}

// Cancelled reports whether the visit was cancelled through its token.
func (v *Visit) Cancelled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.cancelled
}

// Interrupted reports whether a newer visit interrupted this one.
func (v *Visit) Interrupted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.interrupted
}

// Completed reports whether the visit has completed.
func (v *Visit) Completed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.completed
}

// markReceived records that a response arrived, after which the visit can no
// longer be cancelled.
func (v *Visit) markReceived() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancelled || v.interrupted {
		return false
	}

	v.received = true

	return true
}

// fail records err as the visit's error. An error caused by cancellation is
// replaced by the cancellation cause.
func (v *Visit) fail(err error) {
	if cause := context.Cause(v.ctx); cause != nil && v.ctx.Err() != nil {
		if errors.Is(cause, ErrVisitCancelled) || errors.Is(cause, ErrVisitInterrupted) {
			err = cause
		}
	}

	v.mu.Lock()
	if v.err == nil {
		v.err = err
	}
	v.mu.Unlock()
}

// complete marks the visit completed and reports whether it was cancelled.
func (v *Visit) complete() (cancelled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.completed = true

	if v.err == nil && v.cancelled {
		v.err = ErrVisitCancelled
	}

	if v.err == nil && v.interrupted {
		v.err = ErrVisitInterrupted
	}

	return v.cancelled
}
