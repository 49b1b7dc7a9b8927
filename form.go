package inertiaclient

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"go.inout.gg/inertiaclient/inertiavalue"
)

// DefaultRecentlySuccessfulFor is how long Form.RecentlySuccessful stays
// true after a successful submit.
const DefaultRecentlySuccessfulFor = 2 * time.Second

const (
	rememberData   = "data"
	rememberErrors = "errors"
)

// FormState is a snapshot of a Form.
type FormState struct {
	Data               *inertiavalue.Map
	Errors             Errors
	Progress           *Progress
	IsDirty            bool
	HasErrors          bool
	Processing         bool
	WasSuccessful      bool
	RecentlySuccessful bool
}

// FormOptions configures a Form.
type FormOptions struct {
	// RememberKey persists the form data and errors in the current history
	// entry under this key, and restores them when the form is created.
	RememberKey string
}

// Form tracks the data, validation errors and submission state of a form.
type Form struct {
	client      *Client
	data        *inertiavalue.Map
	defaults    *inertiavalue.Map
	errors      Errors
	transform   func(*inertiavalue.Map) any
	progress    *Progress
	visit       *Visit
	timer       *time.Timer
	subs        listenerSet[func(FormState)]
	rememberKey string
	recentFor   time.Duration
	mu          sync.Mutex

	processing         bool
	wasSuccessful      bool
	recentlySuccessful bool
}

// NewForm creates a form with data as its initial values and defaults.
func (c *Client) NewForm(data *inertiavalue.Map, opts FormOptions) *Form {
	f := &Form{ //nolint:exhaustruct
		client:      c,
		data:        data.Clone(),
		defaults:    data.Clone(),
		errors:      Errors{},
		rememberKey: opts.RememberKey,
		recentFor:   DefaultRecentlySuccessfulFor,
	}

	if f.rememberKey != "" {
		if restored, ok := c.Restore(f.rememberKey); ok {
			if v, ok := restored.Map().Get(rememberData); ok && v.Kind() == inertiavalue.KindMapping {
				f.data = v.Map().Clone()
			}

			if v, ok := restored.Map().Get(rememberErrors); ok && v.Kind() == inertiavalue.KindMapping {
				f.errors = errorsFromValue(v)
			}
		}
	}

	return f
}

// Data returns a copy of the form data.
func (f *Form) Data() *inertiavalue.Map {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.data.Clone()
}

// Field returns the value at the dotted path.
func (f *Form) Field(path string) (inertiavalue.Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.data.Lookup(path)
}

// SetField stores v at the dotted path.
func (f *Form) SetField(path string, v inertiavalue.Value) {
	f.update(func() { f.data.SetPath(path, v) })
}

// SetData replaces all form data.
func (f *Form) SetData(data *inertiavalue.Map) {
	f.update(func() { f.data = data.Clone() })
}

// Defaults makes the current data the defaults.
func (f *Form) Defaults() {
	f.update(func() { f.defaults = f.data.Clone() })
}

// SetDefault sets the default value at the dotted path.
func (f *Form) SetDefault(path string, v inertiavalue.Value) {
	f.update(func() { f.defaults.SetPath(path, v) })
}

// Reset restores fields to their defaults. Without fields, all data is reset.
func (f *Form) Reset(fields ...string) {
	f.update(func() { f.reset(fields) })
}

func (f *Form) reset(fields []string) {
	if len(fields) == 0 {
		f.data = f.defaults.Clone()
		return
	}

	for _, field := range fields {
		v, _ := f.defaults.Lookup(field)
		f.data.SetPath(field, v.Clone())
	}
}

// SetError sets the error of field.
func (f *Form) SetError(field, message string) {
	f.update(func() { f.errors[field] = message })
}

// SetErrors merges errs into the form errors.
func (f *Form) SetErrors(errs Errors) {
	f.update(func() { maps.Copy(f.errors, errs) })
}

// ClearErrors removes the errors of fields. Without fields, all errors are
// removed.
func (f *Form) ClearErrors(fields ...string) {
	f.update(func() { f.clearErrors(fields) })
}

func (f *Form) clearErrors(fields []string) {
	if len(fields) == 0 {
		f.errors = Errors{}
		return
	}

	for _, field := range fields {
		delete(f.errors, field)
	}
}

// ResetAndClearErrors resets fields and clears their errors.
func (f *Form) ResetAndClearErrors(fields ...string) {
	f.update(func() {
		f.reset(fields)
		f.clearErrors(fields)
	})
}

// Transform sets fn to convert the form data into the submitted payload.
func (f *Form) Transform(fn func(*inertiavalue.Map) any) {
	f.mu.Lock()
	f.transform = fn
	f.mu.Unlock()
}

// IsDirty reports whether the data differs from the defaults.
func (f *Form) IsDirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.isDirty()
}

func (f *Form) isDirty() bool {
	return !inertiavalue.Equal(inertiavalue.Mapping(f.data), inertiavalue.Mapping(f.defaults))
}

// Errors returns a copy of the validation errors.
func (f *Form) Errors() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()

	return maps.Clone(f.errors)
}

// HasErrors reports whether the form has validation errors.
func (f *Form) HasErrors() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.errors) > 0
}

// State returns a snapshot of the form.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state()
}

func (f *Form) state() FormState {
	var progress *Progress
	if f.progress != nil {
		p := *f.progress
		progress = &p
	}

	return FormState{
		Data:               f.data.Clone(),
		Errors:             maps.Clone(f.errors),
		Progress:           progress,
		IsDirty:            f.isDirty(),
		HasErrors:          len(f.errors) > 0,
		Processing:         f.processing,
		WasSuccessful:      f.wasSuccessful,
		RecentlySuccessful: f.recentlySuccessful,
	}
}

// Subscribe registers fn to be called with the new state after every
// change. It returns a function that removes the subscription.
func (f *Form) Subscribe(fn func(FormState)) func() { return f.subs.add(fn) }

// update applies fn under the lock, then remembers the form and notifies
// subscribers.
func (f *Form) update(fn func()) {
	f.mu.Lock()
	fn()
	state := f.state()
	f.mu.Unlock()

	if f.rememberKey != "" {
		m := inertiavalue.NewMap()
		m.Set(rememberData, inertiavalue.Mapping(state.Data))

		errs := inertiavalue.NewMap()
		for field, msg := range state.Errors {
			errs.Set(field, inertiavalue.String(msg))
		}

		m.Set(rememberErrors, inertiavalue.Mapping(errs))

		if err := f.client.Remember(context.Background(), inertiavalue.Mapping(m), f.rememberKey); err != nil {
			d("failed to remember form %q: %v", f.rememberKey, err)
		}
	}

	for _, sub := range f.subs.snapshot() {
		sub(state)
	}
}

// Submit sends the form data to href with method. The hooks in opts run
// after the form has updated its own state.
func (f *Form) Submit(ctx context.Context, method, href string, opts VisitOptions) *Visit {
	f.mu.Lock()
	data := any(f.data.Clone())
	if f.transform != nil {
		data = f.transform(f.data.Clone())
	}
	f.mu.Unlock()

	opts.Method = method
	opts.Data = data

	user := opts

	opts.OnCancelToken = func(t CancelToken) {
		if v, ok := t.(*Visit); ok {
			f.mu.Lock()
			f.visit = v
			f.mu.Unlock()
		}

		if user.OnCancelToken != nil {
			user.OnCancelToken(t)
		}
	}

	opts.OnBefore = func(v *Visit) bool {
		f.update(func() {
			f.wasSuccessful = false
			f.recentlySuccessful = false
			f.stopTimer()
		})

		if user.OnBefore != nil {
			return user.OnBefore(v)
		}

		return true
	}

	opts.OnStart = func(v *Visit) {
		f.update(func() { f.processing = true })

		if user.OnStart != nil {
			user.OnStart(v)
		}
	}

	opts.OnProgress = func(p Progress) {
		f.update(func() { f.progress = &p })

		if user.OnProgress != nil {
			user.OnProgress(p)
		}
	}

	opts.OnSuccess = func(ctx context.Context, page *Page) error {
		f.update(func() {
			f.processing = false
			f.progress = nil
			f.errors = Errors{}
			f.wasSuccessful = true
			f.recentlySuccessful = true
			f.stopTimer()
			f.timer = time.AfterFunc(f.recentFor, func() {
				f.update(func() { f.recentlySuccessful = false })
			})
		})

		var err error
		if user.OnSuccess != nil {
			err = user.OnSuccess(ctx, page)
		}

		f.update(func() { f.defaults = f.data.Clone() })

		return err
	}

	opts.OnError = func(errs Errors) {
		f.update(func() {
			f.processing = false
			f.progress = nil
			f.errors = maps.Clone(errs)
		})

		if user.OnError != nil {
			user.OnError(errs)
		}
	}

	opts.OnCancel = func() {
		f.update(func() {
			f.processing = false
			f.progress = nil
		})

		if user.OnCancel != nil {
			user.OnCancel()
		}
	}

	opts.OnFinish = func(v *Visit) {
		f.update(func() {
			f.processing = false
			f.progress = nil
			f.visit = nil
		})

		if user.OnFinish != nil {
			user.OnFinish(v)
		}
	}

	return f.client.router.Visit(ctx, href, opts)
}

// Get submits the form with GET.
func (f *Form) Get(ctx context.Context, href string, opts VisitOptions) *Visit {
	return f.Submit(ctx, http.MethodGet, href, opts)
}

// Post submits the form with POST.
func (f *Form) Post(ctx context.Context, href string, opts VisitOptions) *Visit {
	return f.Submit(ctx, http.MethodPost, href, opts)
}

// Put submits the form with PUT.
func (f *Form) Put(ctx context.Context, href string, opts VisitOptions) *Visit {
	return f.Submit(ctx, http.MethodPut, href, opts)
}

// Patch submits the form with PATCH.
func (f *Form) Patch(ctx context.Context, href string, opts VisitOptions) *Visit {
	return f.Submit(ctx, http.MethodPatch, href, opts)
}

// Delete submits the form with DELETE.
func (f *Form) Delete(ctx context.Context, href string, opts VisitOptions) *Visit {
	return f.Submit(ctx, http.MethodDelete, href, opts)
}

// Cancel cancels the submission in flight, if any.
func (f *Form) Cancel() {
	f.mu.Lock()
	v := f.visit
	f.mu.Unlock()

	if v != nil {
		v.Cancel()
	}
}

// stopTimer must be called with f.mu held.
func (f *Form) stopTimer() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
