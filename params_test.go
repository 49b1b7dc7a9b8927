package inertiaclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreserve(t *testing.T) {
	t.Parallel()

	withErrors := newTestPage(t, "Home", "/", `{"errors":{"name":"required"}}`)
	withoutErrors := newTestPage(t, "Home", "/", `{"errors":{}}`)

	tests := []struct {
		name     string
		preserve Preserve
		page     *Page
		want     bool
		set      bool
	}{
		{name: "zero value", preserve: Preserve{}, page: withErrors}, //nolint:exhaustruct
		{name: "always", preserve: PreserveAlways, page: withoutErrors, want: true, set: true},
		{name: "on errors with errors", preserve: PreserveOnErrors, page: withErrors, want: true, set: true},
		{name: "on errors without errors", preserve: PreserveOnErrors, page: withoutErrors, set: true},
		{
			name:     "when",
			preserve: PreserveWhen(func(p *Page) bool { return p.Component == "Home" }),
			page:     withoutErrors,
			want:     true,
			set:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.preserve.Resolve(tt.page))
			assert.Equal(t, tt.set, tt.preserve.isSet())
		})
	}

	assert.True(t, PreserveAlways.IsAlways())
	assert.False(t, PreserveOnErrors.IsAlways())
}

func TestRequestParams(t *testing.T) {
	t.Parallel()

	t.Run("hooks fire once", func(t *testing.T) {
		t.Parallel()

		var starts, finishes, progress int

		p := newTestParams(t, "/", VisitOptions{ //nolint:exhaustruct
			OnStart:    func(*Visit) { starts++ },
			OnFinish:   func(*Visit) { finishes++ },
			OnProgress: func(Progress) { progress++ },
		})

		p.onStart(nil)
		p.onStart(nil)
		p.onFinish(nil)
		p.onFinish(nil)
		p.onProgress(Progress{}) //nolint:exhaustruct
		p.onProgress(Progress{}) //nolint:exhaustruct

		assert.Equal(t, 1, starts)
		assert.Equal(t, 1, finishes)
		assert.Equal(t, 2, progress, "progress is reported every time")
	})

	t.Run("missing hooks are no-ops", func(t *testing.T) {
		t.Parallel()

		p := newTestParams(t, "/", VisitOptions{}) //nolint:exhaustruct

		assert.True(t, p.onBefore(nil))
		require.NoError(t, p.onSuccess(t.Context(), nil))
		p.onCancel()
		p.onError(nil)
		p.onPrefetched(nil)
	})

	t.Run("merge rebinds options and hooks", func(t *testing.T) {
		t.Parallel()

		var first, second int

		u := newTestParams(t, "/users", VisitOptions{}).URL()                      //nolint:exhaustruct
		p := newPrefetchParams(u, VisitOptions{OnStart: func(*Visit) { first++ }}) //nolint:exhaustruct
		assert.True(t, p.IsPrefetch())

		p.onStart(nil)
		p.merge(VisitOptions{OnStart: func(*Visit) { second++ }, Only: []string{"users"}}) //nolint:exhaustruct
		p.onStart(nil)

		assert.Equal(t, 1, first)
		assert.Equal(t, 1, second)
		assert.False(t, p.IsPrefetch())
		assert.True(t, p.IsPartial())
	})

	t.Run("options are copied", func(t *testing.T) {
		t.Parallel()

		only := []string{"a"}
		header := http.Header{"X-A": {"1"}}
		p := newTestParams(t, "/", VisitOptions{Only: only, Headers: header}) //nolint:exhaustruct

		only[0] = "b"
		header.Set("X-A", "2")

		opts := p.Options()
		assert.Equal(t, []string{"a"}, opts.Only)
		assert.Equal(t, "1", opts.Headers.Get("X-A"))

		opts.Only[0] = "c"
		assert.Equal(t, []string{"a"}, p.Options().Only)

		u := p.URL()
		u.Path = "/changed"
		assert.Equal(t, "/", p.URL().Path)
	})

	t.Run("deferred callbacks run once in order", func(t *testing.T) {
		t.Parallel()

		var calls []int

		p := newTestParams(t, "/", VisitOptions{}) //nolint:exhaustruct
		p.Defer(func() { calls = append(calls, 1) })
		p.Defer(func() { calls = append(calls, 2) })

		p.runCallbacks()
		p.runCallbacks()

		assert.Equal(t, []int{1, 2}, calls)
	})

	t.Run("partial", func(t *testing.T) {
		t.Parallel()

		assert.False(t, newTestParams(t, "/", VisitOptions{}).IsPartial())                     //nolint:exhaustruct
		assert.True(t, newTestParams(t, "/", VisitOptions{Except: []string{"a"}}).IsPartial()) //nolint:exhaustruct
		assert.True(t, newTestParams(t, "/", VisitOptions{Reset: []string{"a"}}).IsPartial())  //nolint:exhaustruct
		assert.Equal(t, http.MethodGet, VisitOptions{}.method())                               //nolint:exhaustruct
		assert.Equal(t, http.MethodPost, VisitOptions{Method: http.MethodPost}.method())       //nolint:exhaustruct
	})

	t.Run("preserve options resolve against the page", func(t *testing.T) {
		t.Parallel()

		p := newTestParams(t, "/", VisitOptions{ //nolint:exhaustruct
			PreserveScroll: PreserveOnErrors,
			PreserveState:  PreserveAlways,
		})

		p.setPreserveOptions(newTestPage(t, "Home", "/", `{"errors":{}}`))

		scroll, state := p.preserveFlags()
		assert.False(t, scroll)
		assert.True(t, state)
	})
}
