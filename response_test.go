package inertiaclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.inout.gg/inertiaclient/inertiavalue"
	"go.inout.gg/inertiaclient/internal/inertiaheader"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	inertia := http.Header{inertiaheader.HeaderXInertia: {"true"}}
	location := http.Header{inertiaheader.HeaderXInertiaLocation: {"https://example.com/x"}}

	tests := []struct {
		name string
		raw  *RawResponse
		want outcome
	}{
		{
			name: "page",
			raw:  &RawResponse{Header: inertia, Body: []byte(`{"component":"Home","url":"/"}`), StatusCode: http.StatusOK},
			want: outcomeStructuredPage{}, //nolint:exhaustruct
		},
		{
			name: "page without component",
			raw:  &RawResponse{Header: inertia, Body: []byte(`{"url":"/"}`), StatusCode: http.StatusOK},
			want: outcomeInvalid{}, //nolint:exhaustruct
		},
		{
			name: "malformed page",
			raw:  &RawResponse{Header: inertia, Body: []byte(`<html>`), StatusCode: http.StatusOK},
			want: outcomeInvalid{}, //nolint:exhaustruct
		},
		{
			name: "external redirect",
			raw:  &RawResponse{Header: location, StatusCode: http.StatusConflict},
			want: outcomeExternalRedirect{}, //nolint:exhaustruct
		},
		{
			name: "location header without conflict status",
			raw:  &RawResponse{Header: location, StatusCode: http.StatusOK},
			want: outcomeInvalid{}, //nolint:exhaustruct
		},
		{
			name: "plain response",
			raw:  &RawResponse{Header: http.Header{}, Body: []byte(`<html>`), StatusCode: http.StatusInternalServerError},
			want: outcomeInvalid{}, //nolint:exhaustruct
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.IsType(t, tt.want, classify(tt.raw))
		})
	}

	t.Run("decoded page has props", func(t *testing.T) {
		t.Parallel()

		o := classify(&RawResponse{Header: inertia, Body: []byte(`{"component":"Home","url":"/"}`)}) //nolint:exhaustruct
		page := o.(outcomeStructuredPage).page                                                       //nolint:forcetypeassert
		assert.NotNil(t, page.Props)
		assert.Equal(t, "Home", page.Component)
	})
}

func TestResponse_Staleness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		current   *Page // page shown once the response arrives; nil keeps the originating one
		opts      VisitOptions
		component string
		committed bool
	}{
		{
			name:      "async response for the same page",
			opts:      VisitOptions{Async: true, Only: []string{"users"}}, //nolint:exhaustruct
			component: "Users/Index",
			committed: true,
		},
		{
			name:      "async response after the component changed",
			current:   &Page{Component: "Posts/Index", URL: "/posts"}, //nolint:exhaustruct
			opts:      VisitOptions{Async: true},                      //nolint:exhaustruct
			component: "Users/Index",
		},
		{
			name:      "async response after the path changed",
			current:   &Page{Component: "Users/Index", URL: "/admins?page=1"}, //nolint:exhaustruct
			opts:      VisitOptions{Async: true},                              //nolint:exhaustruct
			component: "Users/Index",
		},
		{
			name:      "async response after only the query changed",
			current:   &Page{Component: "Users/Index", URL: "/users?page=2"}, //nolint:exhaustruct
			opts:      VisitOptions{Async: true},                             //nolint:exhaustruct
			component: "Users/Index",
			committed: true,
		},
		{
			name:      "async response after only the fragment changed",
			current:   &Page{Component: "Users/Index", URL: "/users?page=1#bottom"}, //nolint:exhaustruct
			opts:      VisitOptions{Async: true},                                    //nolint:exhaustruct
			component: "Users/Index",
			committed: true,
		},
		{
			name:      "async response redirected to another component",
			current:   &Page{Component: "Posts/Index", URL: "/posts"}, //nolint:exhaustruct
			opts:      VisitOptions{Async: true},                      //nolint:exhaustruct
			component: "Auth/Login",
			committed: true,
		},
		{
			name:      "sync response after the component changed",
			current:   &Page{Component: "Posts/Index", URL: "/posts"}, //nolint:exhaustruct
			opts:      VisitOptions{},                                 //nolint:exhaustruct
			component: "Users/Index",
			committed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, nil)
			require.NoError(t, c.Init(t.Context(), newTestPage(t, "Users/Index", "/users?page=1", `{"users":[1],"filter":"all"}`)))

			originating := c.Store().Get()

			if tt.current != nil {
				current := tt.current.Clone()
				current.Props = inertiavalue.NewMap()

				resp := c.NewResponse(newTestParams(t, current.URL, VisitOptions{}), pageResponse(current), originating) //nolint:exhaustruct
				require.NoError(t, resp.Handle(t.Context()))
			}

			before := c.Store().Get()

			var succeeded bool
			tt.opts.OnSuccess = func(context.Context, *Page) error {
				succeeded = true
				return nil
			}

			incoming := newTestPage(t, tt.component, "/users?page=1", `{"users":[2]}`)
			resp := c.NewResponse(newTestParams(t, "/users?page=1", tt.opts), pageResponse(incoming), originating)
			require.NoError(t, resp.Handle(t.Context()))

			assert.Equal(t, tt.committed, succeeded)

			if !tt.committed {
				assert.Same(t, before, c.Store().Get(), "stale response must not touch the store")
				return
			}

			page := c.Store().Get()
			assert.Equal(t, tt.component, page.Component)
			assert.JSONEq(t, `[2]`, propJSON(t, page, "users"))
		})
	}
}

func TestResponse_PartialReloadMergesProps(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	require.NoError(t, c.Init(t.Context(), newTestPage(t, "Feed", "/feed", `{"items":[{"id":1,"v":"a"}],"title":"Feed"}`)))

	incoming := newTestPage(t, "Feed", "/feed", `{"items":[{"id":1,"v":"b"},{"id":2,"v":"c"}]}`)
	incoming.MergeProps = []string{"items"}
	incoming.MatchPropsOn = []string{"items.id"}

	params := newTestParams(t, "/feed", VisitOptions{Only: []string{"items"}}) //nolint:exhaustruct
	require.NoError(t, c.NewResponse(params, pageResponse(incoming), c.Store().Get()).Handle(t.Context()))

	page := c.Store().Get()
	assert.JSONEq(t, `[{"id":1,"v":"b"},{"id":2,"v":"c"}]`, propJSON(t, page, "items"))
	assert.JSONEq(t, `"Feed"`, propJSON(t, page, "title"))
}

func TestResponse_FullVisitDoesNotMerge(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	require.NoError(t, c.Init(t.Context(), newTestPage(t, "Feed", "/feed", `{"items":[1],"title":"Feed"}`)))

	incoming := newTestPage(t, "Feed", "/feed", `{"items":[2]}`)
	incoming.MergeProps = []string{"items"}

	params := newTestParams(t, "/feed", VisitOptions{}) //nolint:exhaustruct
	require.NoError(t, c.NewResponse(params, pageResponse(incoming), c.Store().Get()).Handle(t.Context()))

	page := c.Store().Get()
	assert.JSONEq(t, `[2]`, propJSON(t, page, "items"))
	assert.False(t, page.Props.Has("title"))
}

func TestResponse_ExternalRedirect(t *testing.T) {
	t.Parallel()

	redirect := func(location string) *RawResponse {
		return &RawResponse{ //nolint:exhaustruct
			Header:     http.Header{inertiaheader.HeaderXInertiaLocation: {location}},
			StatusCode: http.StatusConflict,
		}
	}

	t.Run("navigates away", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		locator := NewMockLocator(ctrl)

		history, err := NewMemoryHistory(testBaseURL)
		require.NoError(t, err)

		storage := &MemoryStorage{}                                                          //nolint:exhaustruct
		c := newTestClient(t, &Config{History: history, Locator: locator, Storage: storage}) //nolint:exhaustruct

		current, err := url.Parse(testBaseURL + "/users")
		require.NoError(t, err)

		locator.EXPECT().Location().Return(current).AnyTimes()
		locator.EXPECT().
			Assign(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, u *url.URL) error {
				assert.Equal(t, "https://example.com/x", u.String())
				return nil
			})

		var succeeded bool

		params := newTestParams(t, "/users", VisitOptions{ //nolint:exhaustruct
			PreserveScroll: PreserveAlways,
			OnSuccess: func(context.Context, *Page) error {
				succeeded = true
				return nil
			},
		})
		require.NoError(t, c.NewResponse(params, redirect("https://example.com/x"), nil).Handle(t.Context()))

		assert.Nil(t, c.Store().Get(), "no page is committed")
		assert.False(t, succeeded)

		marker, ok, err := storage.Get(t.Context(), LocationVisitKey)
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"preserveScroll":true}`, string(marker))
	})

	t.Run("reloads the same URL", func(t *testing.T) {
		t.Parallel()

		history, err := NewMemoryHistory(testBaseURL + "/users")
		require.NoError(t, err)

		c := newTestClient(t, &Config{History: history}) //nolint:exhaustruct

		params := newTestParams(t, "/users", VisitOptions{}) //nolint:exhaustruct
		require.NoError(t, c.NewResponse(params, redirect("/users#top"), nil).Handle(t.Context()))

		assert.Equal(t, 1, history.Reloads())
		assert.Empty(t, history.Navigations())
	})

	t.Run("keeps the requested fragment", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, nil)
		history := memoryHistory(t, c)

		params := newTestParams(t, "/dashboard#stats", VisitOptions{}) //nolint:exhaustruct
		require.NoError(t, c.NewResponse(params, redirect("/dashboard"), nil).Handle(t.Context()))

		navs := history.Navigations()
		require.Len(t, navs, 1)
		assert.Equal(t, testBaseURL+"/dashboard#stats", navs[0].String())
	})
}

func TestResponse_Invalid(t *testing.T) {
	t.Parallel()

	t.Run("shows the body", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		interstitial := NewMockInterstitial(ctrl)
		c := newTestClient(t, &Config{Interstitial: interstitial}) //nolint:exhaustruct

		require.NoError(t, c.Init(t.Context(), newTestPage(t, "Home", "/", "")))
		before := c.Store().Get()

		var invalid *RawResponse
		c.Events().OnInvalid(func(raw *RawResponse) bool {
			invalid = raw
			return true
		})

		raw := &RawResponse{Header: http.Header{}, Body: []byte("<h1>Server Error</h1>"), StatusCode: http.StatusInternalServerError} //nolint:exhaustruct
		interstitial.EXPECT().Show(gomock.Any(), []byte("<h1>Server Error</h1>")).Return(nil)

		require.NoError(t, c.NewResponse(newTestParams(t, "/", VisitOptions{}), raw, before).Handle(t.Context())) //nolint:exhaustruct

		assert.Same(t, raw, invalid)
		assert.Same(t, before, c.Store().Get())
	})

	t.Run("malformed page is shown too", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		interstitial := NewMockInterstitial(ctrl)
		c := newTestClient(t, &Config{Interstitial: interstitial}) //nolint:exhaustruct

		raw := &RawResponse{ //nolint:exhaustruct
			Header:     http.Header{inertiaheader.HeaderXInertia: {"true"}},
			Body:       []byte(`{"component":`),
			StatusCode: http.StatusOK,
		}
		interstitial.EXPECT().Show(gomock.Any(), []byte(`{"component":`)).Return(nil)

		require.NoError(t, c.NewResponse(newTestParams(t, "/", VisitOptions{}), raw, nil).Handle(t.Context())) //nolint:exhaustruct
		assert.Nil(t, c.Store().Get())
	})

	t.Run("listener suppresses the interstitial", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		interstitial := NewMockInterstitial(ctrl)
		c := newTestClient(t, &Config{Interstitial: interstitial}) //nolint:exhaustruct

		c.Events().OnInvalid(func(*RawResponse) bool { return false })

		raw := &RawResponse{Header: http.Header{}, Body: []byte("nope"), StatusCode: http.StatusOK}            //nolint:exhaustruct
		require.NoError(t, c.NewResponse(newTestParams(t, "/", VisitOptions{}), raw, nil).Handle(t.Context())) //nolint:exhaustruct
	})

	t.Run("interstitial failure is returned", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		c := newTestClient(t, &Config{ //nolint:exhaustruct
			Interstitial: InterstitialFunc(func(context.Context, []byte) error { return boom }),
		})

		raw := &RawResponse{Header: http.Header{}, Body: []byte("nope"), StatusCode: http.StatusOK} //nolint:exhaustruct
		err := c.NewResponse(newTestParams(t, "/", VisitOptions{}), raw, nil).Handle(t.Context())   //nolint:exhaustruct
		require.ErrorIs(t, err, boom)
	})
}

func TestResponse_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		errors   string
		errorBag string
		want     Errors
	}{
		{
			name:   "default bag",
			errors: `{"name":"required"}`,
			want:   Errors{"name": "required"},
		},
		{
			name:     "named bag",
			errors:   `{"createUser":{"name":"required"}}`,
			errorBag: "createUser",
			want:     Errors{"name": "required"},
		},
		{
			name:     "named bag missing",
			errors:   `{"updateUser":{"name":"required"}}`,
			errorBag: "createUser",
			want:     Errors{},
		},
		{
			name:   "non-string messages",
			errors: `{"tags":["too many"]}`,
			want:   Errors{"tags": `["too many"]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, nil)
			require.NoError(t, c.Init(t.Context(), newTestPage(t, "Users/Create", "/users/create", "")))

			var global Errors
			c.Events().OnError(func(errs Errors) { global = errs })
			c.Events().OnSuccess(func(*Page) { t.Error("success must not fire") })

			var got Errors
			params := newTestParams(t, "/users", VisitOptions{ //nolint:exhaustruct
				Method:   http.MethodPost,
				ErrorBag: tt.errorBag,
				OnError:  func(errs Errors) { got = errs },
				OnSuccess: func(context.Context, *Page) error {
					t.Error("OnSuccess must not run")
					return nil
				},
			})

			incoming := newTestPage(t, "Users/Create", "/users/create", `{"errors":`+tt.errors+`}`)
			require.NoError(t, c.NewResponse(params, pageResponse(incoming), c.Store().Get()).Handle(t.Context()))

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, global)
			assert.True(t, c.Store().Get().Props.Has("errors"), "page is still committed")
		})
	}
}

func TestResponse_Success(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	require.NoError(t, c.Init(t.Context(), newTestPage(t, "Home", "/", "")))

	var events []string
	c.Events().OnNavigate(func(p *Page) { events = append(events, "navigate:"+p.Component) })
	c.Events().OnSuccess(func(p *Page) { events = append(events, "success:"+p.Component) })

	params := newTestParams(t, "/users", VisitOptions{ //nolint:exhaustruct
		OnSuccess: func(_ context.Context, p *Page) error {
			events = append(events, "onSuccess:"+p.URL)
			return nil
		},
	})
	params.Defer(func() { events = append(events, "deferred") })

	incoming := newTestPage(t, "Users/Index", "/users", `{"errors":{}}`)
	require.NoError(t, c.NewResponse(params, pageResponse(incoming), c.Store().Get()).Handle(t.Context()))

	assert.Equal(t, []string{"deferred", "navigate:Users/Index", "success:Users/Index", "onSuccess:/users"}, events)
	assert.Equal(t, 2, memoryHistory(t, c).Len())
}

func TestResponse_CommitsInEnqueueOrder(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	require.NoError(t, c.Init(t.Context(), newTestPage(t, "Home", "/", "")))

	originating := c.Store().Get()

	var (
		mu      sync.Mutex
		commits []string
	)

	c.Store().Subscribe(func(commit Commit) {
		mu.Lock()
		commits = append(commits, commit.Page.URL)
		mu.Unlock()
	})

	running := make(chan struct{})
	gate := make(chan struct{})

	first := newTestParams(t, "/first", VisitOptions{}) //nolint:exhaustruct
	first.Defer(func() {
		close(running)
		<-gate
	})

	responses := []*Response{
		c.NewResponse(first, pageResponse(newTestPage(t, "First", "/first", "")), originating),
		c.NewResponse(newTestParams(t, "/second", VisitOptions{}), pageResponse(newTestPage(t, "Second", "/second", "")), originating), //nolint:exhaustruct
		// Refresh of Home, which is no longer shown once Second is committed.
		c.NewResponse(newTestParams(t, "/", VisitOptions{Async: true}), pageResponse(newTestPage(t, "Home", "/", `{"stale":true}`)), originating), //nolint:exhaustruct
		c.NewResponse(newTestParams(t, "/third", VisitOptions{}), pageResponse(newTestPage(t, "Third", "/third", "")), originating),               //nolint:exhaustruct
	}

	results := make([]chan error, len(responses))

	for i, resp := range responses {
		results[i] = make(chan error, 1)

		go func() { results[i] <- resp.Handle(t.Context()) }()

		if i == 0 {
			<-running
			continue
		}

		require.Eventually(t, func() bool { return c.queue.Len() == i }, time.Second, time.Millisecond)
	}

	mu.Lock()
	assert.Empty(t, commits, "nothing is committed while the first response is held")
	mu.Unlock()

	close(gate)

	for _, result := range results {
		require.NoError(t, <-result)
	}

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{"/first", "/second", "/third"}, commits)
	assert.Equal(t, "Third", c.Store().Get().Component)
	assert.Equal(t, 4, memoryHistory(t, c).Len())
}

func TestResponse_SuccessCallbackError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	c := newTestClient(t, nil)

	params := newTestParams(t, "/", VisitOptions{ //nolint:exhaustruct
		OnSuccess: func(context.Context, *Page) error { return boom },
	})

	err := c.NewResponse(params, pageResponse(newTestPage(t, "Home", "/", "")), nil).Handle(t.Context())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "Home", c.Store().Get().Component, "page is committed before the callback")
}

func TestResponse_URL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		request     string
		response    string
		preserveURL bool
		want        string
	}{
		{name: "response URL", request: "/users", response: "/users?page=2", want: "/users?page=2"},
		{name: "request fragment is kept", request: "/users?page=2#top", response: "/users?page=2", want: "/users?page=2#top"},
		{name: "fragment dropped on redirect", request: "/users#top", response: "/login", want: "/login"},
		{name: "absolute response URL", request: "/users", response: testBaseURL + "/users/1", want: "/users/1"},
		{name: "preserve URL", request: "/users", response: "/users?page=2", preserveURL: true, want: "/start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, nil)
			require.NoError(t, c.Init(t.Context(), newTestPage(t, "Start", "/start", "")))

			params := newTestParams(t, tt.request, VisitOptions{PreserveURL: tt.preserveURL}) //nolint:exhaustruct
			incoming := newTestPage(t, "Users", tt.response, "")
			require.NoError(t, c.NewResponse(params, pageResponse(incoming), c.Store().Get()).Handle(t.Context()))

			assert.Equal(t, tt.want, c.Store().Get().URL)
			assert.False(t, c.History().PreserveURL(), "preserve URL mode ends with the visit")
		})
	}
}

func TestResponse_RememberedState(t *testing.T) {
	t.Parallel()

	for _, preserve := range []bool{true, false} {
		t.Run(map[bool]string{true: "preserved", false: "discarded"}[preserve], func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, nil)
			require.NoError(t, c.Init(t.Context(), newTestPage(t, "Users/Edit", "/users/1", "")))
			require.NoError(t, c.Remember(t.Context(), inertiavalue.String("draft"), "form"))

			var opts VisitOptions
			if preserve {
				opts.PreserveState = PreserveAlways
			}

			incoming := newTestPage(t, "Users/Edit", "/users/1", "")
			require.NoError(t, c.NewResponse(newTestParams(t, "/users/1", opts), pageResponse(incoming), c.Store().Get()).Handle(t.Context()))

			v, ok := c.Restore("form")
			assert.Equal(t, preserve, ok)

			if preserve {
				assert.Equal(t, "draft", v.Str())
			}
		})
	}
}

func TestResponse_HandlePrefetch(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	require.NoError(t, c.Init(t.Context(), newTestPage(t, "Users", "/users", "")))

	other := c.NewResponse(newTestParams(t, "/posts", VisitOptions{}), pageResponse(newTestPage(t, "Posts", "/posts", "")), c.Store().Get()) //nolint:exhaustruct
	require.NoError(t, other.HandlePrefetch(t.Context()))
	assert.Equal(t, "Users", c.Store().Get().Component, "response for another URL is dropped")

	same := c.NewResponse(newTestParams(t, "/users#list", VisitOptions{}), pageResponse(newTestPage(t, "Users", "/users", `{"n":1}`)), c.Store().Get()) //nolint:exhaustruct
	require.NoError(t, same.HandlePrefetch(t.Context()))
	assert.JSONEq(t, `1`, propJSON(t, c.Store().Get(), "n"))
}

func TestResponse_Prefetch(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	require.NoError(t, c.Init(t.Context(), newTestPage(t, "Home", "/", "")))

	var prefetched []VisitOptions
	c.Events().OnPrefetched(func(_ *RawResponse, opts VisitOptions) { prefetched = append(prefetched, opts) })

	var hooked bool

	u, err := url.Parse(testBaseURL + "/users")
	require.NoError(t, err)

	params := newPrefetchParams(u, VisitOptions{ //nolint:exhaustruct
		OnPrefetched: func(*RawResponse, VisitOptions) { hooked = true },
	})
	resp := c.NewResponse(params, pageResponse(newTestPage(t, "Users", "/users", "")), c.Store().Get())

	require.NoError(t, resp.Handle(t.Context()))
	assert.True(t, hooked)
	assert.Len(t, prefetched, 1)
	assert.Equal(t, "Home", c.Store().Get().Component, "prefetch does not commit")

	var succeeded bool
	resp.MergeParams(VisitOptions{ //nolint:exhaustruct
		OnSuccess: func(context.Context, *Page) error {
			succeeded = true
			return nil
		},
	})

	require.NoError(t, resp.Handle(t.Context()))
	assert.True(t, succeeded)
	assert.Equal(t, "Users", c.Store().Get().Component)
}
