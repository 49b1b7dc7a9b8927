package inertiaclient

import (
	"cmp"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"go.inout.gg/inertiaclient/inertiavalue"
	"go.inout.gg/inertiaclient/internal/inertiaheader"
)

const testBaseURL = "https://app.test"

func newTestClient(t *testing.T, config *Config) *Client {
	t.Helper()

	if config == nil {
		config = &Config{} //nolint:exhaustruct
	}

	config.BaseURL = cmp.Or(config.BaseURL, testBaseURL)

	c, err := New(config)
	require.NoError(t, err)
	t.Cleanup(c.Router().Stop)

	return c
}

// newTestPage builds a page whose props are decoded from propsJSON.
func newTestPage(t *testing.T, component, href, propsJSON string) *Page {
	t.Helper()

	props := inertiavalue.NewMap()
	if propsJSON != "" {
		require.NoError(t, props.UnmarshalJSON([]byte(propsJSON)))
	}

	return &Page{Component: component, URL: href, Props: props} //nolint:exhaustruct
}

func pageResponse(page *Page) *RawResponse {
	h := make(http.Header)
	h.Set(inertiaheader.HeaderXInertia, inertiaheader.HeaderValueTrue)

	return &RawResponse{Header: h, Page: page, StatusCode: http.StatusOK} //nolint:exhaustruct
}

func newTestParams(t *testing.T, href string, opts VisitOptions) *RequestParams {
	t.Helper()

	u, err := url.Parse(testBaseURL + href)
	require.NoError(t, err)

	return NewRequestParams(u, opts)
}

func memoryHistory(t *testing.T, c *Client) *MemoryHistory {
	t.Helper()

	h, ok := c.history.nav.(*MemoryHistory)
	require.True(t, ok, "client must use a MemoryHistory")

	return h
}

func propJSON(t *testing.T, page *Page, key string) string {
	t.Helper()

	v, ok := page.Prop(key)
	require.True(t, ok, "prop %q must exist", key)

	b, err := v.MarshalJSON()
	require.NoError(t, err)

	return string(b)
}
