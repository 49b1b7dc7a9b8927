// Package inertiahttp sends visit requests over net/http and reads the
// response in full.
package inertiahttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.inout.gg/foundations/debug"
)

//nolint:gochecknoglobals
var d = debug.Debuglog("inertiaclient/http")

var _ Client = (*httpClient)(nil)

// Progress reports how much of a request body has been sent.
type Progress struct {
	Loaded     int64
	Total      int64
	Percentage float64
}

// Request is an outgoing visit request.
type Request struct {
	URL        *url.URL
	Header     http.Header
	OnProgress func(Progress)
	Method     string
	Body       []byte
}

// Response is a fully read server response.
type Response struct {
	Header     http.Header
	Body       []byte
	StatusCode int
}

// Client performs visit requests.
type Client interface {
	// Do sends req and reads the whole response. Non-2xx statuses are not
	// errors; they are returned for the caller to interpret.
	Do(context.Context, *Request) (*Response, error)
}

type httpClient struct {
	client *http.Client
}

// New creates a Client on top of client. If client is nil,
// http.DefaultClient is used.
func New(client *http.Client) Client {
	if client == nil {
		client = http.DefaultClient
	}

	return &httpClient{client}
}

func (c *httpClient) Do(ctx context.Context, req *Request) (*Response, error) {
	debug.Assert(req != nil, "request must be set")
	debug.Assert(req.URL != nil, "request URL must be set")

	var body io.Reader
	if len(req.Body) > 0 {
		body = &progressReader{
			r:     bytes.NewReader(req.Body),
			total: int64(len(req.Body)),
			fn:    req.OnProgress,
		}
	}

	r, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("inertiaclient: failed to create HTTP request: %w", err)
	}

	if body != nil {
		r.ContentLength = int64(len(req.Body))
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}

	d("%s %s", req.Method, req.URL.Redacted())

	resp, err := c.client.Do(r)
	if err != nil {
		return nil, fmt.Errorf("inertiaclient: failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("inertiaclient: failed to read HTTP response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       b,
	}, nil
}

// progressReader reports upload progress while the transport reads the body.
type progressReader struct {
	r      io.Reader
	fn     func(Progress)
	total  int64
	loaded int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.fn != nil {
		p.loaded += int64(n)
		p.fn(Progress{
			Loaded:     p.loaded,
			Total:      p.total,
			Percentage: float64(p.loaded) / float64(p.total) * 100, //nolint:mnd
		})
	}

	return n, err //nolint:wrapcheck
}
