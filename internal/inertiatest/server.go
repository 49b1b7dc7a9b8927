// Package inertiatest provides an Inertia server for tests. It renders pages
// the way a real server adapter does, honoring partial reloads, merge props,
// error bags, external redirects and asset version checks.
package inertiatest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/go-json-experiment/json"

	"go.inout.gg/inertiaclient/inertiavalue"
	"go.inout.gg/inertiaclient/internal/inertiabase"
	"go.inout.gg/inertiaclient/internal/inertiaheader"
)

// RenderContext is the data of one rendered page.
type RenderContext struct {
	// Errors are validation errors delivered in the "errors" prop.
	Errors map[string]string

	Props []Prop

	ClearHistory   bool
	EncryptHistory bool
}

// Request is a request received by the Server.
type Request struct {
	Header http.Header
	Method string
	URL    string
	Body   []byte
}

// Server is an httptest.Server speaking the Inertia protocol.
type Server struct {
	*httptest.Server

	mux      *http.ServeMux
	version  string
	requests []Request
	mu       sync.Mutex
}

// NewServer starts a Server with the given asset version. It is closed when
// the test ends.
func NewServer(t testing.TB, version string) *Server {
	t.Helper()

	s := &Server{mux: http.NewServeMux(), version: version} //nolint:exhaustruct
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)

	return s
}

// Version returns the asset version of the server.
func (s *Server) Version() string { return s.version }

// Handle registers h for pattern, as http.ServeMux does.
func (s *Server) Handle(pattern string, h http.HandlerFunc) { s.mux.HandleFunc(pattern, h) }

// Page registers a handler rendering component with rc for pattern.
func (s *Server) Page(pattern, component string, rc RenderContext) {
	s.Handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		if err := s.Render(w, r, component, rc); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.requests)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Header: r.Header.Clone(),
		Method: r.Method,
		URL:    r.RequestURI,
		Body:   body,
	})
	s.mu.Unlock()

	w.Header().Set(inertiaheader.HeaderVary, inertiaheader.HeaderXInertia)

	if isInertiaRequest(r) && r.Method == http.MethodGet &&
		r.Header.Get(inertiaheader.HeaderXInertiaVersion) != s.version {
		Location(w, r, r.RequestURI)
		return
	}

	s.mux.ServeHTTP(w, r)
}

// Render writes component as an Inertia page. Non-Inertia requests get the
// page embedded in an HTML document.
func (s *Server) Render(w http.ResponseWriter, r *http.Request, component string, rc RenderContext) error {
	page, err := s.newPage(r, component, rc)
	if err != nil {
		return err
	}

	b, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("inertiatest: failed to encode page: %w", err)
	}

	if !isInertiaRequest(r) {
		w.Header().Set(inertiaheader.HeaderContentType, inertiaheader.ContentTypeHTML)
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `<div id="app" data-page="%s"></div>`, strings.ReplaceAll(string(b), `"`, "&quot;"))

		return nil
	}

	w.Header().Set(inertiaheader.HeaderXInertia, inertiaheader.HeaderValueTrue)
	w.Header().Set(inertiaheader.HeaderContentType, inertiaheader.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)

	return nil
}

func (s *Server) newPage(r *http.Request, component string, rc RenderContext) (*inertiabase.Page, error) {
	props := slices.Clone(rc.Props)
	props = append(props, makeValidationErrors(rc.Errors, r.Header.Get(inertiaheader.HeaderXInertiaErrorBag)))

	m, err := makeProps(r, component, props)
	if err != nil {
		return nil, err
	}

	values, err := inertiavalue.MapFrom(m)
	if err != nil {
		return nil, fmt.Errorf("inertiatest: failed to convert props: %w", err)
	}

	reset := extractHeaderValueList(r.Header.Get(inertiaheader.HeaderXInertiaReset))

	page := &inertiabase.Page{ //nolint:exhaustruct
		Component:      component,
		Props:          values,
		URL:            r.RequestURI,
		Version:        s.version,
		ClearHistory:   rc.ClearHistory,
		EncryptHistory: rc.EncryptHistory,
	}

	if !isPartialComponentRequest(r, component) {
		page.DeferredProps = makeDeferredProps(props)
	}

	for _, p := range props {
		if slices.Contains(reset, p.key) {
			continue
		}

		switch {
		case p.deep:
			page.DeepMergeProps = append(page.DeepMergeProps, p.key)
		case p.mergeable:
			page.MergeProps = append(page.MergeProps, p.key)
		default:
			continue
		}

		for _, field := range p.matchOn {
			page.MatchPropsOn = append(page.MatchPropsOn, p.key+"."+field)
		}
	}

	return page, nil
}

func makeProps(r *http.Request, component string, props []Prop) (map[string]any, error) {
	partial := isPartialComponentRequest(r, component)
	whitelist := extractHeaderValueList(r.Header.Get(inertiaheader.HeaderXInertiaPartialData))
	blacklist := extractHeaderValueList(r.Header.Get(inertiaheader.HeaderXInertiaPartialExcept))

	m := make(map[string]any, len(props))

	for _, prop := range props {
		if partial && prop.ignorable {
			if len(whitelist) > 0 && !slices.Contains(whitelist, prop.key) ||
				len(blacklist) > 0 && slices.Contains(blacklist, prop.key) {
				continue
			}
		}

		// Lazy props are resolved only when a partial reload names them.
		if !partial && prop.lazy || partial && prop.lazy && !slices.Contains(whitelist, prop.key) {
			continue
		}

		val, err := prop.value(r.Context())
		if err != nil {
			return nil, fmt.Errorf("inertiatest: failed to resolve prop %s: %w", prop.key, err)
		}

		m[prop.key] = val
	}

	return m, nil
}

func makeDeferredProps(props []Prop) map[string][]string {
	var m map[string][]string

	for _, p := range props {
		if !p.deferred {
			continue
		}

		if m == nil {
			m = make(map[string][]string)
		}

		m[p.group] = append(m[p.group], p.key)
	}

	return m
}

func makeValidationErrors(errs map[string]string, errorBag string) Prop {
	m := make(map[string]any, len(errs))
	for field, msg := range errs {
		m[field] = msg
	}

	if errorBag != "" && len(errs) > 0 {
		return NewAlways("errors", map[string]any{errorBag: m})
	}

	return NewAlways("errors", m)
}

// Location answers with an external redirect to url.
func Location(w http.ResponseWriter, r *http.Request, url string) {
	if isInertiaRequest(r) {
		h := w.Header()

		h.Del(inertiaheader.HeaderVary)
		h.Del(inertiaheader.HeaderXInertia)
		h.Set(inertiaheader.HeaderXInertiaLocation, url)
		w.WriteHeader(http.StatusConflict)

		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func isInertiaRequest(r *http.Request) bool {
	return r.Header.Get(inertiaheader.HeaderXInertia) == inertiaheader.HeaderValueTrue
}

func isPartialComponentRequest(r *http.Request, component string) bool {
	return r.Header.Get(inertiaheader.HeaderXInertiaPartialComponent) == component
}

func extractHeaderValueList(h string) []string {
	if h == "" {
		return nil
	}

	fields := strings.Split(h, inertiaheader.HeaderListDivider)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}

	return fields
}
