// Package inertialocation compares and rewrites URLs the way the Inertia
// protocol needs: resolving hrefs against the current location, comparing
// URLs while ignoring fragments, and carrying a fragment over to a
// response URL.
package inertialocation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Resolve parses href relative to base. A nil base requires href to be
// absolute.
func Resolve(href string, base *url.URL) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("inertialocation: failed to parse %q: %w", href, err)
	}

	if base != nil {
		ref = base.ResolveReference(ref)
	}

	if ref.Path == "" && ref.Host != "" {
		ref.Path = "/"
	}

	return ref, nil
}

// WithoutHash returns a copy of u with the fragment removed.
func WithoutHash(u *url.URL) *url.URL {
	cp := *u
	cp.Fragment = ""
	cp.RawFragment = ""

	return &cp
}

// SameWithoutHash reports whether a and b are the same URL once their
// fragments are ignored.
func SameWithoutHash(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}

	return normalize(WithoutHash(a)) == normalize(WithoutHash(b))
}

// CopyHashIfSame sets dst's fragment to src's fragment when both point at
// the same URL ignoring fragments. An empty src fragment clears dst's.
func CopyHashIfSame(src, dst *url.URL) {
	if !SameWithoutHash(src, dst) {
		return
	}

	dst.Fragment = src.Fragment
	dst.RawFragment = src.RawFragment
}

// SameOriginAndPath reports whether a and b share scheme, host, port and
// path. Query and fragment are ignored.
func SameOriginAndPath(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}

	return Origin(a) == Origin(b) && path(a) == path(b)
}

// Origin returns scheme://host[:port] with the default port dropped.
func Origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())

	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	return scheme + "://" + host
}

// PathQueryHash returns the path, query and fragment of u, the form a page
// URL is stored in.
func PathQueryHash(u *url.URL) string {
	var b strings.Builder

	b.WriteString(path(u))

	if u.RawQuery != "" || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}

	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}

	return b.String()
}

func path(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		return "/"
	}

	return p
}

func normalize(u *url.URL) string {
	var b strings.Builder

	b.WriteString(Origin(u))
	b.WriteString(path(u))

	if u.RawQuery != "" || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}

	return b.String()
}

func isDefaultPort(scheme, port string) bool {
	switch scheme {
	case "http", "ws":
		return port == "80"
	case "https", "wss":
		return port == "443"
	default:
		return false
	}
}
