package inertiaclient

import (
	"context"
	"net/url"
)

//go:generate mockgen -destination location_mock.go -package inertiaclient . Locator,Interstitial

var _ Interstitial = (InterstitialFunc)(nil)

// Locator is the browser location: the URL currently shown and the means to
// leave the application with a full page load.
type Locator interface {
	// Location returns the absolute URL currently shown.
	Location() *url.URL

	// Reload performs a full reload of the current URL.
	Reload(ctx context.Context) error

	// Assign performs a full navigation to u.
	Assign(ctx context.Context, u *url.URL) error
}

// Interstitial shows a response that is not an Inertia page to the user,
// for example an HTML error page rendered in a modal.
type Interstitial interface {
	Show(ctx context.Context, body []byte) error
}

// InterstitialFunc is an adapter to allow the use of an ordinary function as
// an Interstitial.
type InterstitialFunc func(ctx context.Context, body []byte) error

func (fn InterstitialFunc) Show(ctx context.Context, body []byte) error { return fn(ctx, body) }

// discardInterstitial drops invalid responses.
type discardInterstitial struct{}

func (discardInterstitial) Show(context.Context, []byte) error { return nil }
