package inertiaclient

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-json-experiment/json"
	"go.inout.gg/foundations/debug"
	"go.inout.gg/foundations/must"

	"go.inout.gg/inertiaclient/inertiavalue"
	"go.inout.gg/inertiaclient/internal/inertiahttp"
	"go.inout.gg/inertiaclient/internal/inertiaqueue"
)

const (
	// DefaultPrefetchCacheFor is how long a prefetched response stays usable.
	DefaultPrefetchCacheFor = 30 * time.Second

	// DefaultConcurrency is the default number of visits in flight at once.
	// Workers spend their time waiting on the network, so it does not
	// depend on the number of CPUs.
	DefaultConcurrency = 64
)

// Config configures a Client.
type Config struct {
	// HTTPClient sends visit requests.
	//
	// Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// History is the browser session history.
	//
	// Defaults to a MemoryHistory for BaseURL.
	History SessionHistory

	// Locator is the browser location. If nil, History is used when it
	// implements Locator.
	Locator Locator

	// Storage persists the location visit marker across full page loads.
	//
	// Defaults to a MemoryStorage.
	Storage SessionStorage

	// Interstitial shows responses that are not Inertia pages.
	//
	// If nil, such responses are dropped.
	Interstitial Interstitial

	// BaseURL is the absolute URL the application was loaded from.
	BaseURL string

	// Version is the asset version sent before the first page is known.
	Version string

	// Concurrency bounds the number of visits in flight.
	//
	// Defaults to DefaultConcurrency.
	Concurrency int

	// Timeout bounds a single visit request. Zero means no timeout.
	Timeout time.Duration

	// PrefetchCacheFor is how long prefetched responses are reused.
	//
	// Defaults to 30 seconds.
	PrefetchCacheFor time.Duration
}

func (c *Config) defaults() error {
	c.Concurrency = cmp.Or(c.Concurrency, DefaultConcurrency)
	c.PrefetchCacheFor = cmp.Or(c.PrefetchCacheFor, DefaultPrefetchCacheFor)

	if c.Storage == nil {
		c.Storage = &MemoryStorage{} //nolint:exhaustruct
	}

	if c.Interstitial == nil {
		c.Interstitial = discardInterstitial{}
	}

	if c.History == nil {
		h, err := NewMemoryHistory(c.BaseURL)
		if err != nil {
			return err
		}

		c.History = h
	}

	if c.Locator == nil {
		l, ok := c.History.(Locator)
		if !ok {
			return errors.New("inertiaclient: Locator must be set when History is not a Locator")
		}

		c.Locator = l
	}

	debug.Assert(c.Concurrency > 0, "Concurrency must be positive")

	return nil
}

type envConfig struct {
	BaseURL          string        `env:"INERTIA_BASE_URL"`
	Version          string        `env:"INERTIA_VERSION"`
	Concurrency      int           `env:"INERTIA_CONCURRENCY"`
	Timeout          time.Duration `env:"INERTIA_TIMEOUT"`
	PrefetchCacheFor time.Duration `env:"INERTIA_PREFETCH_CACHE_FOR"`
}

// ConfigFromEnv reads BaseURL, Version, Concurrency, Timeout and
// PrefetchCacheFor from the INERTIA_* environment variables. The remaining
// fields are left for the caller to set.
func ConfigFromEnv() (*Config, error) {
	ec, err := env.ParseAs[envConfig]()
	if err != nil {
		return nil, fmt.Errorf("inertiaclient: failed to parse env: %w", err)
	}

	//nolint:exhaustruct
	return &Config{
		BaseURL:          ec.BaseURL,
		Version:          ec.Version,
		Concurrency:      ec.Concurrency,
		Timeout:          ec.Timeout,
		PrefetchCacheFor: ec.PrefetchCacheFor,
	}, nil
}

// Client is an Inertia client. It owns the page store, the session history
// adapter and the processing queue every response goes through.
//
// Create a Client with New.
type Client struct {
	queue        *inertiaqueue.Queue
	history      *History
	store        *Store
	events       *Events
	router       *Router
	storage      SessionStorage
	locator      Locator
	interstitial Interstitial
	version      string
}

// New creates a Client.
//
// Either History or BaseURL must be set. Other fields fall back to their
// defaults.
func New(config *Config) (*Client, error) {
	if config == nil {
		//nolint:exhaustruct
		config = &Config{}
	}

	cp := *config
	if err := cp.defaults(); err != nil {
		return nil, err
	}

	c := &Client{ //nolint:exhaustruct
		queue:        inertiaqueue.New("responses"),
		history:      NewHistory(cp.History),
		events:       &Events{}, //nolint:exhaustruct
		storage:      cp.Storage,
		locator:      cp.Locator,
		interstitial: cp.Interstitial,
		version:      cp.Version,
	}
	c.store = newStore(c.history, c.locator, c.events)
	c.router = newRouter(c, inertiahttp.New(cp.HTTPClient), &cp)

	return c, nil
}

// MustNew is like New, but panics if an error occurs.
func MustNew(config *Config) *Client {
	return must.Must(New(config))
}

// Store returns the page store.
func (c *Client) Store() *Store { return c.store }

// History returns the session history adapter.
func (c *Client) History() *History { return c.history }

// Events returns the global event dispatcher.
func (c *Client) Events() *Events { return c.events }

// Router returns the visit router.
func (c *Client) Router() *Router { return c.router }

// Version returns the asset version of the current page.
func (c *Client) Version() string {
	if page := c.store.Get(); page != nil && page.Version != "" {
		return page.Version
	}

	return c.version
}

// Init commits the initial page, as embedded in the document by the server.
//
// If the page was loaded by an external redirect, the redirect's marker is
// consumed, the fragment of the current location is carried onto the page URL
// and the scroll regions and remembered state of the current history entry are
// restored.
func (c *Client) Init(ctx context.Context, page *Page) error {
	debug.Assert(page != nil, "page must be set")

	page = page.Clone()
	if page.Props == nil {
		page.Props = inertiavalue.NewMap()
	}

	opts := SetOptions{Replace: true, PreserveScroll: false, PreserveState: false}

	marker, ok, err := c.storage.Get(ctx, LocationVisitKey)
	if err != nil {
		d("failed to read location visit marker: %v", err)
	}

	if ok {
		if err := c.storage.Delete(ctx, LocationVisitKey); err != nil {
			d("failed to delete location visit marker: %v", err)
		}

		var lv locationVisit
		if err := json.Unmarshal(marker, &lv); err != nil {
			d("malformed location visit marker: %v", err)
		}

		// The server never sees the fragment of the redirect target.
		if loc := c.locator.Location(); loc != nil && loc.Fragment != "" && !strings.Contains(page.URL, "#") {
			page.URL += "#" + loc.EscapedFragment()
		}

		page.RememberedState = c.history.RememberedState()
		page.ScrollRegions = c.history.ScrollRegions()
		opts.PreserveScroll = lv.PreserveScroll
		opts.PreserveState = true
	}

	return c.queue.Do(ctx, func(ctx context.Context) error { //nolint:wrapcheck
		return c.store.Set(ctx, page, opts)
	})
}

// Remember stores data under key in the current history entry.
func (c *Client) Remember(ctx context.Context, data inertiavalue.Value, key string) error {
	return c.history.Remember(ctx, data, key)
}

// Restore returns the value remembered under key.
func (c *Client) Restore(key string) (inertiavalue.Value, bool) {
	return c.history.Restore(key)
}
