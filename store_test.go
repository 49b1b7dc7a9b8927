package inertiaclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Set(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	store := c.Store()
	history := memoryHistory(t, c)

	var commits []Commit
	unsubscribe := store.Subscribe(func(cm Commit) { commits = append(commits, cm) })

	var navigated []string
	c.Events().OnNavigate(func(p *Page) { navigated = append(navigated, p.URL) })

	home := newTestPage(t, "Home", "/", "")
	home.ScrollRegions = []ScrollRegion{{Top: 10, Left: 0}}
	require.NoError(t, store.Set(t.Context(), home, SetOptions{PreserveScroll: true})) //nolint:exhaustruct

	require.Len(t, commits, 1)
	assert.True(t, commits[0].Replace, "the current URL is replaced")
	assert.True(t, commits[0].NewComponent)
	assert.NotNil(t, store.Get().RememberedState)
	assert.Equal(t, []ScrollRegion{{Top: 10, Left: 0}}, store.Get().ScrollRegions)

	about := newTestPage(t, "Home", "/about", "")
	require.NoError(t, store.Set(t.Context(), about, SetOptions{PreserveScroll: true})) //nolint:exhaustruct

	require.Len(t, commits, 2)
	assert.False(t, commits[1].Replace)
	assert.False(t, commits[1].NewComponent)
	assert.Equal(t, []ScrollRegion{{Top: 10, Left: 0}}, store.Get().ScrollRegions, "scroll regions carry over")
	assert.Equal(t, 2, history.Len())

	unsubscribe()

	contact := newTestPage(t, "Contact", "/contact", "")
	contact.ScrollRegions = []ScrollRegion{{Top: 1, Left: 1}}
	require.NoError(t, store.Set(t.Context(), contact, SetOptions{Replace: true})) //nolint:exhaustruct

	assert.Len(t, commits, 2, "unsubscribed listener is not called")
	assert.Nil(t, store.Get().ScrollRegions, "scroll regions are reset")
	assert.Equal(t, SetOptions{Replace: true}, store.Intent()) //nolint:exhaustruct
	assert.Equal(t, 2, history.Len())
	assert.Equal(t, []string{"/", "/about", "/contact"}, navigated)

	entry, ok := history.State()
	require.True(t, ok)
	assert.Equal(t, "/contact", entry.URL)
	assert.Equal(t, "Contact", entry.Page.Component)
}

func TestStore_ClearHistory(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	store := c.Store()
	history := memoryHistory(t, c)

	for _, href := range []string{"/a", "/b"} {
		require.NoError(t, store.Set(t.Context(), newTestPage(t, "Page", href, ""), SetOptions{})) //nolint:exhaustruct
	}

	page := newTestPage(t, "Page", "/c", "")
	page.ClearHistory = true
	require.NoError(t, store.Set(t.Context(), page, SetOptions{})) //nolint:exhaustruct

	require.Equal(t, 3, history.Len())

	entry, ok := history.State()
	require.True(t, ok)
	assert.NotNil(t, entry.Page)

	_, ok = history.Back()
	require.True(t, ok)

	entry, ok = history.Back()
	require.True(t, ok)
	assert.Equal(t, "/a", entry.URL)
	assert.Nil(t, entry.Page, "older entries forget their page")
}
