package inertiabase

import (
	"slices"

	"go.inout.gg/inertiaclient/inertiavalue"
)

// ScrollRegion is the scroll offset of one scrollable region of a page.
type ScrollRegion struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Page is one fully resolved application view as exchanged with the server.
//
// ScrollRegions and RememberedState are client-local and never sent by the
// server; they travel with the page into session history.
type Page struct {
	Props           *inertiavalue.Map   `json:"props"`
	RememberedState *inertiavalue.Map   `json:"rememberedState,omitempty"`
	DeferredProps   map[string][]string `json:"deferredProps,omitempty"`
	Component       string              `json:"component"`
	URL             string              `json:"url"`
	Version         string              `json:"version"`
	ScrollRegions   []ScrollRegion      `json:"scrollRegions,omitempty"`
	MergeProps      []string            `json:"mergeProps,omitempty"`
	DeepMergeProps  []string            `json:"deepMergeProps,omitempty"`
	MatchPropsOn    []string            `json:"matchPropsOn,omitempty"`
	EncryptHistory  bool                `json:"encryptHistory"`
	ClearHistory    bool                `json:"clearHistory"`
}

// Clone returns a deep copy of p.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}

	cp := *p
	cp.Props = p.Props.Clone()

	if p.RememberedState != nil {
		cp.RememberedState = p.RememberedState.Clone()
	}

	if p.DeferredProps != nil {
		cp.DeferredProps = make(map[string][]string, len(p.DeferredProps))
		for group, keys := range p.DeferredProps {
			cp.DeferredProps[group] = slices.Clone(keys)
		}
	}

	cp.ScrollRegions = slices.Clone(p.ScrollRegions)
	cp.MergeProps = slices.Clone(p.MergeProps)
	cp.DeepMergeProps = slices.Clone(p.DeepMergeProps)
	cp.MatchPropsOn = slices.Clone(p.MatchPropsOn)

	return &cp
}

// Prop returns the prop stored under key.
func (p *Page) Prop(key string) (inertiavalue.Value, bool) {
	if p == nil {
		return inertiavalue.Value{}, false
	}

	return p.Props.Get(key)
}
