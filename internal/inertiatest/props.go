package inertiatest

import (
	"cmp"
	"context"
)

// DefaultDeferredGroup is the group deferred props belong to by default.
const DefaultDeferredGroup = "default"

// LazyFunc resolves a prop value on demand.
type LazyFunc func(context.Context) (any, error)

// Prop is a prop declared by a test page.
type Prop struct {
	val       any
	valFn     LazyFunc // optional, deferred
	key       string
	group     string // deferred
	matchOn   []string
	mergeable bool
	deep      bool
	deferred  bool
	lazy      bool // optional, deferred
	ignorable bool // false if always prop
}

// PropOptions configures how the client merges a prop on partial reloads.
type PropOptions struct {
	// MatchOn lists the item fields sequences are matched by, as
	// "path.to.sequence.field" relative to the prop.
	MatchOn []string

	// Merge merges the prop shallowly.
	Merge bool

	// DeepMerge merges the prop at every nesting level.
	DeepMerge bool
}

// NewProp creates a prop included on every render unless filtered out by a
// partial reload.
func NewProp(key string, val any, opts *PropOptions) Prop {
	//nolint:exhaustruct
	prop := Prop{
		ignorable: true,
		key:       key,
		val:       val,
	}

	if opts != nil {
		prop.mergeable = opts.Merge
		prop.deep = opts.DeepMerge
		prop.matchOn = opts.MatchOn
	}

	return prop
}

// NewAlways creates a prop that ignores partial reload filters.
func NewAlways(key string, val any) Prop {
	//nolint:exhaustruct
	return Prop{key: key, val: val}
}

// NewOptional creates a prop resolved only when a partial reload asks for it.
func NewOptional(key string, fn LazyFunc) Prop {
	//nolint:exhaustruct
	return Prop{
		ignorable: true,
		lazy:      true,
		key:       key,
		valFn:     fn,
	}
}

// NewDeferred creates a prop the client loads after the first render.
func NewDeferred(key string, fn LazyFunc, group string) Prop {
	//nolint:exhaustruct
	return Prop{
		ignorable: true,
		lazy:      true,
		deferred:  true,
		key:       key,
		valFn:     fn,
		group:     cmp.Or(group, DefaultDeferredGroup),
	}
}

func (p Prop) value(ctx context.Context) (any, error) {
	if p.valFn != nil {
		return p.valFn(ctx)
	}

	return p.val, nil
}
