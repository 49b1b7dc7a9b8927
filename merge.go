package inertiaclient

import (
	"slices"
	"strings"

	"go.inout.gg/inertiaclient/inertiavalue"
)

// mergeProps merges the props of current into incoming following the merge
// lists of incoming. Props outside the lists are taken from incoming when
// present and kept from current otherwise.
//
// current is never modified.
func mergeProps(incoming, current *Page) {
	for _, prop := range incoming.MergeProps {
		in, ok := incoming.Props.Get(prop)
		if !ok {
			continue
		}

		cur, _ := current.Props.Get(prop)

		switch in.Kind() {
		case inertiavalue.KindSequence:
			incoming.Props.Set(prop, mergeOrMatchItems(cur, in, prop, incoming.MatchPropsOn))
		case inertiavalue.KindMapping:
			incoming.Props.Set(prop, unionMappings(cur, in))
		default:
		}
	}

	for _, prop := range incoming.DeepMergeProps {
		in, ok := incoming.Props.Get(prop)
		if !ok {
			continue
		}

		cur, _ := current.Props.Get(prop)
		incoming.Props.Set(prop, deepMerge(cur, in, prop, incoming.MatchPropsOn))
	}

	merged := inertiavalue.NewMap()
	for k, v := range current.Props.All() {
		merged.Set(k, v)
	}

	for k, v := range incoming.Props.All() {
		merged.Set(k, v)
	}

	incoming.Props = merged
}

// unionMappings returns the keys of target overlaid with the keys of source.
// A target that is not a mapping counts as empty.
func unionMappings(target, source inertiavalue.Value) inertiavalue.Value {
	out := inertiavalue.NewMap()
	if target.Kind() == inertiavalue.KindMapping {
		for k, v := range target.Map().All() {
			out.Set(k, v)
		}
	}

	for k, v := range source.Map().All() {
		out.Set(k, v)
	}

	return inertiavalue.Mapping(out)
}

// deepMerge merges source into target at every nesting level. path is the
// dotted path of source, used to find the match key of nested sequences.
func deepMerge(target, source inertiavalue.Value, path string, matchPropsOn []string) inertiavalue.Value {
	switch source.Kind() {
	case inertiavalue.KindSequence:
		return mergeOrMatchItems(target, source, path, matchPropsOn)
	case inertiavalue.KindMapping:
		out := inertiavalue.NewMap()
		if target.Kind() == inertiavalue.KindMapping {
			for k, v := range target.Map().All() {
				out.Set(k, v)
			}
		}

		for k, v := range source.Map().All() {
			var child inertiavalue.Value
			if target.Kind() == inertiavalue.KindMapping {
				child, _ = target.Map().Get(k)
			}

			out.Set(k, deepMerge(child, v, path+"."+k, matchPropsOn))
		}

		return inertiavalue.Mapping(out)
	default:
		return source
	}
}

// mergeOrMatchItems combines two sequences found at path.
//
// Without a matchPropsOn entry for path the items are concatenated. With an
// entry "path.key", items are keyed by their "key" field: source items
// replace target items with an equal key in place, and new keys are
// appended. Items without the field are never merged with anything.
func mergeOrMatchItems(target, source inertiavalue.Value, path string, matchPropsOn []string) inertiavalue.Value {
	var existing []inertiavalue.Value
	if target.Kind() == inertiavalue.KindSequence {
		existing = target.Items()
	}

	key, ok := matchKeyFor(path, matchPropsOn)
	if !ok {
		return inertiavalue.Sequence(slices.Concat(existing, source.Items())...)
	}

	var (
		items   = make([]inertiavalue.Value, 0, len(existing)+len(source.Items()))
		indices = make(map[inertiavalue.Identity]int)
	)

	add := func(item inertiavalue.Value) {
		if item.Kind() == inertiavalue.KindMapping {
			if v, ok := item.Map().Get(key); ok {
				if id, ok := inertiavalue.IdentityOf(v); ok {
					if i, seen := indices[id]; seen {
						items[i] = item
						return
					}

					indices[id] = len(items)
				}
			}
		}

		items = append(items, item)
	}

	for _, item := range existing {
		add(item)
	}

	for _, item := range source.Items() {
		add(item)
	}

	return inertiavalue.Sequence(items...)
}

// matchKeyFor returns the unique key configured for the sequence at path.
func matchKeyFor(path string, matchPropsOn []string) (string, bool) {
	for _, entry := range matchPropsOn {
		i := strings.LastIndex(entry, ".")
		if i < 0 {
			if path == "" {
				return entry, true
			}

			continue
		}

		if entry[:i] == path {
			return entry[i+1:], true
		}
	}

	return "", false
}
