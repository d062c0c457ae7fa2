package config

import (
	"sort"

	"github.com/goccy/go-yaml"
)

// mergeTree applies the deep-merge rule from spec.md 4.A:
//   - two mappings merge key-wise, overlay values at the same key recurse
//   - two sequences concatenate (overlay appended to base)
//   - any other combination: overlay replaces base
func mergeTree(base, overlay any) any {
	if overlay == nil {
		return base
	}
	if base == nil {
		return overlay
	}

	baseMap, baseIsMap := asStringMap(base)
	overlayMap, overlayIsMap := asStringMap(overlay)
	if baseIsMap && overlayIsMap {
		merged := make(map[string]any, len(baseMap)+len(overlayMap))
		for k, v := range baseMap {
			merged[k] = v
		}
		for k, v := range overlayMap {
			if existing, ok := merged[k]; ok {
				merged[k] = mergeTree(existing, v)
			} else {
				merged[k] = v
			}
		}
		return merged
	}

	baseSeq, baseIsSeq := base.([]any)
	overlaySeq, overlayIsSeq := overlay.([]any)
	if baseIsSeq && overlayIsSeq {
		out := make([]any, 0, len(baseSeq)+len(overlaySeq))
		out = append(out, baseSeq...)
		out = append(out, overlaySeq...)
		return out
	}

	// Any other combination: overlay replaces base.
	return overlay
}

// asStringMap normalizes the two shapes a YAML mapping can decode to
// (map[string]any, and map[any]any as some decoders produce for
// non-string-keyed maps) into map[string]any.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// canonicalize converts a generic decoded tree into a form that marshals
// deterministically: maps become key-sorted yaml.MapSlice values,
// recursively. This is what makes merge associativity (spec.md 8.4) hold
// byte-for-byte: Go's native map iteration order is randomized, but
// yaml.MapSlice preserves the explicit (here: always sorted) order its
// pairs were built in, regardless of that randomization.
func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(yaml.MapSlice, 0, len(t))
		for _, k := range keys {
			out = append(out, yaml.MapItem{Key: k, Value: canonicalize(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return v
	}
}
