package chart

import "strings"

// The save context is an opaque comma-separated list of key:value pairs,
// e.g. "filename:foo.json,source:import". Only get/set/merge are offered.

// ContextGet returns the value stored for key.
func ContextGet(ctx, key string) (string, bool) {
	for _, part := range strings.Split(ctx, ",") {
		k, v, ok := strings.Cut(part, ":")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// ContextSet stores value under key, replacing a previous value in place.
func ContextSet(ctx, key, value string) string {
	parts := splitContext(ctx)
	entry := key + ":" + value
	for i, part := range parts {
		k, _, _ := strings.Cut(part, ":")
		if strings.TrimSpace(k) == key {
			parts[i] = entry
			return strings.Join(parts, ",")
		}
	}
	return strings.Join(append(parts, entry), ",")
}

// ContextMerge applies every pair of other onto ctx. Pairs in other win.
func ContextMerge(ctx, other string) string {
	for _, part := range splitContext(other) {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		ctx = ContextSet(ctx, strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return ctx
}

func splitContext(ctx string) []string {
	var parts []string
	for _, part := range strings.Split(ctx, ",") {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
