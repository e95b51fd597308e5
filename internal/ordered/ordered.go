// Package ordered provides ordered, deterministic traversal of maps.
package ordered

import (
	"cmp"
	"maps"
	"slices"
)

// Keys returns the keys of m in ascending order.
func Keys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	return slices.Sorted(maps.Keys(m))
}

// KeysFunc returns the keys of m sorted with the comparison function
// compare.
func KeysFunc[M ~map[K]V, K comparable, V any](m M, compare func(a, b K) int) []K {
	return slices.SortedFunc(maps.Keys(m), compare)
}

// Range calls fn on each entry of m in ascending key order.
func Range[M ~map[K]V, K cmp.Ordered, V any](m M, fn func(K, V)) {
	for _, k := range Keys(m) {
		fn(k, m[k])
	}
}
