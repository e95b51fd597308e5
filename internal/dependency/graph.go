// Package dependency builds and flattens dependency graphs.
package dependency

import (
	"cmp"
	"slices"
)

// insertUnique inserts x into set, keeping set sorted. If x is already
// in set, it is not added. The augmented set is returned.
func insertUnique[T cmp.Ordered](set []T, x T) []T {
	i, found := slices.BinarySearch(set, x)
	if found {
		return set
	}
	return slices.Insert(set, i, x)
}

// A Graph is a collection of targets and their dependencies. The zero
// value is an empty graph ready to use.
type Graph[T cmp.Ordered] struct {
	targets []T
	nodes   map[T][]T
}

// Len returns the number of targets in the graph.
func (g *Graph[T]) Len() int {
	return len(g.targets)
}

// Add registers target and records that it depends on each of deps.
// A target added without dependencies is still visited by Flatten.
func (g *Graph[T]) Add(target T, deps ...T) {
	if g.nodes == nil {
		g.nodes = make(map[T][]T)
	}
	g.targets = insertUnique(g.targets, target)
	for _, dep := range deps {
		g.nodes[target] = insertUnique(g.nodes[target], dep)
	}
}

// Dependencies returns the direct dependencies of target, sorted.
func (g *Graph[T]) Dependencies(target T) []T {
	return slices.Clone(g.nodes[target])
}

// Flatten calls the walk function on each node in the Graph in topological
// order, starting with the leaves and traversing up to the roots. The same
// Graph will always be traversed in the same order.
//
// Every vertex in the Graph is visited once; any cycles in the graph are
// skipped.
func (g *Graph[T]) Flatten(walk func(T)) {
	visited := make(map[T]bool, len(g.nodes))
	g.flatten(walk, g.targets, visited)
}

func (g *Graph[T]) flatten(walk func(T), targets []T, visited map[T]bool) {
	for _, tgt := range targets {
		if !visited[tgt] {
			visited[tgt] = true
			g.flatten(walk, g.nodes[tgt], visited)
			walk(tgt)
		}
	}
}
