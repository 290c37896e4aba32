// Package filter derives the displayed todos from the full set.
package filter

import "github.com/Makepad-fr/tada/internal/model"

// Apply returns the todos matching f, in their original order. The result
// never shares a backing array with items.
func Apply(items []model.Todo, f model.Filter) []model.Todo {
	out := make([]model.Todo, 0, len(items))
	for _, it := range items {
		if Match(it, f) {
			out = append(out, it)
		}
	}
	return out
}

// Match reports whether a single todo passes f.
func Match(it model.Todo, f model.Filter) bool {
	return f == model.FilterAll || it.Status == model.Status(f)
}

// Count returns the active and done totals of items.
func Count(items []model.Todo) (active, done int) {
	for _, it := range items {
		if it.Done() {
			done++
		} else {
			active++
		}
	}
	return
}
