package onboarding

import "iter"

// Batch splits items into consecutive groups of at most size elements, preserving order.
//
// The returned sequence is lazy and restartable: every range over it re-chunks items from the start.
// Each yielded group is a fresh slice, so callers may keep or modify it without touching items.
// An empty input yields no groups at all. A size below 1 is a programming error and panics.
func Batch[T any](items []T, size int) iter.Seq[[]T] {
	if size < 1 {
		panic("onboarding: batch size must be at least 1")
	}

	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))

			group := make([]T, end-start)
			copy(group, items[start:end])

			if !yield(group) {
				return
			}
		}
	}
}
