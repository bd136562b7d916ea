package storage

import "math/rand"

// CommunitySampleSize caps the community listings.
const CommunitySampleSize = 10

// sample shuffles items in place and returns at most n of them.
// Callers load the whole candidate set first; there is no pagination.
func sample[T any](items []T, n int) []T {
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}
