// Package store implements the three registry stores (datasets, jobs,
// visualizations). Each store keeps the full registry in memory in insertion
// order and rewrites the whole backing document on every mutation; reads are
// served from memory only.
package store

// Collection is the persistence contract the stores write through. A backend
// holds one registry as a single document: Load reads the whole thing at
// startup and SaveAll replaces it wholesale after each mutation.
type Collection[T any] interface {
	Load() ([]T, error)
	SaveAll(records []T) error
}
