// Package annoyforest provides an embedded approximate nearest-neighbor
// index.
//
// This file implements a fluent search API wrapping GetNNSByVector /
// GetNNSByItem.
package annoyforest

import (
	"context"
	"fmt"

	"github.com/hupe1980/annoyforest/internal/forestsearch"
)

// Search creates a fluent search builder for query.
//
// Example:
//
//	results, err := f.Search(query).KNN(10).SearchK(200).Execute(ctx)
func (f *Forest) Search(query []float32) *SearchBuilder {
	return &SearchBuilder{f: f, query: query, k: 10, searchK: -1}
}

// SearchByItem is Search using the stored vector of item i as the query.
func (f *Forest) SearchByItem(i uint32) *SearchBuilder {
	return &SearchBuilder{f: f, item: &i, k: 10, searchK: -1}
}

// SearchBuilder is a fluent builder for a single nearest-neighbor query.
type SearchBuilder struct {
	f       *Forest
	query   []float32
	item    *uint32
	k       int
	searchK int
}

// KNN sets the number of nearest neighbors to return.
func (sb *SearchBuilder) KNN(k int) *SearchBuilder {
	sb.k = k
	return sb
}

// SearchK sets the search_k parameter: the number of candidate leaf items
// collected before re-ranking by true distance. Larger values trade
// latency for recall. A negative value (the default) means k * n_trees.
func (sb *SearchBuilder) SearchK(searchK int) *SearchBuilder {
	sb.searchK = searchK
	return sb
}

// Execute runs the query and returns its results.
func (sb *SearchBuilder) Execute(ctx context.Context) ([]forestsearch.Neighbor, error) {
	_ = ctx // no suspension points in the core search path; accepted for API symmetry with Build's context
	if sb.item != nil {
		return sb.f.GetNNSByItem(*sb.item, sb.k, sb.searchK)
	}
	return sb.f.GetNNSByVector(sb.query, sb.k, sb.searchK)
}

// MustExecute runs the query, panicking on error. Useful in tests and
// examples.
func (sb *SearchBuilder) MustExecute(ctx context.Context) []forestsearch.Neighbor {
	results, err := sb.Execute(ctx)
	if err != nil {
		panic(fmt.Sprintf("annoyforest: %v", err))
	}
	return results
}

// First returns only the nearest result, or an error wrapping
// ErrInvalidArgument if there is none.
func (sb *SearchBuilder) First(ctx context.Context) (forestsearch.Neighbor, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return forestsearch.Neighbor{}, err
	}
	if len(results) == 0 {
		return forestsearch.Neighbor{}, fmt.Errorf("%w: no results", ErrInvalidArgument)
	}
	return results[0], nil
}

// Count executes the query and returns the number of results found.
func (sb *SearchBuilder) Count(ctx context.Context) (int, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// Exists reports whether at least one result matches the query.
func (sb *SearchBuilder) Exists(ctx context.Context) (bool, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
