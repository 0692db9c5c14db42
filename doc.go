// Package annoyforest implements a forest of randomized space-partitioning
// trees over fixed-dimensional vectors — an approximate nearest-neighbor
// index in the style of Spotify's Annoy: build once, persist as a single
// memory-mappable file with no header, then serve read-only queries with a
// best-first search unified across every tree root.
//
// # Quick start
//
//	f, _ := annoyforest.Angular(40).New()
//	f.AddItem(0, vec0)
//	f.AddItem(1, vec1)
//	f.Build(context.Background(), 10)
//	neighbors, _ := f.GetNNSByVector(query, 5, -1)
//
// # Lifecycle
//
// A Forest moves through five phases: Building (or its file-backed
// variant, OnDiskBuilding), Built, Loaded, Unloaded. add_item is legal
// only while Building; build is a one-way transition to Built unless
// Unbuild is called, which drops every non-leaf node and returns to
// Building without losing any item. save writes the exact bytes that
// will later be memory-mapped — there is no separate encoding step — and
// immediately re-enters Loaded on the new file. load resets the forest
// from any phase and memory-maps (or, with WithBlobStore, reads through a
// blob store) an existing file; unload releases that mapping.
//
// # Metrics
//
// Five metrics are supported, each with its own builder: Angular,
// Euclidean, Manhattan, Hamming, Dot. All five share the same node layout
// and search algorithm; only distance, margin and split construction
// differ (see the metric package).
//
// # Concurrency
//
// Build runs its workers to completion before returning; a Forest is not
// safe to mutate concurrently with itself during Building. Once Built or
// Loaded, GetNNSByVector, GetNNSByItem, GetItemVector, GetDistance and the
// GetN* accessors are safe to call from many goroutines at once.
package annoyforest
