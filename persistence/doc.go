// Package persistence implements the on-disk format for a built forest: a
// flat sequence of fixed-size node records with no magic number and no
// version field (the format is implicit in the metric and dimension
// chosen at load time), plus an optional `.meta` sidecar that records item
// count, tree roots, metric and seed so that, when the sidecar is present
// and passes its own checksum, load uses its roots and item count in place
// of the ones backward root-rediscovery finds.
package persistence
