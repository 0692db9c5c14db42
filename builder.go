// Package annoyforest provides an embedded approximate nearest-neighbor
// index.
//
// This file implements the per-metric fluent builder API used to
// construct a Forest. Builders are immutable — each method returns a new
// builder with the updated configuration.
package annoyforest

import (
	"context"
	"fmt"

	"github.com/hupe1980/annoyforest/metric"
)

// Angular creates a builder for a Forest measuring angular (cosine)
// distance over vectors of the given dimension.
//
// Example:
//
//	f := annoyforest.Angular(128).
//	    Seed(7).
//	    MustNew()
func Angular(dimension int) ForestBuilder {
	return newForestBuilder(dimension, metric.Angular)
}

// Euclidean creates a builder for a Forest measuring Euclidean (L2)
// distance.
func Euclidean(dimension int) ForestBuilder {
	return newForestBuilder(dimension, metric.Euclidean)
}

// Manhattan creates a builder for a Forest measuring Manhattan (L1)
// distance.
func Manhattan(dimension int) ForestBuilder {
	return newForestBuilder(dimension, metric.Manhattan)
}

// Hamming creates a builder for a Forest measuring Hamming distance.
// Item vectors are still supplied as 0/1 float32s on AddItem; they are
// packed into bits internally.
func Hamming(dimension int) ForestBuilder {
	return newForestBuilder(dimension, metric.Hamming)
}

// Dot creates a builder for a Forest ranking by descending inner product
// (dot product), using a squared-norm lift internally so tree descent can
// still reduce to a Euclidean-style split.
func Dot(dimension int) ForestBuilder {
	return newForestBuilder(dimension, metric.Dot)
}

// ForestBuilder is an immutable fluent builder for a Forest. Each method
// returns a new builder with the updated configuration.
type ForestBuilder struct {
	dimension int
	kind      metric.Kind
	nTrees    int
	optFns    []Option
}

func newForestBuilder(dimension int, kind metric.Kind) ForestBuilder {
	return ForestBuilder{dimension: dimension, kind: kind, nTrees: 10}
}

// Trees sets the number of trees a subsequent Build call constructs. Pass
// -1 to autoscale: keep building trees until the total internal node
// count exceeds the item count. Defaults to 10.
func (b ForestBuilder) Trees(n int) ForestBuilder {
	b.nTrees = n
	return b
}

// Seed fixes the build's random seed. See WithSeed.
func (b ForestBuilder) Seed(seed uint32) ForestBuilder {
	b.optFns = append(append([]Option(nil), b.optFns...), WithSeed(seed))
	return b
}

// Jobs sets the number of concurrent build workers. See WithJobs.
func (b ForestBuilder) Jobs(n int) ForestBuilder {
	b.optFns = append(append([]Option(nil), b.optFns...), WithJobs(n))
	return b
}

// Logger attaches structured logging. See WithLogger.
func (b ForestBuilder) Logger(logger *Logger) ForestBuilder {
	b.optFns = append(append([]Option(nil), b.optFns...), WithLogger(logger))
	return b
}

// Metrics attaches a MetricsCollector. See WithMetricsCollector.
func (b ForestBuilder) Metrics(mc MetricsCollector) ForestBuilder {
	b.optFns = append(append([]Option(nil), b.optFns...), WithMetricsCollector(mc))
	return b
}

// Option appends a raw Option, for configuration this builder doesn't
// expose a dedicated method for (e.g. WithBlobStore, WithMetaSidecar).
func (b ForestBuilder) Option(opt Option) ForestBuilder {
	b.optFns = append(append([]Option(nil), b.optFns...), opt)
	return b
}

// New constructs an empty Forest in the Building phase, ready for
// AddItem. It does not build any trees; call the Forest's Build once every
// item has been added.
func (b ForestBuilder) New() (*Forest, error) {
	met := metric.ByKind(b.kind)
	return newForest(b.dimension, met, applyOptions(b.optFns))
}

// Build constructs an empty Forest and immediately calls Build(ctx,
// nTrees) on it with the configured tree count. The forest has no items at
// that point, so it is built with no trees and, being Built, accepts no
// AddItem afterwards — most callers should use New, call AddItem
// repeatedly, then Build.
func (b ForestBuilder) Build(ctx context.Context) (*Forest, error) {
	f, err := b.New()
	if err != nil {
		return nil, err
	}
	if err := f.Build(ctx, b.nTrees); err != nil {
		return nil, err
	}
	return f, nil
}

// MustNew is New, panicking on error. Useful for tests and examples.
func (b ForestBuilder) MustNew() *Forest {
	f, err := b.New()
	if err != nil {
		panic(fmt.Sprintf("annoyforest: %v", err))
	}
	return f
}
