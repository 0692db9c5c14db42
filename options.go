package annoyforest

import (
	"log/slog"

	"github.com/hupe1980/annoyforest/blobstore"
)

type options struct {
	seed             uint32
	nJobs            int
	metricsCollector MetricsCollector
	logger           *Logger
	blobStore        blobstore.BlobStore
	prefault         bool
	writeMeta        bool
}

// Option configures a Forest when it is constructed.
//
// Breaking changes are expected while annoyforest is pre-release.
type Option func(*options)

// WithSeed fixes the random seed used to draw hyperplanes during build.
// Two builds with the same seed, the same add_item sequence and the same
// n_trees produce byte-identical on-disk output, independent of n_jobs.
//
// If unset, the seed is 0.
func WithSeed(seed uint32) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithJobs sets the number of concurrent build workers. A value <= 0
// means runtime.NumCPU().
func WithJobs(n int) Option {
	return func(o *options) {
		o.nJobs = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &annoyforest.BasicMetricsCollector{}
//	f := annoyforest.Angular(128).Metrics(metrics).MustNew()
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations. Pass nil to
// disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBlobStore routes Load through bs (a blobstore.BlobStore
// implementation) instead of reading the local filesystem directly. Save
// still writes to the local filesystem — bs has no write side — but then
// re-enters Loaded through bs.Open(path), so path must resolve to the same
// object for both the raw file write and bs.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = bs
	}
}

// WithPrefault makes every Load issue an AccessWillNeed hint for the whole
// mapping before it returns, so the kernel can read the file into the page
// cache ahead of the first query. Pages are not touched one by one: on
// Windows the hint is a no-op, and a Load through WithBlobStore ignores it.
func WithPrefault(prefault bool) Option {
	return func(o *options) {
		o.prefault = prefault
	}
}

// WithMetaSidecar controls whether Save also writes a `.meta` sidecar
// recording item count, roots, metric, dimension and seed. Enabled by
// default; disable to test or exercise pure backward root-rediscovery.
func WithMetaSidecar(write bool) Option {
	return func(o *options) {
		o.writeMeta = write
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		nJobs:            -1,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		writeMeta:        true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
