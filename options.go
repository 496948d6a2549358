package seglog

import (
	"github.com/hupe1980/seglog/internal/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	resources        *resource.Controller
	loadConcurrency  int
	rotateRecords    int
	rotateBytes      int64
	readOnly         bool
}

// Option configures a Log.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		loadConcurrency:  4,
	}
}

func applyOptions(optFns []Option) options {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController bounds the memory, concurrency and IO bandwidth used
// when loading persisted sections.
//
// The controller may be shared between several logs.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.resources = c
	}
}

// WithLoadConcurrency sets how many sections LoadRequiredSections reads in
// parallel. Values < 1 are treated as 1.
func WithLoadConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.loadConcurrency = n
	}
}

// WithRotation makes Append advance the tail once it holds maxRecords records
// or maxBytes payload bytes. A zero threshold disables that trigger.
//
// Without this option rotation is left to the caller (AdvanceTail).
func WithRotation(maxRecords int, maxBytes int64) Option {
	return func(o *options) {
		o.rotateRecords = maxRecords
		o.rotateBytes = maxBytes
	}
}

// ReadOnly opens a persistent log for inspection: nothing is written or
// deleted, and mutations fail with ErrReadOnly.
func ReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}
