package seglog

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAppend is called after each Append or AppendBatch.
	// records and bytes describe the attempted payloads.
	RecordAppend(records int, bytes int64, err error)

	// RecordRotation is called after each tail rotation, including the
	// persistence of the sealed section.
	RecordRotation(duration time.Duration, err error)

	// RecordLoad is called after LoadRequiredSections with the number of
	// sections that were read from storage.
	RecordLoad(sections int, duration time.Duration, err error)

	// RecordCleanup is called after Cleanup with the number of removed sections.
	RecordCleanup(removed int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAppend(int, int64, error)          {}
func (NoopMetricsCollector) RecordRotation(time.Duration, error)     {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordCleanup(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AppendCount     atomic.Int64
	AppendRecords   atomic.Int64
	AppendBytes     atomic.Int64
	AppendErrors    atomic.Int64
	RotationCount   atomic.Int64
	RotationErrors  atomic.Int64
	RotationNanos   atomic.Int64
	LoadCount       atomic.Int64
	LoadSections    atomic.Int64
	LoadErrors      atomic.Int64
	LoadNanos       atomic.Int64
	CleanupCount    atomic.Int64
	CleanupSections atomic.Int64
	CleanupErrors   atomic.Int64
}

// RecordAppend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAppend(records int, bytes int64, err error) {
	b.AppendCount.Add(1)
	if err != nil {
		b.AppendErrors.Add(1)
		return
	}
	b.AppendRecords.Add(int64(records))
	b.AppendBytes.Add(bytes)
}

// RecordRotation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRotation(duration time.Duration, err error) {
	b.RotationCount.Add(1)
	b.RotationNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RotationErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(sections int, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadSections.Add(int64(sections))
	b.LoadNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordCleanup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCleanup(removed int, duration time.Duration, err error) {
	b.CleanupCount.Add(1)
	b.CleanupSections.Add(int64(removed))
	if err != nil {
		b.CleanupErrors.Add(1)
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	AppendCount     int64
	AppendRecords   int64
	AppendBytes     int64
	AppendErrors    int64
	RotationCount   int64
	RotationErrors  int64
	RotationAvg     time.Duration
	LoadCount       int64
	LoadSections    int64
	LoadErrors      int64
	CleanupCount    int64
	CleanupSections int64
	CleanupErrors   int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		AppendCount:     b.AppendCount.Load(),
		AppendRecords:   b.AppendRecords.Load(),
		AppendBytes:     b.AppendBytes.Load(),
		AppendErrors:    b.AppendErrors.Load(),
		RotationCount:   b.RotationCount.Load(),
		RotationErrors:  b.RotationErrors.Load(),
		LoadCount:       b.LoadCount.Load(),
		LoadSections:    b.LoadSections.Load(),
		LoadErrors:      b.LoadErrors.Load(),
		CleanupCount:    b.CleanupCount.Load(),
		CleanupSections: b.CleanupSections.Load(),
		CleanupErrors:   b.CleanupErrors.Load(),
	}
	if s.RotationCount > 0 {
		s.RotationAvg = time.Duration(b.RotationNanos.Load() / s.RotationCount)
	}
	return s
}
