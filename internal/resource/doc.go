// Package resource bounds the resources spent on loading persisted sections.
//
// A Controller governs three resource types and may be shared by several
// logs:
//
//   - Memory: bytes held by materialized sections (blocking, context-aware)
//   - Concurrency: number of section loads in flight
//   - IO: read bandwidth in bytes per second (token bucket)
//
// All methods are safe on a nil *Controller, which imposes no limit:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   1 << 30,
//	    MaxConcurrentLoads: 4,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//	log, err := seglog.Open(ctx, st, seglog.WithResourceController(rc))
package resource
