//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package config holds the typed configuration of the storage backend
// orchestration layer. Parsing config files into this struct is the concern
// of the embedding application, not of this module.
package config

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultIDStoreName is the store the ID authority allocates blocks
	// from. Unlike the other store names it is configurable to keep old
	// deployments readable.
	DefaultIDStoreName = "graphkv_ids"

	DefaultLockBackend = "consistentkey"
	DefaultLogBackend  = "default"

	DefaultBufferSize     = 1024
	DefaultPageSize       = 100
	DefaultCacheSize      = 0.3
	DefaultCacheCleanWait = 50 * time.Millisecond
	DefaultMaxWriteTime   = 100 * time.Second
	DefaultMaxReadTime    = 10 * time.Second
)

// Config selects and tunes every subsystem the backend orchestrates.
type Config struct {
	// StorageBackend names the primary store manager in the backend
	// registry, either a registered shorthand or a fully-qualified name.
	StorageBackend string

	// IDStoreName is the store backing ID allocation.
	IDStoreName string

	// Indexes maps index namespace -> index backend name.
	Indexes map[string]IndexConfig

	// LockBackend picks the simulated-locking strategy, one of the
	// registered locker names.
	LockBackend string

	// TxLogBackend, MgmtLogBackend and UserLogBackend name the log manager
	// per log domain. The default is the store-backed log manager.
	TxLogBackend   string
	MgmtLogBackend string
	UserLogBackend string

	// BatchLoading puts the whole backend into bulk-load mode. It disables
	// caching regardless of CacheEnabled.
	BatchLoading bool

	CacheEnabled bool
	// CacheTime is the cache entry expiration. Zero means entries
	// effectively never expire. Negative values are invalid.
	CacheTime time.Duration
	// CacheSize is either an absolute byte budget (>= 1000) or, if in
	// (0, 1), a fraction of the currently available memory headroom.
	CacheSize float64
	// CacheCleanWait is the pause between cache eviction sweeps.
	CacheCleanWait time.Duration

	// BufferSize bounds the number of buffered column mutations per
	// transaction before an intermediate flush.
	BufferSize int

	MaxWriteTime time.Duration
	MaxReadTime  time.Duration

	// ParallelBackendOps enables the shared worker pool handed to every
	// composite transaction.
	ParallelBackendOps bool

	// Metrics wraps the store manager and caches in prometheus
	// instrumentation. MetricsMergeStores collapses per-store metric names
	// into one shared name.
	Metrics            bool
	MetricsMergeStores bool

	// PageSize is the work-block size of scan jobs.
	PageSize int

	// TimeSource provides backend timestamps. Defaults to time.Now.
	TimeSource func() time.Time
}

// IndexConfig configures one index namespace.
type IndexConfig struct {
	// Backend names the index provider in the index registry.
	Backend string
}

// DefaultConfig returns a config with every tunable at its default. The
// storage backend is deliberately left empty, there is no sane default
// engine.
func DefaultConfig() Config {
	return Config{
		IDStoreName:    DefaultIDStoreName,
		LockBackend:    DefaultLockBackend,
		TxLogBackend:   DefaultLogBackend,
		MgmtLogBackend: DefaultLogBackend,
		UserLogBackend: DefaultLogBackend,
		CacheEnabled:   true,
		CacheSize:      DefaultCacheSize,
		CacheCleanWait: DefaultCacheCleanWait,
		BufferSize:     DefaultBufferSize,
		MaxWriteTime:   DefaultMaxWriteTime,
		MaxReadTime:    DefaultMaxReadTime,
		PageSize:       DefaultPageSize,
		TimeSource:     time.Now,
	}
}

// Validate checks everything that can be checked without touching a backend.
// Capability-dependent validation (locking vs key-consistency etc.) happens
// in the backend itself.
func (c *Config) Validate() error {
	if c.StorageBackend == "" {
		return errors.New("config: storage backend must be set")
	}
	if c.BufferSize <= 0 {
		return errors.Errorf("config: buffer size must be positive, got %d", c.BufferSize)
	}
	if c.CacheTime < 0 {
		return errors.Errorf("config: cache expiration time must not be negative, got %s", c.CacheTime)
	}
	if c.CacheEnabled && c.CacheSize <= 0 {
		return errors.Errorf("config: invalid cache size %g, must be a fraction in (0,1) or an absolute byte count", c.CacheSize)
	}
	if c.CacheEnabled && c.CacheSize >= 1 && c.CacheSize <= 1000 {
		return errors.Errorf("config: cache size %g is too small, absolute sizes must exceed 1000 bytes", c.CacheSize)
	}
	if c.PageSize <= 0 {
		return errors.Errorf("config: page size must be positive, got %d", c.PageSize)
	}
	for namespace, idx := range c.Indexes {
		if namespace == "" {
			return errors.New("config: index namespace must not be empty")
		}
		if idx.Backend == "" {
			return errors.Errorf("config: index %q: backend must be set", namespace)
		}
	}
	return nil
}

// Clock returns the configured time source, falling back to time.Now.
func (c *Config) Clock() func() time.Time {
	if c.TimeSource == nil {
		return time.Now
	}
	return c.TimeSource
}
