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

package storagecache

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphkv/entities/storage"
	"github.com/weaviate/graphkv/usecases/monitoring"
)

// EternalTTL stands in for "never expires". Large but finite so expiry
// arithmetic needs no special case; 200 years outlives any process.
const EternalTTL = 200 * 365 * 24 * time.Hour

// ExpirationCache caches slice results per row key with a TTL and an
// approximate byte budget. A background sweeper drops expired entries and
// frees memory under pressure every cleanWait.
type ExpirationCache struct {
	sync.Mutex

	store     storage.Store
	cacheName string
	ttl       time.Duration
	maxBytes  int64
	clock     func() time.Time
	metrics   *monitoring.PrometheusMetrics
	logger    logrus.FieldLogger

	entries   map[string]map[string]*cachedSlice // row key -> query fingerprint
	usedBytes int64

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

type cachedSlice struct {
	result    []storage.Entry
	expiresAt time.Time
	bytes     int64
}

// NewExpirationCache wraps store. cacheName is the metrics identity, ttl of
// zero is promoted to EternalTTL, maxBytes bounds retained result bytes and
// cleanWait is the sweep cadence. metrics may be nil.
func NewExpirationCache(store storage.Store, cacheName string, ttl time.Duration,
	cleanWait time.Duration, maxBytes int64, clock func() time.Time,
	metrics *monitoring.PrometheusMetrics, logger logrus.FieldLogger,
) *ExpirationCache {
	if ttl == 0 {
		ttl = EternalTTL
	}

	c := &ExpirationCache{
		store:     store,
		cacheName: cacheName,
		ttl:       ttl,
		maxBytes:  maxBytes,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
		entries:   map[string]map[string]*cachedSlice{},
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go c.sweep(cleanWait)
	return c
}

func (c *ExpirationCache) Slice(query storage.SliceQuery, txh storage.Transaction) ([]storage.Entry, error) {
	key := string(query.Key)
	fingerprint := sliceFingerprint(query)

	c.Lock()
	if byQuery, ok := c.entries[key]; ok {
		if cached, ok := byQuery[fingerprint]; ok && c.clock().Before(cached.expiresAt) {
			result := cached.result
			c.Unlock()
			c.metrics.CacheHit(c.cacheName)
			return result, nil
		}
	}
	c.Unlock()

	c.metrics.CacheMiss(c.cacheName)
	result, err := c.store.Slice(query, txh)
	if err != nil {
		return nil, err
	}

	c.Lock()
	byQuery, ok := c.entries[key]
	if !ok {
		byQuery = map[string]*cachedSlice{}
		c.entries[key] = byQuery
	}
	size := sliceBytes(query, result)
	if prev, ok := byQuery[fingerprint]; ok {
		c.usedBytes -= prev.bytes
	}
	byQuery[fingerprint] = &cachedSlice{
		result:    result,
		expiresAt: c.clock().Add(c.ttl),
		bytes:     size,
	}
	c.usedBytes += size
	c.metrics.SetCacheSize(c.cacheName, c.usedBytes)
	c.Unlock()

	return result, nil
}

func (c *ExpirationCache) InvalidateKey(key []byte) {
	c.Lock()
	defer c.Unlock()

	byQuery, ok := c.entries[string(key)]
	if !ok {
		return
	}
	for _, cached := range byQuery {
		c.usedBytes -= cached.bytes
	}
	delete(c.entries, string(key))
	c.metrics.SetCacheSize(c.cacheName, c.usedBytes)
}

func (c *ExpirationCache) Store() storage.Store {
	return c.store
}

func (c *ExpirationCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.sweepStop)
		<-c.sweepDone
	})
	return c.store.Close()
}

// sweep periodically removes expired slices and, if the byte budget is
// exceeded, evicts whole rows until the cache fits again.
func (c *ExpirationCache) sweep(cleanWait time.Duration) {
	defer close(c.sweepDone)
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithField("cache", c.cacheName).Errorf("recovered from panic in cache sweep: %v", r)
			debug.PrintStack()
		}
	}()

	ticker := time.NewTicker(cleanWait)
	defer ticker.Stop()

	for {
		select {
		case <-c.sweepStop:
			return
		case <-ticker.C:
			c.sweepOnce()
		}
	}
}

func (c *ExpirationCache) sweepOnce() {
	now := c.clock()
	evicted := 0

	c.Lock()
	for key, byQuery := range c.entries {
		for fingerprint, cached := range byQuery {
			if !now.Before(cached.expiresAt) {
				c.usedBytes -= cached.bytes
				delete(byQuery, fingerprint)
				evicted++
			}
		}
		if len(byQuery) == 0 {
			delete(c.entries, key)
		}
	}
	for key, byQuery := range c.entries {
		if c.usedBytes <= c.maxBytes {
			break
		}
		for _, cached := range byQuery {
			c.usedBytes -= cached.bytes
			evicted++
		}
		delete(c.entries, key)
	}
	used := c.usedBytes
	c.Unlock()

	if evicted > 0 {
		c.metrics.CacheEviction(c.cacheName, evicted)
		c.metrics.SetCacheSize(c.cacheName, used)
	}
}

// ExpireAll empties the cache immediately, for callers that know the backing
// store changed underneath them.
func (c *ExpirationCache) ExpireAll() {
	c.Lock()
	defer c.Unlock()
	c.entries = map[string]map[string]*cachedSlice{}
	c.usedBytes = 0
	c.metrics.SetCacheSize(c.cacheName, 0)
}

func sliceFingerprint(query storage.SliceQuery) string {
	buf := make([]byte, 0, len(query.SliceStart)+len(query.SliceEnd)+12)
	buf = append(buf, query.SliceStart...)
	buf = append(buf, 0x00)
	buf = append(buf, query.SliceEnd...)
	buf = append(buf, 0x00)
	buf = append(buf, byte(query.Limit), byte(query.Limit>>8), byte(query.Limit>>16), byte(query.Limit>>24))
	return string(buf)
}

func sliceBytes(query storage.SliceQuery, result []storage.Entry) int64 {
	size := int64(len(query.Key) + len(query.SliceStart) + len(query.SliceEnd))
	for _, entry := range result {
		size += int64(len(entry.Column) + len(entry.Value))
	}
	return size
}
