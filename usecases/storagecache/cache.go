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

// Package storagecache layers expiring, size-bounded caches over opened
// stores and provides the buffering transaction that keeps them consistent
// with backend writes.
package storagecache

import (
	"github.com/weaviate/graphkv/entities/storage"
)

// Cache decorates one opened store. Reads may be answered from memory,
// writes must go through a CacheTx so the affected rows get invalidated.
type Cache interface {
	// Slice behaves like storage.Store.Slice, possibly served from cache.
	Slice(query storage.SliceQuery, txh storage.Transaction) ([]storage.Entry, error)

	// InvalidateKey drops all cached slices of the given row key.
	InvalidateKey(key []byte)

	// Store exposes the undecorated store, e.g. for scan jobs.
	Store() storage.Store

	Close() error
}

// NoCache is the pass-through used when caching is disabled. It adds no
// buffering and no TTL semantics but keeps the interface uniform.
type NoCache struct {
	store storage.Store
}

func NewNoCache(store storage.Store) *NoCache {
	return &NoCache{store: store}
}

func (c *NoCache) Slice(query storage.SliceQuery, txh storage.Transaction) ([]storage.Entry, error) {
	return c.store.Slice(query, txh)
}

func (c *NoCache) InvalidateKey(key []byte) {}

func (c *NoCache) Store() storage.Store {
	return c.store
}

func (c *NoCache) Close() error {
	return c.store.Close()
}
