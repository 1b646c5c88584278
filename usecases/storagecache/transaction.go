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
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/weaviate/graphkv/entities/storage"
)

// CacheTx buffers mutations of one backend transaction and keeps the store
// caches honest: every buffered mutation invalidates the touched row. Once
// bufferSize column changes accumulate, the buffer is flushed intermediately
// through the manager's batch mutation.
type CacheTx struct {
	sync.Mutex

	txh          storage.Transaction
	manager      storage.Manager
	bufferSize   int
	maxWriteTime time.Duration

	mutations    map[string]storage.KeyMutations
	numMutations int
	caches       map[string]Cache
}

// NewCacheTx wraps txh. bufferSize must be positive; callers pass the
// unbounded sentinel (math.MaxInt) when intermediate flushes are pointless
// because the backend cannot batch anyway.
func NewCacheTx(txh storage.Transaction, manager storage.Manager, bufferSize int,
	maxWriteTime time.Duration,
) *CacheTx {
	return &CacheTx{
		txh:          txh,
		manager:      manager,
		bufferSize:   bufferSize,
		maxWriteTime: maxWriteTime,
		mutations:    map[string]storage.KeyMutations{},
		caches:       map[string]Cache{},
	}
}

// Base exposes the wrapped backend transaction, e.g. for cached reads that
// have to run in the same isolation scope.
func (t *CacheTx) Base() storage.Transaction {
	return t.txh
}

// Mutate buffers additions and deletions against the cached store.
func (t *CacheTx) Mutate(cache Cache, key []byte, additions []storage.Entry,
	deletions [][]byte,
) error {
	mutation := &storage.Mutation{Additions: additions, Deletions: deletions}
	if mutation.Empty() {
		return nil
	}

	cache.InvalidateKey(key)

	t.Lock()
	storeName := cache.Store().Name()
	byKey, ok := t.mutations[storeName]
	if !ok {
		byKey = storage.KeyMutations{}
		t.mutations[storeName] = byKey
		t.caches[storeName] = cache
	}
	if existing, ok := byKey[string(key)]; ok {
		existing.Merge(mutation)
	} else {
		byKey[string(key)] = mutation
	}
	t.numMutations += mutation.Size()
	needsFlush := t.numMutations >= t.bufferSize
	t.Unlock()

	if needsFlush {
		return t.Flush()
	}
	return nil
}

// Flush persists the buffered mutations through the store manager within the
// transaction, bounded by the max write-wait duration.
func (t *CacheTx) Flush() error {
	t.Lock()
	if t.numMutations == 0 {
		t.Unlock()
		return nil
	}
	pending := t.mutations
	t.mutations = map[string]storage.KeyMutations{}
	t.numMutations = 0
	t.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- t.manager.MutateMany(pending, t.txh)
	}()

	timer := time.NewTimer(t.maxWriteTime)
	defer timer.Stop()

	select {
	case err := <-done:
		return errors.Wrap(err, "flush buffered mutations")
	case <-timer.C:
		return errors.Errorf("flush of buffered mutations timed out after %s", t.maxWriteTime)
	}
}

// Commit flushes the remaining buffer, then commits the backend transaction.
func (t *CacheTx) Commit() error {
	if err := t.Flush(); err != nil {
		return err
	}
	return t.txh.Commit()
}

// Rollback discards the buffer and rolls the backend transaction back.
func (t *CacheTx) Rollback() error {
	t.Lock()
	t.mutations = map[string]storage.KeyMutations{}
	t.numMutations = 0
	t.Unlock()

	return t.txh.Rollback()
}

// NumBuffered returns the number of buffered column changes.
func (t *CacheTx) NumBuffered() int {
	t.Lock()
	defer t.Unlock()
	return t.numMutations
}
