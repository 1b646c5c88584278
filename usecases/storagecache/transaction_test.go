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
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/graphkv/entities/storage"
)

func TestCacheTx(t *testing.T) {
	entry := func(col string) []storage.Entry {
		return []storage.Entry{{Column: []byte(col), Value: []byte("v")}}
	}

	t.Run("mutations buffer until the threshold", func(t *testing.T) {
		manager := &recordingManager{}
		tx := NewCacheTx(&recordingTx{}, manager, 3, time.Second)
		cache := NewNoCache(&countingStore{})

		require.Nil(t, tx.Mutate(cache, []byte("k1"), entry("a"), nil))
		require.Nil(t, tx.Mutate(cache, []byte("k2"), entry("b"), nil))
		assert.Equal(t, 0, manager.batches, "below threshold, nothing flushed")
		assert.Equal(t, 2, tx.NumBuffered())

		require.Nil(t, tx.Mutate(cache, []byte("k3"), entry("c"), nil))
		assert.Equal(t, 1, manager.batches, "threshold reached, intermediate flush")
		assert.Equal(t, 0, tx.NumBuffered())
	})

	t.Run("unbounded sentinel never flushes intermediately", func(t *testing.T) {
		manager := &recordingManager{}
		tx := NewCacheTx(&recordingTx{}, manager, math.MaxInt, time.Second)
		cache := NewNoCache(&countingStore{})

		for i := 0; i < 10_000; i++ {
			require.Nil(t, tx.Mutate(cache, []byte{byte(i), byte(i >> 8)}, entry("a"), nil))
		}
		assert.Equal(t, 0, manager.batches)
	})

	t.Run("commit flushes the remainder then commits", func(t *testing.T) {
		manager := &recordingManager{}
		backendTx := &recordingTx{}
		tx := NewCacheTx(backendTx, manager, 100, time.Second)
		cache := NewNoCache(&countingStore{})

		require.Nil(t, tx.Mutate(cache, []byte("k"), entry("a"), nil))
		require.Nil(t, tx.Commit())

		assert.Equal(t, 1, manager.batches)
		assert.True(t, backendTx.committed)
		require.Len(t, manager.seen, 1)
		assert.Contains(t, manager.seen[0], "edgestore")
	})

	t.Run("mutations to the same key merge", func(t *testing.T) {
		manager := &recordingManager{}
		tx := NewCacheTx(&recordingTx{}, manager, 100, time.Second)
		cache := NewNoCache(&countingStore{})

		require.Nil(t, tx.Mutate(cache, []byte("k"), entry("a"), nil))
		require.Nil(t, tx.Mutate(cache, []byte("k"), entry("b"), [][]byte{[]byte("dead")}))
		require.Nil(t, tx.Flush())

		require.Len(t, manager.seen, 1)
		mutation := manager.seen[0]["edgestore"]["k"]
		require.NotNil(t, mutation)
		assert.Len(t, mutation.Additions, 2)
		assert.Len(t, mutation.Deletions, 1)
	})

	t.Run("empty mutations are ignored", func(t *testing.T) {
		manager := &recordingManager{}
		tx := NewCacheTx(&recordingTx{}, manager, 1, time.Second)
		cache := NewNoCache(&countingStore{})

		require.Nil(t, tx.Mutate(cache, []byte("k"), nil, nil))
		assert.Equal(t, 0, tx.NumBuffered())
		assert.Equal(t, 0, manager.batches)
	})

	t.Run("buffered mutations invalidate the cache row", func(t *testing.T) {
		store := &countingStore{}
		clock := &fakeClock{now: time.Unix(0, 0)}
		cache := newExpirationCache(t, store, time.Minute, 1<<20, clock)
		manager := &recordingManager{}
		tx := NewCacheTx(&recordingTx{}, manager, 100, time.Second)

		query := storage.SliceQuery{Key: []byte("row"), SliceStart: []byte("a"), SliceEnd: []byte("z")}
		_, err := cache.Slice(query, nil)
		require.Nil(t, err)

		require.Nil(t, tx.Mutate(cache, []byte("row"), entry("a"), nil))

		_, err = cache.Slice(query, nil)
		require.Nil(t, err)
		assert.Equal(t, 2, store.slices, "write must have dropped the cached row")
	})

	t.Run("rollback discards the buffer", func(t *testing.T) {
		manager := &recordingManager{}
		backendTx := &recordingTx{}
		tx := NewCacheTx(backendTx, manager, 100, time.Second)
		cache := NewNoCache(&countingStore{})

		require.Nil(t, tx.Mutate(cache, []byte("k"), entry("a"), nil))
		require.Nil(t, tx.Rollback())

		assert.Equal(t, 0, manager.batches)
		assert.Equal(t, 0, tx.NumBuffered())
		assert.True(t, backendTx.rolledBack)
	})

	t.Run("slow flush times out", func(t *testing.T) {
		manager := &recordingManager{delay: 200 * time.Millisecond}
		tx := NewCacheTx(&recordingTx{}, manager, 100, 10*time.Millisecond)
		cache := NewNoCache(&countingStore{})

		require.Nil(t, tx.Mutate(cache, []byte("k"), entry("a"), nil))
		err := tx.Flush()
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})
}

// ----------------------------------------------------------------------------
// fakes

type recordingManager struct {
	sync.Mutex
	batches int
	seen    []map[string]storage.KeyMutations
	delay   time.Duration
}

func (m *recordingManager) OpenDatabase(name string) (storage.Store, error) {
	return &countingStore{}, nil
}

func (m *recordingManager) BeginTransaction(cfg storage.TxConfig) (storage.Transaction, error) {
	return &recordingTx{}, nil
}

func (m *recordingManager) MutateMany(mutations map[string]storage.KeyMutations,
	txh storage.Transaction,
) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.Lock()
	defer m.Unlock()
	m.batches++
	m.seen = append(m.seen, mutations)
	return nil
}

func (m *recordingManager) Features() storage.Features { return storage.Features{} }
func (m *recordingManager) Close() error               { return nil }
func (m *recordingManager) ClearStorage() error        { return nil }

type recordingTx struct {
	committed  bool
	rolledBack bool
}

func (t *recordingTx) Commit() error {
	t.committed = true
	return nil
}

func (t *recordingTx) Rollback() error {
	t.rolledBack = true
	return nil
}
