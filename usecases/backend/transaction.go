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

package backend

import (
	"time"

	"github.com/weaviate/graphkv/entities/errorcompounder"
	"github.com/weaviate/graphkv/entities/indexing"
	"github.com/weaviate/graphkv/entities/storage"
	"github.com/weaviate/graphkv/usecases/storagecache"
)

// BackendTransaction is one unit of work across all orchestrated systems:
// one storage transaction behind a buffering cache transaction, plus one
// index transaction per configured index provider. Created per logical
// operation, committed or rolled back as a unit, never reused.
type BackendTransaction struct {
	cacheTx       *storagecache.CacheTx
	txConfig      storage.TxConfig
	storeFeatures storage.Features

	edgeStore  storagecache.Cache
	indexStore storagecache.Cache
	txLogStore storagecache.Cache

	maxReadTime time.Duration
	indexTx     map[string]*indexing.Transaction
	pool        *WorkerPool
}

// CacheTx exposes the buffering transaction for writes against the dedicated
// stores.
func (t *BackendTransaction) CacheTx() *storagecache.CacheTx {
	return t.cacheTx
}

func (t *BackendTransaction) StoreFeatures() storage.Features {
	return t.storeFeatures
}

func (t *BackendTransaction) MaxReadTime() time.Duration {
	return t.maxReadTime
}

// EdgeStoreSlice reads from the edge store through its cache, inside this
// transaction's isolation scope.
func (t *BackendTransaction) EdgeStoreSlice(query storage.SliceQuery) ([]storage.Entry, error) {
	return t.edgeStore.Slice(query, t.cacheTx.Base())
}

// IndexStoreSlice reads from the graph-index store through its cache.
func (t *BackendTransaction) IndexStoreSlice(query storage.SliceQuery) ([]storage.Entry, error) {
	return t.indexStore.Slice(query, t.cacheTx.Base())
}

// MutateEdges buffers a mutation against the edge store.
func (t *BackendTransaction) MutateEdges(key []byte, additions []storage.Entry,
	deletions [][]byte,
) error {
	return t.cacheTx.Mutate(t.edgeStore, key, additions, deletions)
}

// MutateIndex buffers a mutation against the graph-index store.
func (t *BackendTransaction) MutateIndex(key []byte, additions []storage.Entry,
	deletions [][]byte,
) error {
	return t.cacheTx.Mutate(t.indexStore, key, additions, deletions)
}

// LogTxMutation appends to the transaction-log store within this
// transaction.
func (t *BackendTransaction) LogTxMutation(key []byte, additions []storage.Entry) error {
	return t.cacheTx.Mutate(t.txLogStore, key, additions, nil)
}

// IndexTx returns the transaction of one index namespace.
func (t *BackendTransaction) IndexTx(namespace string) (*indexing.Transaction, bool) {
	tx, ok := t.indexTx[namespace]
	return tx, ok
}

// IndexTxs returns all index transactions keyed by namespace.
func (t *BackendTransaction) IndexTxs() map[string]*indexing.Transaction {
	return t.indexTx
}

// Pool returns the shared worker pool for parallel backend operations. The
// second return is false when parallelism is disabled.
func (t *BackendTransaction) Pool() (*WorkerPool, bool) {
	return t.pool, t.pool != nil
}

// Commit flushes and commits the storage transaction first, then commits
// every index transaction. Index commit failures do not undo the storage
// commit; they are aggregated and surfaced so the caller can repair the
// indexes (e.g. via a scan job).
func (t *BackendTransaction) Commit() error {
	if err := t.cacheTx.Commit(); err != nil {
		return err
	}

	ec := errorcompounder.New()
	for _, tx := range t.indexTx {
		ec.Add(tx.Commit())
	}
	return ec.ToError()
}

// Rollback rolls back the storage transaction and every index transaction,
// attempting all of them regardless of individual failures.
func (t *BackendTransaction) Rollback() error {
	ec := errorcompounder.New()
	ec.Add(t.cacheTx.Rollback())
	for _, tx := range t.indexTx {
		ec.Add(tx.Rollback())
	}
	return ec.ToError()
}
