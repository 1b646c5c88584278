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

package storage

import "time"

// BaseManager is the least common denominator of all store managers. Backend
// factories return a BaseManager; the orchestration layer then requires the
// full Manager contract, adapting ordered key-value managers on the way.
type BaseManager interface {
	Features() Features
	Close() error

	// ClearStorage irreversibly deletes all data of all stores managed by
	// this manager.
	ClearStorage() error
}

// Manager is the contract every key-column-value backend has to fulfill. The
// orchestration layer never talks to a concrete engine directly, only through
// this interface (possibly behind locking or instrumentation decorators).
type Manager interface {
	BaseManager
	// OpenDatabase opens (and creates if necessary) the named store. Stores
	// opened twice must be backed by the same underlying data.
	OpenDatabase(name string) (Store, error)

	// BeginTransaction starts a new backend-level transaction. The returned
	// handle is owned by the caller and must be committed or rolled back.
	BeginTransaction(cfg TxConfig) (Transaction, error)

	// MutateMany applies a batch of mutations across stores within the given
	// transaction. Backends without batch-mutation support apply them one by
	// one, they must still honor the transaction handle.
	MutateMany(mutations map[string]KeyMutations, txh Transaction) error
}

// KeyMutations groups the mutations of a single store by row key. The map key
// is the raw row key, stringified so it can serve as a map key.
type KeyMutations map[string]*Mutation

// Mutation is the set of column additions and deletions for one row key.
type Mutation struct {
	Additions []Entry
	Deletions [][]byte
}

// Merge folds other into m.
func (m *Mutation) Merge(other *Mutation) {
	if other == nil {
		return
	}
	m.Additions = append(m.Additions, other.Additions...)
	m.Deletions = append(m.Deletions, other.Deletions...)
}

func (m *Mutation) Empty() bool {
	return len(m.Additions) == 0 && len(m.Deletions) == 0
}

// Size returns the number of individual column changes contained in the
// mutation, which is the unit the transaction buffer is bounded in.
func (m *Mutation) Size() int {
	return len(m.Additions) + len(m.Deletions)
}

// TxConfig carries the backend-visible settings of a single transaction.
type TxConfig struct {
	// StartTime is the instant the transaction logically begins at. Backends
	// use it for timestamping mutations.
	StartTime time.Time

	// BatchLoading indicates the transaction belongs to a bulk-load and the
	// backend may relax consistency for throughput.
	BatchLoading bool

	// KeyConsistent requests the backend's key-consistent settings, i.e.
	// linearizable single-key reads. Only valid if Features.KeyConsistent.
	KeyConsistent bool
}

// Transaction is a handle onto one backend transaction.
type Transaction interface {
	Commit() error
	Rollback() error
}
