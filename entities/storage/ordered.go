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

// OrderedManager is the contract of backends that only expose flat, ordered
// key-value stores without column granularity. Such managers cannot be used
// by the orchestration layer directly, they get adapted to the Manager
// contract with fixed key widths (see adapters/storage/orderedkv).
type OrderedManager interface {
	BaseManager

	OpenOrderedStore(name string) (OrderedStore, error)
	BeginTransaction(cfg TxConfig) (Transaction, error)
}

// OrderedStore is a flat key-value store whose keys iterate in byte order.
type OrderedStore interface {
	Name() string
	Get(key []byte, txh Transaction) ([]byte, error)
	Put(key, value []byte, txh Transaction) error
	Delete(key []byte, txh Transaction) error

	// Scan returns all pairs with start <= key < end in key order.
	Scan(start, end []byte, txh Transaction) ([]KeyValue, error)

	// AcquireLock mirrors Store.AcquireLock on a flat key.
	AcquireLock(key, expectedValue []byte, txh Transaction) error

	Close() error
}

// KeyValue is one pair returned by an ordered scan.
type KeyValue struct {
	Key   []byte
	Value []byte
}
