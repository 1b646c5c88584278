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

// Store is one opened key-column-value store: rows addressed by key, each row
// an ordered list of column/value pairs.
type Store interface {
	Name() string

	// Slice returns the entries of the query's row key whose columns fall
	// into [SliceStart, SliceEnd), at most Limit many if Limit > 0.
	Slice(query SliceQuery, txh Transaction) ([]Entry, error)

	// Mutate adds and deletes columns on a single row key.
	Mutate(key []byte, additions []Entry, deletions [][]byte, txh Transaction) error

	// AcquireLock registers intent to modify key/column, asserting the column
	// still holds expectedValue at commit time. Only meaningful on backends
	// with native locking or behind the expected-value-checking decorator.
	AcquireLock(key, column, expectedValue []byte, txh Transaction) error

	Close() error
}

// Entry is a single column/value pair.
type Entry struct {
	Column []byte
	Value  []byte
}

// SliceQuery selects a contiguous column range of one row.
type SliceQuery struct {
	Key        []byte
	SliceStart []byte
	SliceEnd   []byte
	Limit      int
}

// Features describes what a backend natively supports. The orchestration
// layer inspects these once at construction time to pick locking, caching and
// buffering strategies.
type Features struct {
	// Locking is true if the backend has a native locking mechanism usable
	// through AcquireLock without further help.
	Locking bool

	// KeyConsistent is true if single-key reads and writes are linearizable.
	// Required for simulated locking and for ID allocation.
	KeyConsistent bool

	// BatchMutation is true if MutateMany is atomic per store rather than a
	// loop over single mutations.
	BatchMutation bool

	// MultiQuery is true if the backend answers several slice queries in one
	// round trip.
	MultiQuery bool
}
