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

// Package orderedkv adapts a flat ordered key-value backend to the
// key-column-value contract. Row key and column are concatenated into one
// flat key; for stores with a registered fixed key width the split point is
// implicit, for all others the row key is length-prefixed.
package orderedkv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/weaviate/graphkv/entities/storage"
)

// Adapter presents a storage.OrderedManager as a storage.Manager.
type Adapter struct {
	base      storage.OrderedManager
	keyWidths map[string]int
}

// New builds the adapter. keyWidths fixes the row-key width per store name;
// stores not listed use length-prefixed row keys instead.
func New(base storage.OrderedManager, keyWidths map[string]int) *Adapter {
	widths := make(map[string]int, len(keyWidths))
	for name, width := range keyWidths {
		widths[name] = width
	}
	return &Adapter{base: base, keyWidths: widths}
}

func (a *Adapter) OpenDatabase(name string) (storage.Store, error) {
	base, err := a.base.OpenOrderedStore(name)
	if err != nil {
		return nil, err
	}
	return &adaptedStore{base: base, keyWidth: a.keyWidths[name]}, nil
}

func (a *Adapter) BeginTransaction(cfg storage.TxConfig) (storage.Transaction, error) {
	return a.base.BeginTransaction(cfg)
}

func (a *Adapter) MutateMany(mutations map[string]storage.KeyMutations, txh storage.Transaction) error {
	// ordered backends have no native batch support, apply store by store
	for storeName, byKey := range mutations {
		store, err := a.OpenDatabase(storeName)
		if err != nil {
			return errors.Wrapf(err, "mutate store %q", storeName)
		}
		for key, mutation := range byKey {
			err := store.Mutate([]byte(key), mutation.Additions, mutation.Deletions, txh)
			if err != nil {
				return errors.Wrapf(err, "mutate store %q", storeName)
			}
		}
	}
	return nil
}

func (a *Adapter) Features() storage.Features {
	features := a.base.Features()
	// the adapter loops, it cannot make MutateMany atomic
	features.BatchMutation = false
	return features
}

func (a *Adapter) Close() error {
	return a.base.Close()
}

func (a *Adapter) ClearStorage() error {
	return a.base.ClearStorage()
}

type adaptedStore struct {
	base     storage.OrderedStore
	keyWidth int // 0 means length-prefixed keys
}

func (s *adaptedStore) Name() string {
	return s.base.Name()
}

func (s *adaptedStore) flatKey(key, column []byte) ([]byte, error) {
	if s.keyWidth > 0 {
		if len(key) != s.keyWidth {
			return nil, errors.Errorf("store %q requires %d-byte keys, got %d bytes",
				s.base.Name(), s.keyWidth, len(key))
		}
		return append(append([]byte{}, key...), column...), nil
	}

	prefix := binary.AppendUvarint(nil, uint64(len(key)))
	return append(append(prefix, key...), column...), nil
}

// column strips the row-key portion off a flat key produced by flatKey.
func (s *adaptedStore) column(flat []byte) ([]byte, error) {
	if s.keyWidth > 0 {
		if len(flat) < s.keyWidth {
			return nil, errors.Errorf("store %q: flat key shorter than key width", s.base.Name())
		}
		return flat[s.keyWidth:], nil
	}

	keyLen, n := binary.Uvarint(flat)
	if n <= 0 || uint64(len(flat)-n) < keyLen {
		return nil, errors.Errorf("store %q: malformed flat key", s.base.Name())
	}
	return flat[n+int(keyLen):], nil
}

func (s *adaptedStore) Slice(query storage.SliceQuery, txh storage.Transaction) ([]storage.Entry, error) {
	start, err := s.flatKey(query.Key, query.SliceStart)
	if err != nil {
		return nil, err
	}
	end, err := s.flatKey(query.Key, query.SliceEnd)
	if err != nil {
		return nil, err
	}

	pairs, err := s.base.Scan(start, end, txh)
	if err != nil {
		return nil, err
	}

	entries := make([]storage.Entry, 0, len(pairs))
	for _, pair := range pairs {
		column, err := s.column(pair.Key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, storage.Entry{Column: column, Value: pair.Value})
		if query.Limit > 0 && len(entries) >= query.Limit {
			break
		}
	}
	return entries, nil
}

func (s *adaptedStore) Mutate(key []byte, additions []storage.Entry, deletions [][]byte,
	txh storage.Transaction,
) error {
	for _, deletion := range deletions {
		flat, err := s.flatKey(key, deletion)
		if err != nil {
			return err
		}
		if err := s.base.Delete(flat, txh); err != nil {
			return err
		}
	}
	for _, addition := range additions {
		flat, err := s.flatKey(key, addition.Column)
		if err != nil {
			return err
		}
		if err := s.base.Put(flat, addition.Value, txh); err != nil {
			return err
		}
	}
	return nil
}

func (s *adaptedStore) AcquireLock(key, column, expectedValue []byte, txh storage.Transaction) error {
	flat, err := s.flatKey(key, column)
	if err != nil {
		return err
	}
	return s.base.AcquireLock(flat, expectedValue, txh)
}

func (s *adaptedStore) Close() error {
	return s.base.Close()
}
