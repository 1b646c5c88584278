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

package orderedkv

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/graphkv/entities/storage"
)

func TestAdaptedStoreFixedWidth(t *testing.T) {
	manager := newFakeOrderedManager()
	adapter := New(manager, map[string]int{"edgestore": 8})

	store, err := adapter.OpenDatabase("edgestore")
	require.Nil(t, err)

	key := []byte("12345678")

	t.Run("rejects keys of the wrong width", func(t *testing.T) {
		err := store.Mutate([]byte("short"), []storage.Entry{{Column: []byte("c"), Value: []byte("v")}}, nil, nil)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "8-byte keys")
	})

	t.Run("round trips entries through flat keys", func(t *testing.T) {
		additions := []storage.Entry{
			{Column: []byte("col-b"), Value: []byte("2")},
			{Column: []byte("col-a"), Value: []byte("1")},
			{Column: []byte("col-c"), Value: []byte("3")},
		}
		require.Nil(t, store.Mutate(key, additions, nil, nil))

		entries, err := store.Slice(storage.SliceQuery{
			Key:        key,
			SliceStart: []byte("col-a"),
			SliceEnd:   []byte("col-c"),
		}, nil)
		require.Nil(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, []byte("col-a"), entries[0].Column)
		assert.Equal(t, []byte("col-b"), entries[1].Column)
	})

	t.Run("does not leak entries of neighboring keys", func(t *testing.T) {
		other := []byte("12345679")
		require.Nil(t, store.Mutate(other, []storage.Entry{
			{Column: []byte("col-a"), Value: []byte("other")},
		}, nil, nil))

		entries, err := store.Slice(storage.SliceQuery{
			Key:        key,
			SliceStart: []byte("col-a"),
			SliceEnd:   []byte("col-z"),
		}, nil)
		require.Nil(t, err)
		for _, entry := range entries {
			assert.NotEqual(t, []byte("other"), entry.Value)
		}
	})

	t.Run("deletions remove single columns", func(t *testing.T) {
		require.Nil(t, store.Mutate(key, nil, [][]byte{[]byte("col-a")}, nil))

		entries, err := store.Slice(storage.SliceQuery{
			Key:        key,
			SliceStart: []byte("col-a"),
			SliceEnd:   []byte("col-z"),
		}, nil)
		require.Nil(t, err)
		for _, entry := range entries {
			assert.NotEqual(t, []byte("col-a"), entry.Column)
		}
	})

	t.Run("limit caps the result", func(t *testing.T) {
		entries, err := store.Slice(storage.SliceQuery{
			Key:        key,
			SliceStart: []byte("col-a"),
			SliceEnd:   []byte("col-z"),
			Limit:      1,
		}, nil)
		require.Nil(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestAdaptedStoreVariableWidth(t *testing.T) {
	manager := newFakeOrderedManager()
	adapter := New(manager, nil)

	store, err := adapter.OpenDatabase("system_properties")
	require.Nil(t, err)

	t.Run("accepts keys of any length", func(t *testing.T) {
		for _, key := range [][]byte{[]byte("a"), []byte("a-much-longer-key")} {
			require.Nil(t, store.Mutate(key, []storage.Entry{
				{Column: []byte("col"), Value: []byte("val")},
			}, nil, nil))

			entries, err := store.Slice(storage.SliceQuery{
				Key:        key,
				SliceStart: []byte("col"),
				SliceEnd:   []byte("colz"),
			}, nil)
			require.Nil(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, []byte("val"), entries[0].Value)
		}
	})
}

func TestAdapterFeatures(t *testing.T) {
	manager := newFakeOrderedManager()
	manager.features = storage.Features{KeyConsistent: true, BatchMutation: true}

	adapter := New(manager, nil)
	assert.True(t, adapter.Features().KeyConsistent)
	assert.False(t, adapter.Features().BatchMutation,
		"adapter loops over single mutations, it must not advertise batching")
}

func TestAdapterMutateMany(t *testing.T) {
	manager := newFakeOrderedManager()
	adapter := New(manager, nil)

	mutations := map[string]storage.KeyMutations{
		"edgestore": {
			"k1": &storage.Mutation{Additions: []storage.Entry{{Column: []byte("c"), Value: []byte("v")}}},
		},
	}
	require.Nil(t, adapter.MutateMany(mutations, nil))

	store, err := adapter.OpenDatabase("edgestore")
	require.Nil(t, err)
	entries, err := store.Slice(storage.SliceQuery{
		Key: []byte("k1"), SliceStart: []byte("c"), SliceEnd: []byte("d"),
	}, nil)
	require.Nil(t, err)
	require.Len(t, entries, 1)
}

// ----------------------------------------------------------------------------
// fakes

type fakeOrderedManager struct {
	stores   map[string]*fakeOrderedStore
	features storage.Features
}

func newFakeOrderedManager() *fakeOrderedManager {
	return &fakeOrderedManager{stores: map[string]*fakeOrderedStore{}}
}

func (m *fakeOrderedManager) OpenOrderedStore(name string) (storage.OrderedStore, error) {
	if store, ok := m.stores[name]; ok {
		return store, nil
	}
	store := &fakeOrderedStore{name: name, data: map[string][]byte{}}
	m.stores[name] = store
	return store, nil
}

func (m *fakeOrderedManager) BeginTransaction(cfg storage.TxConfig) (storage.Transaction, error) {
	return fakeTx{}, nil
}

func (m *fakeOrderedManager) Features() storage.Features { return m.features }
func (m *fakeOrderedManager) Close() error               { return nil }
func (m *fakeOrderedManager) ClearStorage() error        { return nil }

type fakeOrderedStore struct {
	name string
	data map[string][]byte
}

func (s *fakeOrderedStore) Name() string { return s.name }

func (s *fakeOrderedStore) Get(key []byte, txh storage.Transaction) ([]byte, error) {
	return s.data[string(key)], nil
}

func (s *fakeOrderedStore) Put(key, value []byte, txh storage.Transaction) error {
	s.data[string(key)] = value
	return nil
}

func (s *fakeOrderedStore) Delete(key []byte, txh storage.Transaction) error {
	delete(s.data, string(key))
	return nil
}

func (s *fakeOrderedStore) Scan(start, end []byte, txh storage.Transaction) ([]storage.KeyValue, error) {
	var out []storage.KeyValue
	for key, value := range s.data {
		if bytes.Compare(start, []byte(key)) <= 0 && bytes.Compare([]byte(key), end) < 0 {
			out = append(out, storage.KeyValue{Key: []byte(key), Value: value})
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

func (s *fakeOrderedStore) AcquireLock(key, expectedValue []byte, txh storage.Transaction) error {
	return nil
}

func (s *fakeOrderedStore) Close() error { return nil }

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }
