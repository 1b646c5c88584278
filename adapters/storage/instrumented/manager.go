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

// Package instrumented decorates a store manager with prometheus timing of
// every backend round trip.
package instrumented

import (
	"time"

	"github.com/weaviate/graphkv/entities/storage"
	"github.com/weaviate/graphkv/usecases/monitoring"
)

// MergedStoreName is the store_name label used for all stores when metric
// grouping is enabled.
const MergedStoreName = "stores"

// ManagerName is the label under which manager-level operations (begin
// transaction, batch mutation) are reported.
const ManagerName = "storeManager"

type Manager struct {
	base    storage.Manager
	metrics *monitoring.PrometheusMetrics
}

func NewManager(base storage.Manager, metrics *monitoring.PrometheusMetrics) *Manager {
	return &Manager{base: base, metrics: metrics}
}

func (m *Manager) observe(storeName, operation string, start time.Time) {
	m.metrics.ObserveStoreOperation(m.metrics.StoreLabel(storeName, MergedStoreName),
		operation, time.Since(start).Seconds())
}

func (m *Manager) OpenDatabase(name string) (storage.Store, error) {
	defer m.observe(ManagerName, "openDatabase", time.Now())

	store, err := m.base.OpenDatabase(name)
	if err != nil {
		return nil, err
	}
	return &instrumentedStore{base: store, manager: m}, nil
}

func (m *Manager) BeginTransaction(cfg storage.TxConfig) (storage.Transaction, error) {
	defer m.observe(ManagerName, "beginTransaction", time.Now())
	return m.base.BeginTransaction(cfg)
}

func (m *Manager) MutateMany(mutations map[string]storage.KeyMutations, txh storage.Transaction) error {
	defer m.observe(ManagerName, "mutateMany", time.Now())
	return m.base.MutateMany(mutations, txh)
}

func (m *Manager) Features() storage.Features {
	return m.base.Features()
}

func (m *Manager) Close() error {
	return m.base.Close()
}

func (m *Manager) ClearStorage() error {
	return m.base.ClearStorage()
}

type instrumentedStore struct {
	base    storage.Store
	manager *Manager
}

func (s *instrumentedStore) Name() string {
	return s.base.Name()
}

func (s *instrumentedStore) Slice(query storage.SliceQuery, txh storage.Transaction) ([]storage.Entry, error) {
	defer s.manager.observe(s.base.Name(), "getSlice", time.Now())
	return s.base.Slice(query, txh)
}

func (s *instrumentedStore) Mutate(key []byte, additions []storage.Entry, deletions [][]byte,
	txh storage.Transaction,
) error {
	defer s.manager.observe(s.base.Name(), "mutate", time.Now())
	return s.base.Mutate(key, additions, deletions, txh)
}

func (s *instrumentedStore) AcquireLock(key, column, expectedValue []byte, txh storage.Transaction) error {
	defer s.manager.observe(s.base.Name(), "acquireLock", time.Now())
	return s.base.AcquireLock(key, column, expectedValue, txh)
}

func (s *instrumentedStore) Close() error {
	return s.base.Close()
}
