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
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/weaviate/graphkv/entities/idalloc"
	"github.com/weaviate/graphkv/entities/indexing"
	"github.com/weaviate/graphkv/entities/storage"
	"github.com/weaviate/graphkv/usecases/config"
	"github.com/weaviate/graphkv/usecases/monitoring"
	"github.com/weaviate/graphkv/usecases/scan"
)

type fakeTx struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbacks++
	return nil
}

type fakeStore struct {
	mu     sync.Mutex
	name   string
	closed int
}

func (s *fakeStore) Name() string { return s.name }

func (s *fakeStore) Slice(query storage.SliceQuery, txh storage.Transaction) ([]storage.Entry, error) {
	return nil, nil
}

func (s *fakeStore) Mutate(key []byte, additions []storage.Entry, deletions [][]byte,
	txh storage.Transaction,
) error {
	return nil
}

func (s *fakeStore) AcquireLock(key, column, expectedValue []byte, txh storage.Transaction) error {
	return nil
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeManager struct {
	mu       sync.Mutex
	features storage.Features
	opened   []string
	stores   map[string]*fakeStore
	txs      []*fakeTx
	closed   int
	cleared  int
	ops      []string
}

func newFakeManager(features storage.Features) *fakeManager {
	return &fakeManager{features: features, stores: map[string]*fakeStore{}}
}

func (m *fakeManager) Features() storage.Features { return m.features }

func (m *fakeManager) OpenDatabase(name string) (storage.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, name)
	if store, ok := m.stores[name]; ok {
		return store, nil
	}
	store := &fakeStore{name: name}
	m.stores[name] = store
	return store, nil
}

func (m *fakeManager) BeginTransaction(cfg storage.TxConfig) (storage.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txh := &fakeTx{}
	m.txs = append(m.txs, txh)
	return txh, nil
}

func (m *fakeManager) MutateMany(mutations map[string]storage.KeyMutations,
	txh storage.Transaction,
) error {
	return nil
}

func (m *fakeManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	m.ops = append(m.ops, "close")
	return nil
}

func (m *fakeManager) ClearStorage() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	m.ops = append(m.ops, "clearStorage")
	return nil
}

func (m *fakeManager) openedStores() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.opened...)
}

type fakeIndexTx struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (t *fakeIndexTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commits++
	return nil
}

func (t *fakeIndexTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbacks++
	return nil
}

type fakeIndexProvider struct {
	mu       sync.Mutex
	beginErr error
	txs      []*fakeIndexTx
	closed   int
	cleared  int
}

func (p *fakeIndexProvider) BeginTransaction(cfg storage.TxConfig) (indexing.BaseTransaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	tx := &fakeIndexTx{}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func (p *fakeIndexProvider) Features() indexing.Features { return indexing.Features{} }

func (p *fakeIndexProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakeIndexProvider) ClearStorage() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
	return nil
}

type fakeAuthority struct {
	mu     sync.Mutex
	closed int
}

func (a *fakeAuthority) NextBlock(ctx context.Context, partition uint32) (idalloc.Block, error) {
	return idalloc.Block{Start: 0, End: 100}, nil
}

func (a *fakeAuthority) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed++
	return nil
}

type fakeJob struct {
	id uuid.UUID
}

func (j *fakeJob) ID() uuid.UUID                   { return j.id }
func (j *fakeJob) Status() scan.Status             { return scan.StatusRunning }
func (j *fakeJob) Await(ctx context.Context) error { return nil }

type fakeScanEngine struct {
	mu       sync.Mutex
	executed []scan.JobSpec
	closed   int
}

func (e *fakeScanEngine) Execute(spec scan.JobSpec) (scan.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, spec)
	return &fakeJob{id: spec.JobID}, nil
}

func (e *fakeScanEngine) RunningJob(id uuid.UUID) (scan.Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, spec := range e.executed {
		if spec.JobID == id {
			return &fakeJob{id: id}, true
		}
	}
	return nil, false
}

func (e *fakeScanEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	return nil
}

// testHarness bundles a backend wired entirely from fakes, plus handles onto
// those fakes for assertions.
type testHarness struct {
	backend   *Backend
	manager   *fakeManager
	scanner   *fakeScanEngine
	authority *fakeAuthority
	indexes   map[string]*fakeIndexProvider
	cfg       config.Config
}

// newHarness registers a fake storage backend under a name unique to the
// test, builds a default config on top of it and constructs the backend.
// Mutate hooks may adjust config and fakes before construction.
func newHarness(t *testing.T, features storage.Features,
	mutate func(cfg *config.Config, h *testHarness),
) (*testHarness, error) {
	t.Helper()

	logger, _ := test.NewNullLogger()
	backendName := strings.ToLower(t.Name())

	h := &testHarness{
		manager:   newFakeManager(features),
		scanner:   &fakeScanEngine{},
		authority: &fakeAuthority{},
		indexes:   map[string]*fakeIndexProvider{},
	}

	RegisterStoreBackend(backendName, func(cfg config.Config, logger logrus.FieldLogger) (storage.BaseManager, error) {
		return h.manager, nil
	}, "")

	cfg := config.DefaultConfig()
	cfg.StorageBackend = backendName
	cfg.LockBackend = LockBackendTest
	cfg.CacheSize = 1 << 20

	if mutate != nil {
		mutate(&cfg, h)
	}

	for namespace := range h.indexes {
		indexBackendName := backendName + "-idx-" + namespace
		provider := h.indexes[namespace]
		RegisterIndexBackend(indexBackendName, func(cfg config.Config, namespace string,
			logger logrus.FieldLogger,
		) (indexing.Provider, error) {
			return provider, nil
		})
		if cfg.Indexes == nil {
			cfg.Indexes = map[string]config.IndexConfig{}
		}
		cfg.Indexes[namespace] = config.IndexConfig{Backend: indexBackendName}
	}

	deps := Dependencies{
		IDAuthority: func(store storage.Store, manager storage.Manager,
			cfg config.Config,
		) (idalloc.Authority, error) {
			return h.authority, nil
		},
		ScanEngine: func(manager storage.Manager, logger logrus.FieldLogger) (scan.Engine, error) {
			return h.scanner, nil
		},
	}
	if cfg.Metrics {
		// a registry per backend, collectors must not pile up on the default
		// registerer across tests
		deps.Metrics = monitoring.NewPrometheusMetrics(prometheus.NewRegistry(), cfg.MetricsMergeStores)
	}

	b, err := New(cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	h.backend = b
	h.cfg = cfg
	t.Cleanup(func() { _ = b.Close() })
	return h, nil
}
