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

// Package backend orchestrates and configures all storage systems of the
// graph engine: the primary key-column-value store, all secondary index
// providers, locking, caching, ID allocation, logs and scan jobs. It is the
// single entry point the graph layer above opens transactions through.
package backend

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphkv/adapters/storage/expectedvalue"
	"github.com/weaviate/graphkv/adapters/storage/instrumented"
	"github.com/weaviate/graphkv/adapters/storage/kcvslog"
	"github.com/weaviate/graphkv/adapters/storage/orderedkv"
	"github.com/weaviate/graphkv/entities/idalloc"
	"github.com/weaviate/graphkv/entities/indexing"
	"github.com/weaviate/graphkv/entities/locking"
	"github.com/weaviate/graphkv/entities/logs"
	"github.com/weaviate/graphkv/entities/storage"
	"github.com/weaviate/graphkv/usecases/config"
	"github.com/weaviate/graphkv/usecases/monitoring"
	"github.com/weaviate/graphkv/usecases/scan"
	"github.com/weaviate/graphkv/usecases/storagecache"
)

// Store names visible at the storage boundary. These are fixed and must
// NEVER be renamed: adapters and existing deployments rely on them.
const (
	EdgeStoreName             = "edgestore"
	IndexStoreName            = "graphindex"
	SystemPropertiesStoreName = "system_properties"

	SystemTxLogName   = "txlog"
	SystemMgmtLogName = "systemlog"
	UserLogPrefix     = "ulog_"
)

const (
	// MergedCacheName and CacheMetricsSuffix derive cache metric names from
	// store names, depending on whether metrics are merged.
	MergedCacheName    = "caches"
	CacheMetricsSuffix = ".cache"

	// EdgeStoreCachePercent and IndexStoreCachePercent split the total cache
	// budget. They must sum to exactly 1.0.
	EdgeStoreCachePercent  = 0.8
	IndexStoreCachePercent = 0.2

	// fixedKeyWidth is the row-key width imposed on the fixed-length stores
	// when an ordered key-value backend is adapted.
	fixedKeyWidth = 8
)

// Dependencies are the external collaborators the backend consumes as opaque
// services.
type Dependencies struct {
	// IDAuthority constructs the ID authority over its opened, dedicated
	// store. Required.
	IDAuthority func(store storage.Store, manager storage.Manager, cfg config.Config) (idalloc.Authority, error)

	// ScanEngine constructs the engine that executes full-store scan jobs
	// over the primary store manager. Required.
	ScanEngine func(manager storage.Manager, logger logrus.FieldLogger) (scan.Engine, error)

	// Metrics is optional; when nil and metrics are enabled, collectors are
	// registered on the default prometheus registerer.
	Metrics *monitoring.PrometheusMetrics
}

// Backend is a long-lived, shared, thread-safe facade. Construction is
// cheap and I/O free; Initialize opens the dedicated stores and must run
// exactly once before the first transaction.
type Backend struct {
	cfg    config.Config
	deps   Dependencies
	logger logrus.FieldLogger

	storeManager        storage.Manager // possibly instrumented
	storeManagerLocking storage.Manager // possibly wrapped for simulated locking
	storeFeatures       storage.Features
	metrics             *monitoring.PrometheusMetrics

	indexes map[string]indexing.Provider

	mgmtLogManager logs.Manager
	txLogManager   logs.Manager
	userLogManager logs.Manager

	cacheEnabled bool
	bufferSize   int
	maxWriteTime time.Duration
	maxReadTime  time.Duration

	pool    *WorkerPool
	scanner scan.Engine

	lockerImpl LockerImplementation
	lockers    sync.Map // lock domain name -> locking.Locker

	// set by Initialize
	initialized  atomic.Bool
	edgeStore    storagecache.Cache
	indexStore   storagecache.Cache
	txLogStore   storagecache.Cache
	idAuthority  idalloc.Authority
	systemConfig *KVConfig
	userConfig   *KVConfig
	configStore  storage.Store

	state atomic.Int32 // lifecycle: live -> closed | cleared
}

// New wires the backend from configuration. All registry lookups and
// capability checks happen here; failures are configuration errors and
// cannot be retried.
func New(cfg config.Config, deps Dependencies, logger logrus.FieldLogger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.IDAuthority == nil {
		return nil, errors.New("backend: ID authority factory must be provided")
	}
	if deps.ScanEngine == nil {
		return nil, errors.New("backend: scan engine factory must be provided")
	}
	if EdgeStoreCachePercent+IndexStoreCachePercent != 1.0 {
		return nil, errors.New("backend: cache percentages do not add up to 1.0")
	}

	b := &Backend{
		cfg:          cfg,
		deps:         deps,
		logger:       logger,
		maxWriteTime: cfg.MaxWriteTime,
		maxReadTime:  cfg.MaxReadTime,
	}

	manager, err := b.resolveStoreManager()
	if err != nil {
		return nil, err
	}

	if cfg.Metrics {
		b.metrics = deps.Metrics
		if b.metrics == nil {
			b.metrics = monitoring.NewPrometheusMetrics(prometheus.DefaultRegisterer, cfg.MetricsMergeStores)
		}
		b.storeManager = instrumented.NewManager(manager, b.metrics)
	} else {
		b.storeManager = manager
	}
	b.storeFeatures = b.storeManager.Features()

	if b.indexes, err = b.resolveIndexes(); err != nil {
		return nil, err
	}

	if b.mgmtLogManager, err = b.resolveLogManager(cfg.MgmtLogBackend); err != nil {
		return nil, err
	}
	if b.txLogManager, err = b.resolveLogManager(cfg.TxLogBackend); err != nil {
		return nil, err
	}
	if b.userLogManager, err = b.resolveLogManager(cfg.UserLogBackend); err != nil {
		return nil, err
	}

	// bulk loading makes caching pointless, it overrides the cache flag
	b.cacheEnabled = cfg.CacheEnabled && !cfg.BatchLoading

	if !b.storeFeatures.BatchMutation {
		// buffering without batch mutation hides partial-failure semantics
		// and buys nothing, so never flush intermediately
		b.bufferSize = math.MaxInt
	} else {
		b.bufferSize = cfg.BufferSize
	}

	if !b.storeFeatures.Locking {
		if !b.storeFeatures.KeyConsistent {
			return nil, errors.Errorf("storage backend %q supports neither locking nor key-consistency, "+
				"it cannot provide any form of locking", cfg.StorageBackend)
		}
		b.storeManagerLocking = expectedvalue.NewManager(b.storeManager, b, cfg.MaxReadTime)
	} else {
		b.storeManagerLocking = b.storeManager
	}

	if cfg.ParallelBackendOps {
		b.pool = newWorkerPool(defaultPoolSize(), logger)
		logger.WithField("pool_size", b.pool.Size()).Info("initiated backend operations worker pool")
	}

	lockBackend := strings.ToLower(cfg.LockBackend)
	if !knownLockBackend(lockBackend) {
		return nil, errors.Errorf("unknown lock backend %q, known lock backends: %s",
			cfg.LockBackend, strings.Join(KnownLockBackends(), ", "))
	}
	if b.lockerImpl, err = lockerImplementation(lockBackend); err != nil {
		return nil, err
	}

	if b.scanner, err = deps.ScanEngine(b.storeManager, logger); err != nil {
		return nil, errors.Wrap(err, "construct scan engine")
	}

	return b, nil
}

// resolveStoreManager looks the configured backend up in the registry and
// adapts it to the key-column-value contract if necessary.
func (b *Backend) resolveStoreManager() (storage.Manager, error) {
	factory, err := lookupStoreBackend(b.cfg.StorageBackend)
	if err != nil {
		return nil, err
	}

	raw, err := factory(b.cfg, b.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "construct storage backend %q", b.cfg.StorageBackend)
	}

	switch manager := raw.(type) {
	case storage.Manager:
		return manager, nil
	case storage.OrderedManager:
		widths := map[string]int{
			EdgeStoreName:                                 fixedKeyWidth,
			EdgeStoreName + expectedvalue.LockStoreSuffix: fixedKeyWidth,
			b.cfg.IDStoreName:                             fixedKeyWidth,
		}
		return orderedkv.New(manager, widths), nil
	default:
		return nil, errors.Errorf("storage backend %q resolved to %T, which satisfies neither the "+
			"key-column-value nor the ordered key-value manager contract", b.cfg.StorageBackend, raw)
	}
}

func (b *Backend) resolveIndexes() (map[string]indexing.Provider, error) {
	indexes := make(map[string]indexing.Provider, len(b.cfg.Indexes))
	for namespace, idxCfg := range b.cfg.Indexes {
		factory, err := lookupIndexBackend(idxCfg.Backend)
		if err != nil {
			return nil, errors.Wrapf(err, "index namespace %q", namespace)
		}
		provider, err := factory(b.cfg, namespace, b.logger)
		if err != nil {
			return nil, errors.Wrapf(err, "construct index backend %q for namespace %q",
				idxCfg.Backend, namespace)
		}
		b.logger.WithField("index", namespace).Info("configured index namespace")
		indexes[namespace] = provider
	}
	return indexes, nil
}

func (b *Backend) resolveLogManager(name string) (logs.Manager, error) {
	if name == "" || strings.EqualFold(name, config.DefaultLogBackend) {
		return kcvslog.NewManager(b.storeManager, b.cfg.Clock(), b.logger), nil
	}
	factory, err := lookupLogBackend(name)
	if err != nil {
		return nil, err
	}
	return factory(b.storeManager, b.cfg, b.logger)
}

// GetLocker returns the memoized locker of the given lock domain,
// constructing it on first request. Concurrent first requests converge on a
// single winner; the losers' constructions are discarded.
func (b *Backend) GetLocker(name string) (locking.Locker, error) {
	if existing, ok := b.lockers.Load(name); ok {
		return existing.(locking.Locker), nil
	}

	built, err := b.lockerImpl(name, LockerDeps{
		Manager: b.storeManager,
		Config:  b.cfg,
		Logger:  b.logger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "construct locker %q", name)
	}

	winner, loaded := b.lockers.LoadOrStore(name, built)
	if loaded {
		b.logger.WithField("locker", name).Debug("discarded concurrently constructed locker")
	}
	return winner.(locking.Locker), nil
}

// Initialize opens the dedicated stores, wraps them in caches, eagerly opens
// the system logs and builds the configuration views. Must be called exactly
// once before the first BeginTransaction.
func (b *Backend) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idStore, err := b.storeManager.OpenDatabase(b.cfg.IDStoreName)
	if err != nil {
		return errors.Wrap(err, "could not initialize backend: open ID store")
	}

	if !b.storeFeatures.KeyConsistent {
		return errors.Errorf("storage backend %q does not support consistent key operations, "+
			"the ID authority cannot guarantee unique allocations", b.cfg.StorageBackend)
	}
	if b.idAuthority, err = b.deps.IDAuthority(idStore, b.storeManager, b.cfg); err != nil {
		return errors.Wrap(err, "could not initialize backend: construct ID authority")
	}

	edgeStoreRaw, err := b.storeManagerLocking.OpenDatabase(EdgeStoreName)
	if err != nil {
		return errors.Wrap(err, "could not initialize backend: open edge store")
	}
	indexStoreRaw, err := b.storeManagerLocking.OpenDatabase(IndexStoreName)
	if err != nil {
		return errors.Wrap(err, "could not initialize backend: open index store")
	}

	if b.cacheEnabled {
		totalBudget, err := b.cacheBudgetBytes()
		if err != nil {
			return err
		}
		b.logger.WithField("cache_size_bytes", totalBudget).Info("configuring total store cache size")

		edgeBudget := int64(math.Round(float64(totalBudget) * EdgeStoreCachePercent))
		indexBudget := int64(math.Round(float64(totalBudget) * IndexStoreCachePercent))

		b.edgeStore = storagecache.NewExpirationCache(edgeStoreRaw,
			b.metricsCacheName(EdgeStoreName), b.cfg.CacheTime, b.cfg.CacheCleanWait,
			edgeBudget, b.cfg.Clock(), b.metrics, b.logger)
		b.indexStore = storagecache.NewExpirationCache(indexStoreRaw,
			b.metricsCacheName(IndexStoreName), b.cfg.CacheTime, b.cfg.CacheCleanWait,
			indexBudget, b.cfg.Clock(), b.metrics, b.logger)
	} else {
		b.edgeStore = storagecache.NewNoCache(edgeStoreRaw)
		b.indexStore = storagecache.NewNoCache(indexStoreRaw)
	}

	// open the system logs now so capability problems surface at startup,
	// not on first use
	if _, err := b.txLogManager.OpenLog(SystemTxLogName); err != nil {
		return errors.Wrap(err, "could not initialize backend: open transaction log")
	}
	if _, err := b.mgmtLogManager.OpenLog(SystemMgmtLogName); err != nil {
		return errors.Wrap(err, "could not initialize backend: open management log")
	}
	txLogStoreRaw, err := b.storeManager.OpenDatabase(SystemTxLogName)
	if err != nil {
		return errors.Wrap(err, "could not initialize backend: open transaction log store")
	}
	b.txLogStore = storagecache.NewNoCache(txLogStoreRaw)

	if b.configStore, err = b.storeManagerLocking.OpenDatabase(SystemPropertiesStoreName); err != nil {
		return errors.Wrap(err, "could not initialize backend: open system properties store")
	}
	b.systemConfig = newKVConfig(b.configStore, b.storeManagerLocking, systemConfigIdentifier,
		storage.TxConfig{KeyConsistent: true}, b.maxReadTime, b.cfg.Clock())
	b.userConfig = newKVConfig(b.configStore, b.storeManagerLocking, userConfigIdentifier,
		storage.TxConfig{}, b.maxReadTime, b.cfg.Clock())

	b.initialized.Store(true)
	return nil
}

// cacheBudgetBytes resolves the configured cache size to bytes: absolute
// when >= 1, otherwise a fraction of the currently available memory
// headroom.
func (b *Backend) cacheBudgetBytes() (int64, error) {
	size := b.cfg.CacheSize
	if size <= 0 {
		return 0, errors.Errorf("invalid cache size specified: %g", size)
	}
	if size >= 1 {
		return int64(size), nil
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	total := memory.TotalMemory()
	headroom := int64(total) - int64(stats.HeapAlloc)
	if headroom <= 0 {
		return 0, errors.Errorf("no memory headroom left for a fractional cache size (total %d)", total)
	}
	return int64(float64(headroom) * size), nil
}

func (b *Backend) metricsCacheName(storeName string) string {
	if !b.cfg.Metrics {
		return ""
	}
	if b.cfg.MetricsMergeStores {
		return MergedCacheName
	}
	return storeName + CacheMetricsSuffix
}

// IDAuthority returns the configured ID authority. Calling it before
// Initialize is a programming error, not a runtime condition, and panics.
func (b *Backend) IDAuthority() idalloc.Authority {
	if !b.initialized.Load() {
		panic("backend: IDAuthority accessed before Initialize completed")
	}
	return b.idAuthority
}

// StoreFeatures returns the capabilities of the configured storage engine.
func (b *Backend) StoreFeatures() storage.Features {
	return b.storeFeatures
}

// IndexFeatures returns the capabilities of every configured index backend,
// keyed by namespace.
func (b *Backend) IndexFeatures() map[string]indexing.Features {
	features := make(map[string]indexing.Features, len(b.indexes))
	for namespace, provider := range b.indexes {
		features[namespace] = provider.Features()
	}
	return features
}

// StoreManagerName identifies the resolved store manager implementation, for
// diagnostics only.
func (b *Backend) StoreManagerName() string {
	return fmt.Sprintf("%T", b.storeManager)
}

func (b *Backend) GlobalSystemConfig() *KVConfig {
	return b.systemConfig
}

func (b *Backend) UserConfiguration() *KVConfig {
	return b.userConfig
}

// SystemTxLog returns the eagerly opened transaction-recovery log.
func (b *Backend) SystemTxLog() (logs.Log, error) {
	log, err := b.txLogManager.OpenLog(SystemTxLogName)
	return log, errors.Wrap(err, "could not re-open transaction log")
}

// SystemMgmtLog returns the eagerly opened management-event log.
func (b *Backend) SystemMgmtLog() (logs.Log, error) {
	log, err := b.mgmtLogManager.OpenLog(SystemMgmtLogName)
	return log, errors.Wrap(err, "could not re-open management log")
}

// UserLog opens (or returns) the user log of the given identifier.
func (b *Backend) UserLog(identifier string) (logs.Log, error) {
	name, err := UserLogName(identifier)
	if err != nil {
		return nil, err
	}
	return b.userLogManager.OpenLog(name)
}

// UserLogName derives the store-level log name from a user identifier.
func UserLogName(identifier string) (string, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", errors.New("user log identifier must not be blank")
	}
	return UserLogPrefix + identifier, nil
}

// BuildEdgeScanJob prepares a scan job over the edge store.
func (b *Backend) BuildEdgeScanJob() *scan.Builder {
	return b.buildStoreScanJob(EdgeStoreName)
}

// BuildGraphIndexScanJob prepares a scan job over the graph-index store.
func (b *Backend) BuildGraphIndexScanJob() *scan.Builder {
	return b.buildStoreScanJob(IndexStoreName)
}

func (b *Backend) buildStoreScanJob(storeName string) *scan.Builder {
	clock := b.cfg.Clock()
	return scan.NewBuilder(b.scanner).
		SetStoreName(storeName).
		SetTimeSource(clock).
		SetJobConfig(scan.JobStartTimeKey, clock().UnixMilli()).
		SetGraphConfig(&b.cfg).
		SetNumProcessingThreads(1).
		SetWorkBlockSize(b.cfg.PageSize)
}

// ScanJobStatus looks a running scan job up by its identifier.
func (b *Backend) ScanJobStatus(id uuid.UUID) (scan.Job, bool) {
	return b.scanner.RunningJob(id)
}

// BeginTransaction opens one transaction against every orchestrated system
// and returns them as a single composite handle. Safe for concurrent use;
// unrelated transactions never serialize against each other.
func (b *Backend) BeginTransaction(txCfg storage.TxConfig,
	retriever indexing.KeyRetriever,
) (*BackendTransaction, error) {
	txh, err := b.storeManagerLocking.BeginTransaction(txCfg)
	if err != nil {
		return nil, errors.Wrap(err, "open storage transaction")
	}

	cacheTx := storagecache.NewCacheTx(txh, b.storeManagerLocking, b.bufferSize, b.maxWriteTime)

	indexTx := make(map[string]*indexing.Transaction, len(b.indexes))
	for namespace, provider := range b.indexes {
		var keys indexing.KeyInformation
		if retriever != nil {
			keys = retriever(namespace)
		}
		tx, err := indexing.Begin(namespace, provider, keys, txCfg, b.maxWriteTime)
		if err != nil {
			b.abortPartialTransaction(cacheTx, indexTx)
			return nil, err
		}
		indexTx[namespace] = tx
	}

	b.metrics.TransactionOpened()

	return &BackendTransaction{
		cacheTx:       cacheTx,
		txConfig:      txCfg,
		storeFeatures: b.storeFeatures,
		edgeStore:     b.edgeStore,
		indexStore:    b.indexStore,
		txLogStore:    b.txLogStore,
		maxReadTime:   b.maxReadTime,
		indexTx:       indexTx,
		pool:          b.pool,
	}, nil
}

// abortPartialTransaction rolls back whatever was opened before a
// BeginTransaction failure so no half-opened composite leaks.
func (b *Backend) abortPartialTransaction(cacheTx *storagecache.CacheTx,
	indexTx map[string]*indexing.Transaction,
) {
	if err := cacheTx.Rollback(); err != nil {
		b.logger.WithError(err).Warn("rollback of storage transaction after failed open")
	}
	for _, tx := range indexTx {
		if err := tx.Rollback(); err != nil {
			b.logger.WithError(err).Warn("rollback of index transaction after failed open")
		}
	}
}
