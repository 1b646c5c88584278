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

// Package expectedvalue simulates locking on key-consistent backends that
// lack a native mechanism. Lock intents declared through AcquireLock are
// routed to a per-store locker which records them in a companion lock store;
// the lockers verify all claims before the transaction commits. The claim
// protocol itself lives in the locker implementations, this decorator only
// binds stores to lockers and sequences check/commit/release.
package expectedvalue

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/weaviate/graphkv/entities/locking"
	"github.com/weaviate/graphkv/entities/storage"
)

// LockStoreSuffix is appended to a store's name to derive the name of its
// lock domain and companion lock store. Never rename it, existing
// deployments have lock stores under the derived names.
const LockStoreSuffix = "_lock_"

type Manager struct {
	base        storage.Manager
	lockers     locking.Provider
	maxReadTime time.Duration
}

func NewManager(base storage.Manager, lockers locking.Provider, maxReadTime time.Duration) *Manager {
	return &Manager{base: base, lockers: lockers, maxReadTime: maxReadTime}
}

func (m *Manager) OpenDatabase(name string) (storage.Store, error) {
	base, err := m.base.OpenDatabase(name)
	if err != nil {
		return nil, err
	}
	return &checkingStore{base: base, manager: m}, nil
}

// BeginTransaction wraps the backend transaction in a handle that tracks
// which lockers staked claims, so they can be verified before and released
// after the commit.
func (m *Manager) BeginTransaction(cfg storage.TxConfig) (storage.Transaction, error) {
	inner, err := m.base.BeginTransaction(cfg)
	if err != nil {
		return nil, err
	}
	return &checkingTx{inner: inner}, nil
}

func (m *Manager) MutateMany(mutations map[string]storage.KeyMutations, txh storage.Transaction) error {
	return m.base.MutateMany(mutations, unwrap(txh))
}

func (m *Manager) Features() storage.Features {
	features := m.base.Features()
	// behind this decorator the composed system does support locking
	features.Locking = true
	return features
}

func (m *Manager) Close() error {
	return m.base.Close()
}

func (m *Manager) ClearStorage() error {
	return m.base.ClearStorage()
}

func (m *Manager) MaxReadTime() time.Duration {
	return m.maxReadTime
}

// unwrap recovers the backend transaction from a checkingTx so decorated and
// undecorated stores can share it.
func unwrap(txh storage.Transaction) storage.Transaction {
	if tx, ok := txh.(*checkingTx); ok {
		return tx.inner
	}
	return txh
}

type checkingStore struct {
	base    storage.Store
	manager *Manager

	lockerOnce sync.Once
	locker     locking.Locker
	lockerErr  error
}

func (s *checkingStore) Name() string {
	return s.base.Name()
}

func (s *checkingStore) Slice(query storage.SliceQuery, txh storage.Transaction) ([]storage.Entry, error) {
	return s.base.Slice(query, unwrap(txh))
}

func (s *checkingStore) Mutate(key []byte, additions []storage.Entry, deletions [][]byte,
	txh storage.Transaction,
) error {
	return s.base.Mutate(key, additions, deletions, unwrap(txh))
}

func (s *checkingStore) AcquireLock(key, column, expectedValue []byte, txh storage.Transaction) error {
	tx, ok := txh.(*checkingTx)
	if !ok {
		return errors.Errorf("store %q: transaction was not opened through the locking manager", s.base.Name())
	}

	s.lockerOnce.Do(func() {
		s.locker, s.lockerErr = s.manager.lockers.GetLocker(s.base.Name() + LockStoreSuffix)
	})
	if s.lockerErr != nil {
		return errors.Wrapf(s.lockerErr, "locker for store %q", s.base.Name())
	}

	if err := s.locker.WriteLock(key, column, tx.inner); err != nil {
		return errors.Wrapf(err, "write lock on store %q", s.base.Name())
	}
	tx.record(s.locker)
	return nil
}

func (s *checkingStore) Close() error {
	return s.base.Close()
}

// checkingTx delays lock verification until commit: CheckLocks on every
// involved locker, then the backend commit, then best-effort lock release.
type checkingTx struct {
	sync.Mutex
	inner   storage.Transaction
	lockers []locking.Locker
}

func (t *checkingTx) record(locker locking.Locker) {
	t.Lock()
	defer t.Unlock()

	for _, existing := range t.lockers {
		if existing == locker {
			return
		}
	}
	t.lockers = append(t.lockers, locker)
}

func (t *checkingTx) Commit() error {
	t.Lock()
	lockers := t.lockers
	t.Unlock()

	for _, locker := range lockers {
		if err := locker.CheckLocks(t.inner); err != nil {
			return errors.Wrap(err, "lock check before commit")
		}
	}

	if err := t.inner.Commit(); err != nil {
		return err
	}

	for _, locker := range lockers {
		if err := locker.DeleteLocks(t.inner); err != nil {
			return errors.Wrap(err, "release locks after commit")
		}
	}
	return nil
}

func (t *checkingTx) Rollback() error {
	t.Lock()
	lockers := t.lockers
	t.Unlock()

	for _, locker := range lockers {
		if err := locker.DeleteLocks(t.inner); err != nil {
			return errors.Wrap(err, "release locks on rollback")
		}
	}
	return t.inner.Rollback()
}
