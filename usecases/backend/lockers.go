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
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphkv/entities/locking"
	"github.com/weaviate/graphkv/entities/storage"
	"github.com/weaviate/graphkv/usecases/config"
)

// The set of lock backends is closed: a configured name outside this
// enumeration is a configuration error, not an extension point.
const (
	LockBackendConsistentKey = "consistentkey"
	LockBackendTest          = "test"
)

// LockerImplementation constructs the locker of one lock domain. The
// consistent-key implementation is expected to open its companion lock store
// through deps.Manager under the domain name.
type LockerImplementation func(name string, deps LockerDeps) (locking.Locker, error)

// LockerDeps are the collaborators a locker implementation may use.
type LockerDeps struct {
	Manager storage.Manager
	Config  config.Config
	Logger  logrus.FieldLogger
}

var (
	lockerImplLock sync.RWMutex
	lockerImpls    = map[string]LockerImplementation{
		LockBackendTest: func(name string, deps LockerDeps) (locking.Locker, error) {
			return newInProcessLocker(name), nil
		},
	}
)

// RegisterLockerImplementation binds one of the known lock-backend names to
// its implementation. The consistent-key locker package registers itself on
// import. Unknown names are rejected, the enumeration is closed.
func RegisterLockerImplementation(name string, impl LockerImplementation) error {
	name = strings.ToLower(name)
	if !knownLockBackend(name) {
		return errors.Errorf("unknown lock backend %q, known lock backends: %s",
			name, strings.Join(KnownLockBackends(), ", "))
	}

	lockerImplLock.Lock()
	defer lockerImplLock.Unlock()
	lockerImpls[name] = impl
	return nil
}

// KnownLockBackends lists the closed set of valid lock-backend names.
func KnownLockBackends() []string {
	return []string{LockBackendConsistentKey, LockBackendTest}
}

func knownLockBackend(name string) bool {
	for _, known := range KnownLockBackends() {
		if known == name {
			return true
		}
	}
	return false
}

func lockerImplementation(name string) (LockerImplementation, error) {
	lockerImplLock.RLock()
	defer lockerImplLock.RUnlock()

	impl, ok := lockerImpls[name]
	if !ok {
		return nil, errors.Errorf("lock backend %q has no implementation linked into this binary", name)
	}
	return impl, nil
}

// inProcessLocker backs the "test" lock backend: mutual exclusion scoped to
// this process only. Useful for single-node tests, never for production.
type inProcessLocker struct {
	sync.Mutex
	name   string
	claims map[string]storage.Transaction
}

func newInProcessLocker(name string) *inProcessLocker {
	return &inProcessLocker{name: name, claims: map[string]storage.Transaction{}}
}

func (l *inProcessLocker) WriteLock(key, column []byte, txh storage.Transaction) error {
	claim := claimKey(key, column)

	l.Lock()
	defer l.Unlock()

	if owner, ok := l.claims[claim]; ok && owner != txh {
		return errors.Errorf("locker %q: key is locked by another transaction", l.name)
	}
	l.claims[claim] = txh
	return nil
}

func (l *inProcessLocker) CheckLocks(txh storage.Transaction) error {
	return nil
}

func (l *inProcessLocker) DeleteLocks(txh storage.Transaction) error {
	l.Lock()
	defer l.Unlock()

	for claim, owner := range l.claims {
		if owner == txh {
			delete(l.claims, claim)
		}
	}
	return nil
}

func claimKey(key, column []byte) string {
	claim := make([]byte, 0, len(key)+len(column)+1)
	claim = append(claim, key...)
	claim = append(claim, 0x00)
	claim = append(claim, column...)
	return string(claim)
}
