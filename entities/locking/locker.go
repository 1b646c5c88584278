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

package locking

import "github.com/weaviate/graphkv/entities/storage"

// Locker implements mutual exclusion for one lock domain. The consistent-key
// implementation lives outside this module, the orchestration layer only
// memoizes and routes instances.
type Locker interface {
	// WriteLock stakes a claim on key/column on behalf of txh. Claims are
	// verified in CheckLocks before the owning transaction commits.
	WriteLock(key, column []byte, txh storage.Transaction) error

	// CheckLocks verifies every claim staked by txh still holds.
	CheckLocks(txh storage.Transaction) error

	// DeleteLocks releases all claims staked by txh.
	DeleteLocks(txh storage.Transaction) error
}

// Provider hands out memoized lockers by lock-domain name. There is exactly
// one Locker per name for a provider's lifetime.
type Provider interface {
	GetLocker(name string) (Locker, error)
}
