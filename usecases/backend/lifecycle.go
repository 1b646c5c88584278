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
	"github.com/weaviate/graphkv/entities/errorcompounder"
)

// Lifecycle states. The backend starts live and transitions exactly once,
// either to closed or to cleared. The transitions are mutually exclusive.
const (
	stateLive int32 = iota
	stateClosed
	stateCleared
)

// Close shuts every orchestrated system down in dependency order. Teardown
// is best effort: a failing step never prevents the following steps, and the
// first error encountered is returned after everything was attempted.
// Calling Close on an already closed or cleared backend is a no-op.
func (b *Backend) Close() error {
	if !b.state.CompareAndSwap(stateLive, stateClosed) {
		b.logger.Debug("backend already shut down, ignoring repeated close")
		return nil
	}

	ec := errorcompounder.New()
	b.teardown(ec)
	ec.AddWrapf(b.storeManager.Close(), "shut down store manager")
	for _, provider := range b.indexes {
		ec.Add(provider.Close())
	}
	return ec.First()
}

// ClearStorage shuts everything down like Close and then deletes all stored
// data in the primary store and every index provider.
//
// The backend must have been initialized through Initialize before
// ClearStorage is called; clearing an uninitialized backend is a programming
// error. Calling ClearStorage on an already closed or cleared backend is a
// no-op.
func (b *Backend) ClearStorage() error {
	if !b.state.CompareAndSwap(stateLive, stateCleared) {
		b.logger.Debug("backend already shut down, ignoring repeated clear")
		return nil
	}

	ec := errorcompounder.New()
	b.teardown(ec)
	// data must be erased while the engines are still usable, so each system
	// is cleared before it is closed
	ec.AddWrapf(b.storeManager.ClearStorage(), "clear primary storage")
	ec.AddWrapf(b.storeManager.Close(), "shut down store manager")
	for namespace, provider := range b.indexes {
		ec.AddWrapf(provider.ClearStorage(), "clear index %q", namespace)
	}
	for _, provider := range b.indexes {
		ec.Add(provider.Close())
	}
	return ec.First()
}

// teardown runs the shared shutdown sequence of Close and ClearStorage, up
// to but excluding the store manager and the index providers, which the two
// callers sequence differently.
func (b *Backend) teardown(ec *errorcompounder.ErrorCompounder) {
	ec.Add(b.mgmtLogManager.Close())
	ec.Add(b.txLogManager.Close())
	ec.Add(b.userLogManager.Close())

	ec.AddWrapf(b.scanner.Close(), "shut down scan engine")

	if b.edgeStore != nil {
		ec.Add(b.edgeStore.Close())
	}
	if b.indexStore != nil {
		ec.Add(b.indexStore.Close())
	}
	if b.txLogStore != nil {
		ec.Add(b.txLogStore.Close())
	}

	if b.idAuthority != nil {
		ec.AddWrapf(b.idAuthority.Close(), "shut down ID authority")
	}

	if b.systemConfig != nil {
		ec.Add(b.systemConfig.Close())
	}
	if b.userConfig != nil {
		ec.Add(b.userConfig.Close())
	}
	if b.configStore != nil {
		ec.Add(b.configStore.Close())
	}

	if b.pool != nil {
		b.pool.Shutdown()
	}
}
