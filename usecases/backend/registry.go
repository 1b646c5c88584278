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
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphkv/entities/indexing"
	"github.com/weaviate/graphkv/entities/logs"
	"github.com/weaviate/graphkv/entities/storage"
	"github.com/weaviate/graphkv/usecases/config"
)

// StoreManagerFactory constructs a raw store manager from configuration. The
// returned manager must implement storage.Manager or storage.OrderedManager;
// ordered managers get adapted to the column-value contract automatically.
type StoreManagerFactory func(cfg config.Config, logger logrus.FieldLogger) (storage.BaseManager, error)

// IndexProviderFactory constructs the index provider of one namespace.
type IndexProviderFactory func(cfg config.Config, namespace string, logger logrus.FieldLogger) (indexing.Provider, error)

// LogManagerFactory constructs a log manager over the primary store manager.
type LogManagerFactory func(manager storage.Manager, cfg config.Config, logger logrus.FieldLogger) (logs.Manager, error)

type storeBackendEntry struct {
	factory StoreManagerFactory

	// primedOption names the configuration option a shorthand for this
	// backend primes, e.g. a directory for embedded engines or a host list
	// for remote ones.
	primedOption string
	shorthands   []string
}

var (
	registryLock  sync.RWMutex
	storeBackends = map[string]*storeBackendEntry{}
	indexBackends = map[string]IndexProviderFactory{}
	logBackends   = map[string]LogManagerFactory{}
)

// RegisterStoreBackend makes a storage engine available under the given name
// and optional shorthands. Typically called from the implementation
// package's init.
func RegisterStoreBackend(name string, factory StoreManagerFactory, primedOption string,
	shorthands ...string,
) {
	registryLock.Lock()
	defer registryLock.Unlock()
	storeBackends[strings.ToLower(name)] = &storeBackendEntry{
		factory:      factory,
		primedOption: primedOption,
		shorthands:   shorthands,
	}
}

// RegisterIndexBackend makes an index provider available under the given
// name.
func RegisterIndexBackend(name string, factory IndexProviderFactory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	indexBackends[strings.ToLower(name)] = factory
}

// RegisterLogBackend makes a log manager available under the given name. The
// store-backed "default" manager is built in.
func RegisterLogBackend(name string, factory LogManagerFactory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	logBackends[strings.ToLower(name)] = factory
}

func lookupStoreBackend(name string) (StoreManagerFactory, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	entry, ok := storeBackends[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown storage backend %q, known backends: %s",
			name, strings.Join(storeBackendNamesLocked(), ", "))
	}
	return entry.factory, nil
}

func lookupIndexBackend(name string) (IndexProviderFactory, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	factory, ok := indexBackends[strings.ToLower(name)]
	if !ok {
		known := make([]string, 0, len(indexBackends))
		for name := range indexBackends {
			known = append(known, name)
		}
		sort.Strings(known)
		return nil, errors.Errorf("unknown index backend %q, known backends: %s",
			name, strings.Join(known, ", "))
	}
	return factory, nil
}

func lookupLogBackend(name string) (LogManagerFactory, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	factory, ok := logBackends[strings.ToLower(name)]
	if !ok {
		known := []string{config.DefaultLogBackend}
		for name := range logBackends {
			known = append(known, name)
		}
		sort.Strings(known)
		return nil, errors.Errorf("unknown log backend %q, known backends: %s",
			name, strings.Join(known, ", "))
	}
	return factory, nil
}

func storeBackendNamesLocked() []string {
	names := make([]string, 0, len(storeBackends))
	for name := range storeBackends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OptionForShorthand resolves a backend shorthand to the configuration
// option it primes, e.g. "berkeleyje" to the storage directory option. The
// second return is false if the shorthand is unknown.
func OptionForShorthand(shorthand string) (string, bool) {
	if shorthand == "" {
		return "", false
	}
	shorthand = strings.ToLower(shorthand)

	registryLock.RLock()
	defer registryLock.RUnlock()

	for _, entry := range storeBackends {
		for _, known := range entry.shorthands {
			if known == shorthand {
				return entry.primedOption, true
			}
		}
	}
	return "", false
}
