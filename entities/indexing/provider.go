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

package indexing

import (
	"time"

	"github.com/pkg/errors"

	"github.com/weaviate/graphkv/entities/storage"
)

// Provider is an external secondary-index backend (full-text, geo, ...). One
// provider is configured per index namespace and lives for the whole backend
// lifetime.
type Provider interface {
	// BeginTransaction opens one index transaction. Providers must release
	// any partially acquired resources themselves if they return an error.
	BeginTransaction(cfg storage.TxConfig) (BaseTransaction, error)

	Features() Features
	Close() error
	ClearStorage() error
}

// BaseTransaction is the provider-level transaction handle.
type BaseTransaction interface {
	Commit() error
	Rollback() error
}

// Features describes an index provider's capabilities as reported to the
// layer above. Kept coarse on purpose, query planning happens elsewhere.
type Features struct {
	SupportsSort         bool
	SupportsGeo          bool
	SupportsNotQuery     bool
	SupportsCardinality  bool
	SupportedStringMatch []string
}

// KeyInformation describes how graph property keys map onto one index
// namespace. Its concrete shape is owned by the providers; this layer only
// routes it.
type KeyInformation interface{}

// KeyRetriever resolves the KeyInformation for a namespace at transaction
// open time.
type KeyRetriever func(namespace string) KeyInformation

// Transaction couples a provider transaction with the key information it was
// opened under and the write deadline all its operations share.
type Transaction struct {
	namespace    string
	provider     Provider
	base         BaseTransaction
	keys         KeyInformation
	maxWriteTime time.Duration
}

// Begin opens a provider transaction and wraps it for the namespace.
func Begin(namespace string, provider Provider, keys KeyInformation,
	cfg storage.TxConfig, maxWriteTime time.Duration,
) (*Transaction, error) {
	base, err := provider.BeginTransaction(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open index transaction %q", namespace)
	}

	return &Transaction{
		namespace:    namespace,
		provider:     provider,
		base:         base,
		keys:         keys,
		maxWriteTime: maxWriteTime,
	}, nil
}

func (t *Transaction) Namespace() string {
	return t.namespace
}

func (t *Transaction) KeyInformation() KeyInformation {
	return t.keys
}

func (t *Transaction) MaxWriteTime() time.Duration {
	return t.maxWriteTime
}

func (t *Transaction) Commit() error {
	return errors.Wrapf(t.base.Commit(), "commit index %q", t.namespace)
}

func (t *Transaction) Rollback() error {
	return errors.Wrapf(t.base.Rollback(), "rollback index %q", t.namespace)
}
