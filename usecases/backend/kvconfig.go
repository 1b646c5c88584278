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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/weaviate/graphkv/entities/storage"
)

// Row keys of the two configuration views inside the system-properties
// store. Fixed for the same reason the store names are.
const (
	systemConfigIdentifier = "configuration"
	userConfigIdentifier   = "userconfig"
)

// KVConfig is a small key-value configuration view stored in a row of the
// system-properties store. Reads and writes run in their own short
// transactions and retry transient backend failures with exponential backoff
// bounded by the max read/write wait.
type KVConfig struct {
	store      storage.Store
	manager    storage.Manager
	identifier string
	txConfig   storage.TxConfig
	maxWait    time.Duration
	clock      func() time.Time
}

func newKVConfig(store storage.Store, manager storage.Manager, identifier string,
	txConfig storage.TxConfig, maxWait time.Duration, clock func() time.Time,
) *KVConfig {
	return &KVConfig{
		store:      store,
		manager:    manager,
		identifier: identifier,
		txConfig:   txConfig,
		maxWait:    maxWait,
		clock:      clock,
	}
}

func (c *KVConfig) retryPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = c.maxWait
	return policy
}

// Get reads one configuration value. A missing key yields a nil value and no
// error.
func (c *KVConfig) Get(key string) ([]byte, error) {
	var value []byte

	operation := func() error {
		cfg := c.txConfig
		cfg.StartTime = c.clock()
		txh, err := c.manager.BeginTransaction(cfg)
		if err != nil {
			return err
		}

		entries, err := c.store.Slice(storage.SliceQuery{
			Key:        []byte(c.identifier),
			SliceStart: []byte(key),
			SliceEnd:   append([]byte(key), 0x00),
			Limit:      1,
		}, txh)
		if err != nil {
			_ = txh.Rollback()
			return err
		}

		value = nil
		if len(entries) > 0 {
			value = entries[0].Value
		}
		return txh.Commit()
	}

	if err := backoff.Retry(operation, c.retryPolicy()); err != nil {
		return nil, errors.Wrapf(err, "read config key %q", key)
	}
	return value, nil
}

// Set writes one configuration value.
func (c *KVConfig) Set(key string, value []byte) error {
	operation := func() error {
		cfg := c.txConfig
		cfg.StartTime = c.clock()
		txh, err := c.manager.BeginTransaction(cfg)
		if err != nil {
			return err
		}

		err = c.store.Mutate([]byte(c.identifier),
			[]storage.Entry{{Column: []byte(key), Value: value}}, nil, txh)
		if err != nil {
			_ = txh.Rollback()
			return err
		}
		return txh.Commit()
	}

	return errors.Wrapf(backoff.Retry(operation, c.retryPolicy()), "write config key %q", key)
}

// Close is a no-op on the store level: the system-properties store is owned
// and closed by the backend, not by its views.
func (c *KVConfig) Close() error {
	return nil
}
