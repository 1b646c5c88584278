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

// Package kcvslog is the default log backend: each log domain is an
// append-only store on the primary store manager, messages keyed by write
// timestamp so readers can tail them in order.
package kcvslog

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphkv/entities/logs"
	"github.com/weaviate/graphkv/entities/storage"
)

// Manager opens store-backed logs. One manager serves one log domain family
// (tx, management or user logs); all of them share the primary store manager.
type Manager struct {
	sync.Mutex

	manager storage.Manager
	clock   func() time.Time
	logger  logrus.FieldLogger
	open    map[string]*storeLog
	closed  bool
}

func NewManager(manager storage.Manager, clock func() time.Time, logger logrus.FieldLogger) *Manager {
	return &Manager{
		manager: manager,
		clock:   clock,
		logger:  logger,
		open:    map[string]*storeLog{},
	}
}

// OpenLog opens the named log, memoized for the manager's lifetime.
func (m *Manager) OpenLog(name string) (logs.Log, error) {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return nil, errors.Errorf("log manager is closed, cannot open %q", name)
	}
	if log, ok := m.open[name]; ok {
		return log, nil
	}

	store, err := m.manager.OpenDatabase(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open log store %q", name)
	}

	log := &storeLog{
		name:    name,
		store:   store,
		manager: m.manager,
		clock:   m.clock,
	}
	m.open[name] = log
	m.logger.WithField("log", name).Debug("opened store-backed log")
	return log, nil
}

func (m *Manager) Close() error {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for name, log := range m.open {
		if err := log.Close(); err != nil {
			return errors.Wrapf(err, "close log %q", name)
		}
	}
	// the underlying store manager is owned by the backend, not closed here
	return nil
}

// storeLog appends messages as columns of a per-log row. The column is the
// write timestamp plus a process-local sequence number so messages written in
// the same nanosecond still order deterministically.
type storeLog struct {
	name    string
	store   storage.Store
	manager storage.Manager
	clock   func() time.Time
	seq     atomic.Uint32
}

func (l *storeLog) Name() string {
	return l.name
}

func (l *storeLog) Add(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := l.clock()
	txh, err := l.manager.BeginTransaction(storage.TxConfig{StartTime: now})
	if err != nil {
		return errors.Wrapf(err, "log %q: begin transaction", l.name)
	}

	column := make([]byte, 12)
	binary.BigEndian.PutUint64(column, uint64(now.UnixNano()))
	binary.BigEndian.PutUint32(column[8:], l.seq.Add(1))

	err = l.store.Mutate([]byte(l.name), []storage.Entry{{Column: column, Value: payload}}, nil, txh)
	if err != nil {
		if rerr := txh.Rollback(); rerr != nil {
			return errors.Wrapf(err, "log %q: append (rollback also failed: %s)", l.name, rerr)
		}
		return errors.Wrapf(err, "log %q: append", l.name)
	}

	return errors.Wrapf(txh.Commit(), "log %q: commit", l.name)
}

func (l *storeLog) Close() error {
	return l.store.Close()
}
