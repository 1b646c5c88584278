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
	"runtime"
	"runtime/debug"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PoolSizeScaleFactor scales the worker pool relative to the available
// processing units.
const PoolSizeScaleFactor = 2

// WorkerPool bounds the parallelism of expensive per-store and per-index
// operations inside a composite transaction. The backend only constructs and
// hands it out, scheduling work on it is the caller's business.
type WorkerPool struct {
	group  *errgroup.Group
	size   int
	logger logrus.FieldLogger
}

func newWorkerPool(size int, logger logrus.FieldLogger) *WorkerPool {
	group := &errgroup.Group{}
	group.SetLimit(size)
	return &WorkerPool{group: group, size: size, logger: logger}
}

// defaultPoolSize is twice the number of usable CPUs.
func defaultPoolSize() int {
	return runtime.GOMAXPROCS(0) * PoolSizeScaleFactor
}

func (p *WorkerPool) Size() int {
	return p.size
}

// Go schedules f, blocking while all workers are busy. Panics are recovered
// and surfaced as errors from Wait rather than tearing the process down.
func (p *WorkerPool) Go(f func() error) {
	p.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Errorf("recovered from panic in backend worker: %v", r)
				debug.PrintStack()
				err = errors.Errorf("panic in backend worker: %v", r)
			}
		}()
		return f()
	})
}

// Wait blocks until all scheduled work finished and returns the first error.
func (p *WorkerPool) Wait() error {
	return p.group.Wait()
}

// Shutdown drains in-flight work. Errors of abandoned work units are logged,
// not returned; at shutdown there is nobody left to act on them.
func (p *WorkerPool) Shutdown() {
	if err := p.group.Wait(); err != nil {
		p.logger.WithError(err).Warn("backend worker pool drained with error")
	}
}
