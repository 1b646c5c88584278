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

// Package scan describes background full-store scan jobs (index repair and
// other maintenance). The engine that iterates stores, checkpoints and
// retries is an external collaborator; this package builds its immutable job
// specs and routes status lookups.
package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/weaviate/graphkv/usecases/config"
)

// JobStartTimeKey is the job-scoped configuration key holding the job's
// start timestamp in unix milliseconds.
const JobStartTimeKey = "job-start-time"

// Status of a running or finished scan job.
type Status int

const (
	StatusUnknown Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

// Job is a handle onto one submitted scan job.
type Job interface {
	ID() uuid.UUID
	Status() Status

	// Await blocks until the job finished or ctx is done.
	Await(ctx context.Context) error
}

// Engine executes scan jobs. Implemented outside this module.
type Engine interface {
	Execute(spec JobSpec) (Job, error)
	RunningJob(id uuid.UUID) (Job, bool)
	Close() error
}

// JobSpec fully describes one scan job. Immutable once built.
type JobSpec struct {
	JobID                uuid.UUID
	StoreName            string
	TimeSource           func() time.Time
	JobConfig            map[string]any
	GraphConfig          *config.Config
	NumProcessingThreads int
	WorkBlockSize        int
}

// Builder assembles a JobSpec step by step and submits it to the engine.
type Builder struct {
	engine Engine
	spec   JobSpec
}

func NewBuilder(engine Engine) *Builder {
	return &Builder{
		engine: engine,
		spec: JobSpec{
			JobConfig:            map[string]any{},
			NumProcessingThreads: 1,
		},
	}
}

func (b *Builder) SetStoreName(name string) *Builder {
	b.spec.StoreName = name
	return b
}

func (b *Builder) SetTimeSource(source func() time.Time) *Builder {
	b.spec.TimeSource = source
	return b
}

func (b *Builder) SetJobConfig(key string, value any) *Builder {
	b.spec.JobConfig[key] = value
	return b
}

func (b *Builder) SetGraphConfig(cfg *config.Config) *Builder {
	b.spec.GraphConfig = cfg
	return b
}

func (b *Builder) SetNumProcessingThreads(n int) *Builder {
	b.spec.NumProcessingThreads = n
	return b
}

func (b *Builder) SetWorkBlockSize(size int) *Builder {
	b.spec.WorkBlockSize = size
	return b
}

// Spec returns a copy of the spec built so far.
func (b *Builder) Spec() JobSpec {
	spec := b.spec
	spec.JobConfig = make(map[string]any, len(b.spec.JobConfig))
	for key, value := range b.spec.JobConfig {
		spec.JobConfig[key] = value
	}
	return spec
}

// Execute assigns a fresh job ID and submits the spec.
func (b *Builder) Execute() (Job, error) {
	if b.spec.StoreName == "" {
		return nil, errors.New("scan job: store name must be set")
	}
	if b.spec.WorkBlockSize <= 0 {
		return nil, errors.Errorf("scan job: work block size must be positive, got %d", b.spec.WorkBlockSize)
	}

	spec := b.Spec()
	spec.JobID = uuid.New()
	return b.engine.Execute(spec)
}
