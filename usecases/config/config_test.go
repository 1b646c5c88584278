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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.StorageBackend = "inmemory"
		return cfg
	}

	t.Run("defaults with a backend set are valid", func(t *testing.T) {
		cfg := valid()
		require.Nil(t, cfg.Validate())
	})

	t.Run("missing storage backend", func(t *testing.T) {
		cfg := valid()
		cfg.StorageBackend = ""
		err := cfg.Validate()
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "storage backend")
	})

	t.Run("non-positive buffer size", func(t *testing.T) {
		cfg := valid()
		cfg.BufferSize = 0
		err := cfg.Validate()
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "buffer size")
	})

	t.Run("negative cache expiration", func(t *testing.T) {
		cfg := valid()
		cfg.CacheTime = -time.Second
		err := cfg.Validate()
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "expiration")
	})

	t.Run("absolute cache size below minimum", func(t *testing.T) {
		cfg := valid()
		cfg.CacheSize = 512
		err := cfg.Validate()
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "too small")
	})

	t.Run("cache size ignored when cache disabled", func(t *testing.T) {
		cfg := valid()
		cfg.CacheEnabled = false
		cfg.CacheSize = 0
		require.Nil(t, cfg.Validate())
	})

	t.Run("index namespace without backend", func(t *testing.T) {
		cfg := valid()
		cfg.Indexes = map[string]IndexConfig{"search": {}}
		err := cfg.Validate()
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), `index "search"`)
	})

	t.Run("clock falls back to time.Now", func(t *testing.T) {
		cfg := Config{}
		require.NotNil(t, cfg.Clock())
		assert.WithinDuration(t, time.Now(), cfg.Clock()(), time.Minute)
	})
}
