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

package logs

import "context"

// Log is one append-only log domain.
type Log interface {
	Name() string

	// Add appends a message. Delivery to readers is asynchronous.
	Add(ctx context.Context, payload []byte) error

	Close() error
}

// Manager opens and owns the logs of one log backend. OpenLog is memoizing:
// opening the same name twice returns the same Log.
type Manager interface {
	OpenLog(name string) (Log, error)
	Close() error
}
