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

package idalloc

import "context"

// Authority allocates globally unique ID blocks. The consistent-key claiming
// protocol is implemented outside this module; it requires the backing store
// to be key-consistent, which the orchestration layer enforces before ever
// constructing an Authority.
type Authority interface {
	// NextBlock claims the next free block for the given partition. Blocks
	// are never handed out twice, even across processes.
	NextBlock(ctx context.Context, partition uint32) (Block, error)

	Close() error
}

// Block is a contiguous, exclusively owned ID range [Start, End).
type Block struct {
	Start uint64
	End   uint64
}

func (b Block) Len() uint64 {
	return b.End - b.Start
}
