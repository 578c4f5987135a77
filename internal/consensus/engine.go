// Package consensus defines the block sealing and verification engine.
package consensus

import (
	"context"

	"github.com/Klingon-tech/noobchain/pkg/block"
)

// Engine is the interface for consensus implementations.
type Engine interface {
	// Verify checks that the block's stored hash is genuine and sealed.
	Verify(blk *block.Block) error
	// Seal searches for a nonce that makes the block valid, updating the
	// block's Nonce and Hash. It returns ctx.Err() when cancelled.
	Seal(ctx context.Context, blk *block.Block) error
}
