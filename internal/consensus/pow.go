package consensus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/noobchain/pkg/block"
	"github.com/Klingon-tech/noobchain/pkg/crypto"
)

// PoW errors.
var (
	ErrNilBlock         = errors.New("nil block")
	ErrHashMismatch     = errors.New("stored hash does not match block contents")
	ErrInsufficientWork = errors.New("hash does not meet difficulty target")
)

// DefaultChunk is the number of nonces each worker searches per round.
const DefaultChunk = 1 << 14

// PoW implements proof-of-work: a block is sealed when the first
// Difficulty hex digits of its hash are zero.
type PoW struct {
	Difficulty int

	// Threads controls the number of parallel mining goroutines.
	// 0 or 1 = single-threaded. Each round, worker i searches the i-th
	// contiguous chunk of the next Threads*Chunk nonces.
	Threads int

	// Chunk overrides DefaultChunk when > 0.
	Chunk uint64
}

// NewPoW creates a new PoW engine.
func NewPoW(difficulty, threads int) (*PoW, error) {
	if err := block.ValidateDifficulty(difficulty); err != nil {
		return nil, err
	}
	return &PoW{Difficulty: difficulty, Threads: threads}, nil
}

// Verify checks that the stored hash matches the block contents and meets
// the engine's difficulty.
func (p *PoW) Verify(blk *block.Block) error {
	if blk == nil {
		return ErrNilBlock
	}
	if got := blk.RecomputeHash(); got != blk.Hash {
		return fmt.Errorf("%w: stored %s, computed %s", ErrHashMismatch, blk.Hash, got)
	}
	if !block.MeetsDifficulty(blk.Hash, p.Difficulty) {
		return fmt.Errorf("%w: %s, want %d leading zeros", ErrInsufficientWork, blk.Hash, p.Difficulty)
	}
	return nil
}

// Seal mines the block starting at its current nonce. The nonce found is
// always the smallest solving nonce at or above the start, whatever the
// thread count. When ctx is cancelled, ctx.Err() is returned and the block
// is left unchanged.
func (p *PoW) Seal(ctx context.Context, blk *block.Block) error {
	if blk == nil {
		return ErrNilBlock
	}
	if p.Threads <= 1 {
		return blk.Mine(ctx, p.Difficulty)
	}
	if err := block.ValidateDifficulty(p.Difficulty); err != nil {
		return err
	}
	return p.sealParallel(ctx, blk)
}

// sealParallel runs rounds of Threads workers over consecutive nonce chunks.
// Worker ranges within a round are ordered, so the lowest-index worker that
// finds a solution holds the round's smallest nonce.
func (p *PoW) sealParallel(ctx context.Context, blk *block.Block) error {
	chunk := p.Chunk
	if chunk == 0 {
		chunk = DefaultChunk
	}
	threads := p.Threads
	prefix, off := blk.Preimage()

	for start := blk.Nonce; ; {
		found := make([]uint64, threads)
		ok := make([]bool, threads)
		last := start

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < threads; i++ {
			lo, hi, valid := workerRange(start, chunk, i)
			if !valid {
				break
			}
			last = hi
			i := i
			g.Go(func() error {
				buf := make([]byte, len(prefix))
				copy(buf, prefix)
				n, hit, err := block.SearchNonces(gctx, buf, off, lo, hi, p.Difficulty)
				found[i], ok[i] = n, hit
				return err
			})
		}
		if err := g.Wait(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		for i := 0; i < threads; i++ {
			if !ok[i] {
				continue
			}
			binary.LittleEndian.PutUint64(prefix[off:], found[i])
			blk.Nonce = found[i]
			blk.Hash = crypto.Hash(prefix)
			return nil
		}

		if last == math.MaxUint64 {
			return block.ErrNonceExhausted
		}
		start = last + 1
	}
}

// workerRange returns the inclusive nonce range of worker i in the round
// beginning at start. valid is false when the range lies past the end of
// the nonce space.
func workerRange(start, chunk uint64, i int) (lo, hi uint64, valid bool) {
	offset := uint64(i) * chunk
	if offset > math.MaxUint64-start {
		return 0, 0, false
	}
	lo = start + offset
	if chunk-1 > math.MaxUint64-lo {
		return lo, math.MaxUint64, true
	}
	return lo, lo + chunk - 1, true
}
