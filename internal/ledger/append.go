package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Klingon-tech/noobchain/internal/utxo"
	"github.com/Klingon-tech/noobchain/pkg/block"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Append puts t into a new block on top of the chain and mines it.
//
// On an empty chain t becomes the genesis transaction: its id is forced to
// the sentinel and its single output is registered without processing.
// Otherwise t is processed against the UTXO set.
//
// Processing, mining and commit form one unit. If any step fails or ctx is
// cancelled, neither the chain, the UTXO set nor t is modified. On success
// t carries its assigned id and outputs and is stored in the returned block.
func (l *Ledger) Append(ctx context.Context, t *tx.Transaction) (*block.Block, error) {
	if t == nil {
		return nil, tx.ErrNilTransaction
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		return nil, ErrClosed
	}

	work := t.Clone()
	stage := utxo.NewView(l.utxos)
	env := l.env(stage)

	var blk *block.Block
	if len(l.blocks) == 0 {
		if len(work.Outputs) != 1 {
			return nil, fmt.Errorf("%w: %d outputs, want 1", ErrBadGenesis, len(work.Outputs))
		}
		if err := work.MarkGenesis(); err != nil {
			return nil, err
		}
		if err := work.Process(env); err != nil {
			return nil, fmt.Errorf("register genesis: %w", err)
		}
		blk = block.NewAt(block.GenesisPrevHash, l.now())
	} else {
		if work.Genesis {
			return nil, ErrGenesisExists
		}
		blk = block.NewAt(l.tipLocked().Hash, l.now())
	}

	if err := blk.AddTransaction(work, env); err != nil {
		l.logger.Debug().Err(err).Str("sender", t.Sender.Short()).Uint64("value", t.Value).Msg("Rejected transaction")
		return nil, err
	}
	if err := l.sealAndCommit(ctx, blk, stage); err != nil {
		return nil, err
	}

	*t = *work
	blk.Transactions[0] = t
	return blk, nil
}

// Submit queues a signed transaction for a later AppendPending and returns
// its mempool fingerprint.
func (l *Ledger) Submit(t *tx.Transaction) (types.Hash, error) {
	if l.ctx.Err() != nil {
		return types.Hash{}, ErrClosed
	}
	key, err := l.pool.Add(t)
	if err != nil {
		return key, err
	}
	l.logger.Debug().Str("fingerprint", key.String()).Int("pending", l.pool.Count()).Msg("Transaction queued")
	return key, nil
}

// AppendPending builds one block from up to MaxBlockTxs queued transactions
// in submission order. Transactions that fail processing are dropped from
// the mempool; the rest are mined into a single block. When mining fails
// the accepted transactions stay queued.
func (l *Ledger) AppendPending(ctx context.Context) (*block.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		return nil, ErrClosed
	}
	if len(l.blocks) == 0 {
		return nil, ErrNoGenesis
	}

	pending := l.pool.Select(l.opts.MaxBlockTxs)
	if len(pending) == 0 {
		return nil, ErrNoPending
	}

	stage := utxo.NewView(l.utxos)
	env := l.env(stage)
	blk := block.NewAt(l.tipLocked().Hash, l.now())

	var included, dropped []types.Hash
	for _, p := range pending {
		if err := blk.AddTransaction(p.Tx, env); err != nil {
			l.logger.Debug().Err(err).Str("fingerprint", p.Key.String()).Msg("Dropping pending transaction")
			dropped = append(dropped, p.Key)
			continue
		}
		included = append(included, p.Key)
	}
	l.pool.Remove(dropped...)
	if len(included) == 0 {
		return nil, fmt.Errorf("%w: %d dropped", ErrNoPending, len(dropped))
	}

	if err := l.sealAndCommit(ctx, blk, stage); err != nil {
		return nil, err
	}
	l.pool.Remove(included...)
	return blk, nil
}

// env builds the processing environment over set.
func (l *Ledger) env(set tx.UTXOSet) *tx.Env {
	return &tx.Env{UTXOs: set, Seq: &l.seq, MinTransfer: l.opts.MinTransfer}
}

// sealAndCommit mines blk, then writes the staged UTXO changes and appends
// the block. Must be called with l.mu held.
func (l *Ledger) sealAndCommit(ctx context.Context, blk *block.Block, stage *utxo.View) error {
	mctx, cancel := l.miningContext(ctx)
	defer cancel()

	start := time.Now()
	if err := l.engine.Seal(mctx, blk); err != nil {
		if l.ctx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrClosed, err)
		}
		l.miner.Debug().Err(err).Int("height", len(l.blocks)).Msg("Mining aborted")
		return err
	}
	if err := stage.Commit(); err != nil {
		return fmt.Errorf("commit utxo changes: %w", err)
	}
	l.blocks = append(l.blocks, blk)

	l.miner.Info().
		Int("height", len(l.blocks)-1).
		Str("hash", blk.Hash.String()).
		Uint64("nonce", blk.Nonce).
		Int("txs", len(blk.Transactions)).
		Str("tx_root", blk.TxRoot().String()).
		Dur("elapsed", time.Since(start)).
		Msg("Block mined")

	if n, err := l.pool.Prune(l.utxos); err != nil {
		l.logger.Warn().Err(err).Msg("Mempool prune failed")
	} else if n > 0 {
		l.logger.Debug().Int("pruned", n).Msg("Dropped stale pending transactions")
	}
	return nil
}

func (l *Ledger) tipLocked() *block.Block {
	return l.blocks[len(l.blocks)-1]
}

