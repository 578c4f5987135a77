// Package ledger implements the chain of blocks together with the
// authoritative unspent-output set it produces.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/noobchain/internal/consensus"
	"github.com/Klingon-tech/noobchain/internal/log"
	"github.com/Klingon-tech/noobchain/internal/mempool"
	"github.com/Klingon-tech/noobchain/internal/storage"
	"github.com/Klingon-tech/noobchain/internal/utxo"
	"github.com/Klingon-tech/noobchain/pkg/block"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Ledger errors.
var (
	ErrClosed        = errors.New("ledger closed")
	ErrNoGenesis     = errors.New("ledger has no genesis block")
	ErrGenesisExists = errors.New("genesis block already exists")
	ErrNoPending     = errors.New("no acceptable pending transactions")

	// ErrBadGenesis is returned when the first appended transaction is
	// not a well-formed genesis transaction.
	ErrBadGenesis = tx.ErrBadGenesis
)

// Default option values.
const (
	DefaultDifficulty  = 3
	DefaultMinTransfer = 1
	DefaultMaxBlockTxs = 100
)

// Options configures a Ledger.
type Options struct {
	Difficulty    int    // Leading zero hex digits required of every block hash.
	MinTransfer   uint64 // Minimum resolved input sum per transaction.
	MiningThreads int    // Parallel PoW workers (0 or 1 = sequential).
	MaxBlockTxs   int    // Transactions per AppendPending block.
	MempoolSize   int    // Pending transaction capacity.

	// DB holds the UTXO set. Nil means a fresh storage.MemoryDB.
	// The ledger never closes a DB it was given.
	DB storage.DB

	// Now stamps new blocks. Nil means time.Now.
	Now func() time.Time
}

// Ledger is an append-only chain of blocks plus the UTXO set derived from
// it. Appends are serialized; validation and reads run concurrently with
// each other but never observe a partially applied append.
type Ledger struct {
	mu     sync.RWMutex
	id     string
	opts   Options
	blocks []*block.Block
	utxos  *utxo.Store
	seq    tx.Sequence
	engine consensus.Engine
	pool   *mempool.Pool

	db     storage.DB
	ownsDB bool

	logger zerolog.Logger
	miner  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an empty ledger.
func New(opts Options) (*Ledger, error) {
	if opts.Difficulty == 0 {
		opts.Difficulty = DefaultDifficulty
	}
	if opts.MaxBlockTxs <= 0 {
		opts.MaxBlockTxs = DefaultMaxBlockTxs
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	engine, err := consensus.NewPoW(opts.Difficulty, opts.MiningThreads)
	if err != nil {
		return nil, fmt.Errorf("consensus engine: %w", err)
	}

	db, owns := opts.DB, false
	if db == nil {
		db, owns = storage.NewMemory(), true
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	l := &Ledger{
		id:     id,
		opts:   opts,
		utxos:  utxo.NewStore(storage.NewPrefixDB(db, []byte("utxo/"))),
		engine: engine,
		pool:   mempool.New(opts.MempoolSize),
		db:     db,
		ownsDB: owns,
		logger: log.WithInstance(log.Ledger, id),
		miner:  log.WithInstance(log.Miner, id),
		ctx:    ctx,
		cancel: cancel,
	}
	l.logger.Debug().
		Int("difficulty", opts.Difficulty).
		Uint64("min_transfer", opts.MinTransfer).
		Int("threads", opts.MiningThreads).
		Msg("Ledger created")
	return l, nil
}

// ID returns the ledger's instance id.
func (l *Ledger) ID() string {
	return l.id
}

// Difficulty returns the proof-of-work difficulty every block must meet.
func (l *Ledger) Difficulty() int {
	return l.opts.Difficulty
}

// Close cancels any in-flight mining and rejects further appends.
// It waits for a running append to finish before releasing storage.
func (l *Ledger) Close() error {
	l.cancel()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ownsDB && l.db != nil {
		err := l.db.Close()
		l.db = nil
		return err
	}
	return nil
}

// Blocks returns the chain in order. The slice is a copy; the blocks are not.
func (l *Ledger) Blocks() []*block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*block.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// Len returns the number of blocks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Height returns the index of the tip block, or -1 for an empty chain.
func (l *Ledger) Height() int {
	return l.Len() - 1
}

// Tip returns the last block, or nil for an empty chain.
func (l *Ledger) Tip() *block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.blocks) == 0 {
		return nil
	}
	return l.blocks[len(l.blocks)-1]
}

// Balance returns the total unspent value owned by owner.
func (l *Ledger) Balance(owner types.PubKey) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.utxos.Balance(owner)
}

// Unspent returns the unspent outputs owned by owner.
func (l *Ledger) Unspent(owner types.PubKey) ([]*tx.Output, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.utxos.GetByOwner(owner)
}

// UnspentTotal returns the sum of every unspent output.
func (l *Ledger) UnspentTotal() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return utxo.Total(l.utxos)
}

// StateRoot returns the commitment over the current UTXO set.
func (l *Ledger) StateRoot() (types.Hash, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stateRootLocked()
}

func (l *Ledger) stateRootLocked() (types.Hash, error) {
	return utxo.Commitment(l.utxos)
}

// Pending returns the number of transactions waiting in the mempool.
func (l *Ledger) Pending() int {
	return l.pool.Count()
}

// miningContext derives a context that ends when either ctx or the
// ledger's own context is cancelled.
func (l *Ledger) miningContext(ctx context.Context) (context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(l.ctx, cancel)
	return mctx, func() {
		stop()
		cancel()
	}
}

func (l *Ledger) now() uint64 {
	return uint64(l.opts.Now().UnixMilli())
}
