// Package mempool manages pending transactions waiting for block inclusion.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyExists = errors.New("transaction already in mempool")
	ErrConflict      = errors.New("transaction conflicts with existing mempool entry")
	ErrPoolFull      = errors.New("mempool is full")
	ErrValidation    = errors.New("transaction failed validation")
)

// DefaultMaxSize is used when New is given a non-positive size.
const DefaultMaxSize = 5000

// entry wraps a transaction with its admission order.
type entry struct {
	tx  *tx.Transaction
	key types.Hash
	seq uint64
}

// Pool holds signed transactions that have not been processed yet.
// Transactions are identified by their fingerprint because ids are only
// assigned during processing.
type Pool struct {
	mu      sync.RWMutex
	txs     map[types.Hash]*entry     // fingerprint -> entry
	spends  map[types.Hash]types.Hash // output id -> fingerprint (conflict index)
	next    uint64
	maxSize int
	policy  *Policy
}

// New creates a new mempool holding at most maxSize transactions.
func New(maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Pool{
		txs:     make(map[types.Hash]*entry),
		spends:  make(map[types.Hash]types.Hash),
		maxSize: maxSize,
		policy:  DefaultPolicy(),
	}
}

// SetPolicy replaces the acceptance policy.
func (p *Pool) SetPolicy(policy *Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
}

// Add validates and queues a transaction, returning its fingerprint.
// Rejects processed, unsigned and badly signed transactions, duplicates and
// spends that conflict with a queued transaction.
func (p *Pool) Add(t *tx.Transaction) (types.Hash, error) {
	if t == nil {
		return types.Hash{}, tx.ErrNilTransaction
	}
	if t.Genesis || !t.ID.IsZero() || len(t.Outputs) != 0 {
		return types.Hash{}, fmt.Errorf("%w: %v", ErrValidation, tx.ErrAlreadyProcessed)
	}
	if !t.VerifySignature() {
		return types.Hash{}, fmt.Errorf("%w: %v", ErrValidation, tx.ErrInvalidSignature)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.policy != nil {
		if err := p.policy.Check(t); err != nil {
			return types.Hash{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	key := t.Fingerprint()
	if _, exists := p.txs[key]; exists {
		return key, ErrAlreadyExists
	}

	seen := make(map[types.Hash]struct{}, len(t.Inputs))
	for _, in := range t.Inputs {
		if _, dup := seen[in.OutputID]; dup {
			return key, fmt.Errorf("%w: %v", ErrValidation, tx.ErrDuplicateInput)
		}
		seen[in.OutputID] = struct{}{}
		if other, exists := p.spends[in.OutputID]; exists {
			return key, fmt.Errorf("%w: output %s already spent by %s", ErrConflict, in.OutputID, other)
		}
	}

	if len(p.txs) >= p.maxSize {
		return key, ErrPoolFull
	}

	p.next++
	p.txs[key] = &entry{tx: t.Clone(), key: key, seq: p.next}
	for _, in := range t.Inputs {
		p.spends[in.OutputID] = key
	}
	return key, nil
}

// Remove removes transactions from the mempool by fingerprint.
func (p *Pool) Remove(keys ...types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, key := range keys {
		p.removeLocked(key)
	}
}

func (p *Pool) removeLocked(key types.Hash) {
	e, exists := p.txs[key]
	if !exists {
		return
	}
	for _, in := range e.tx.Inputs {
		delete(p.spends, in.OutputID)
	}
	delete(p.txs, key)
}

// Has checks if a transaction exists in the mempool.
func (p *Pool) Has(key types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[key]
	return exists
}

// Get returns a copy of a queued transaction, or nil.
func (p *Pool) Get(key types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[key]
	if !exists {
		return nil
	}
	return e.tx.Clone()
}

// Count returns the number of transactions in the mempool.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Pending is a queued transaction handed out for block assembly.
type Pending struct {
	Key types.Hash
	Tx  *tx.Transaction
}

// Select returns copies of up to limit queued transactions in admission
// order without removing them. limit <= 0 selects everything.
func (p *Pool) Select(limit int) []Pending {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := p.sortedLocked()
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	out := make([]Pending, len(entries))
	for i, e := range entries {
		out[i] = Pending{Key: e.key, Tx: e.tx.Clone()}
	}
	return out
}
