// Package block defines the block type, its hash commitment and
// proof-of-work mining.
package block

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// GenesisPrevHash is the previous-hash sentinel of the first block.
var GenesisPrevHash = types.Hash{}

// NonceOffset is the position of the little-endian nonce inside Preimage.
const NonceOffset = types.HashSize + 8

// Block errors.
var (
	ErrNilTransaction = errors.New("nil transaction")
	ErrBadDifficulty  = errors.New("difficulty out of range")
	ErrNonceExhausted = errors.New("nonce space exhausted")
)

// Block is a container of transactions linked to its predecessor by hash.
type Block struct {
	Hash         types.Hash        `json:"hash"`
	PrevHash     types.Hash        `json:"prev_hash"`
	Timestamp    uint64            `json:"timestamp"`
	Nonce        uint64            `json:"nonce"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// New creates an empty block on top of prev, stamped with the current time.
func New(prev types.Hash) *Block {
	return NewAt(prev, uint64(time.Now().UnixMilli()))
}

// NewAt creates an empty block with an explicit unix-millisecond timestamp.
func NewAt(prev types.Hash, timestamp uint64) *Block {
	b := &Block{PrevHash: prev, Timestamp: timestamp}
	b.Hash = b.RecomputeHash()
	return b
}

// IsGenesis reports whether b is the first block of a chain.
func (b *Block) IsGenesis() bool {
	return b.PrevHash == GenesisPrevHash
}

// AddTransaction processes t against env and appends it on success.
// Transactions of a genesis block are appended without processing.
// The block hash is not updated; call Mine (or RecomputeHash) afterwards.
func (b *Block) AddTransaction(t *tx.Transaction, env *tx.Env) error {
	if t == nil {
		return ErrNilTransaction
	}
	if !b.IsGenesis() {
		if err := t.Process(env); err != nil {
			return fmt.Errorf("add transaction: %w", err)
		}
	}
	b.Transactions = append(b.Transactions, t)
	return nil
}

// Preimage returns the bytes hashed to produce the block hash, along with
// the offset of the 8-byte nonce inside them.
//
// Format: prev(32) | timestamp(8) | nonce(8) | tx bytes...
func (b *Block) Preimage() ([]byte, int) {
	buf := make([]byte, 0, NonceOffset+8+256*len(b.Transactions))
	buf = append(buf, b.PrevHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, b.Timestamp)
	buf = binary.LittleEndian.AppendUint64(buf, b.Nonce)
	for _, t := range b.Transactions {
		buf = append(buf, t.Bytes()...)
	}
	return buf, NonceOffset
}

// RecomputeHash derives the hash from the block's current contents.
// It does not modify b.
func (b *Block) RecomputeHash() types.Hash {
	buf, _ := b.Preimage()
	return crypto.Hash(buf)
}

// TxRoot returns the merkle root over the hashes of the block's
// transactions. It is informational and not part of the block hash.
func (b *Block) TxRoot() types.Hash {
	leaves := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		leaves[i] = crypto.Hash(t.Bytes())
	}
	return crypto.MerkleRoot(leaves)
}
