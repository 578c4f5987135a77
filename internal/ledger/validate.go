package ledger

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/noobchain/internal/storage"
	"github.com/Klingon-tech/noobchain/internal/utxo"
	"github.com/Klingon-tech/noobchain/pkg/block"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Kind classifies a validation failure.
type Kind int

// Validation failure kinds.
const (
	KindHashMismatch Kind = iota + 1
	KindLinkMismatch
	KindUnminedBlock
	KindBadSignature
	KindUnbalancedTransaction
	KindUnresolvedInput
	KindInputValueMismatch
	KindRecipientMismatch
	KindSenderMismatch
	KindMisplacedGenesis
	KindPaymentMismatch
	KindOutputMismatch
)

var kindNames = map[Kind]string{
	KindHashMismatch:          "hash mismatch",
	KindLinkMismatch:          "previous hash mismatch",
	KindUnminedBlock:          "block not mined",
	KindBadSignature:          "invalid signature",
	KindUnbalancedTransaction: "inputs do not equal outputs",
	KindUnresolvedInput:       "input not in unspent set",
	KindInputValueMismatch:    "input value differs from unspent output",
	KindRecipientMismatch:     "payment output not owned by recipient",
	KindSenderMismatch:        "change output not owned by sender",
	KindMisplacedGenesis:      "genesis transaction after block 0",
	KindPaymentMismatch:       "payment output differs from signed value",
	KindOutputMismatch:        "output id or origin does not match its contents",
}

// String returns the human-readable kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ValidationError reports the first check that failed during replay.
// Tx is -1 for block-level failures.
type ValidationError struct {
	Kind   Kind
	Block  int
	Tx     int
	Detail string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("block %d", e.Block)
	if e.Tx >= 0 {
		msg += fmt.Sprintf(" tx %d", e.Tx)
	}
	msg += ": " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Valid reports whether the whole chain passes Validate.
func (l *Ledger) Valid() bool {
	return l.Validate() == nil
}

// Validate replays the chain from genesis and returns the first failure as
// a *ValidationError, or nil when every check passes.
//
// Block 0 is trusted as genesis: only its stored hash is checked, and its
// outputs seed a private shadow UTXO set. Every later block must carry a
// genuine hash, link to its predecessor and meet the difficulty, and each of
// its transactions must verify, balance and spend only outputs present in
// the shadow set with their recorded values.
func (l *Ledger) Validate() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	err := l.validateLocked()
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			l.logger.Warn().
				Int("block", ve.Block).
				Int("tx", ve.Tx).
				Str("check", ve.Kind.String()).
				Str("detail", ve.Detail).
				Msg("Chain validation failed")
		} else {
			l.logger.Error().Err(err).Msg("Chain validation aborted")
		}
	}
	return err
}

func (l *Ledger) validateLocked() error {
	if len(l.blocks) == 0 {
		return nil
	}

	genesis := l.blocks[0]
	if got := genesis.RecomputeHash(); got != genesis.Hash {
		return hashMismatch(0, genesis, got)
	}

	shadow := utxo.NewStore(storage.NewMemory())
	for _, t := range genesis.Transactions {
		for _, out := range t.Outputs {
			if err := shadow.Put(out); err != nil {
				return fmt.Errorf("seed shadow set: %w", err)
			}
		}
	}

	for i := 1; i < len(l.blocks); i++ {
		cur, prev := l.blocks[i], l.blocks[i-1]

		if got := cur.RecomputeHash(); got != cur.Hash {
			return hashMismatch(i, cur, got)
		}
		if cur.PrevHash != prev.Hash {
			return &ValidationError{
				Kind: KindLinkMismatch, Block: i, Tx: -1,
				Detail: fmt.Sprintf("prev %s, block %d hash %s", cur.PrevHash, i-1, prev.Hash),
			}
		}
		if !block.MeetsDifficulty(cur.Hash, l.opts.Difficulty) {
			return &ValidationError{
				Kind: KindUnminedBlock, Block: i, Tx: -1,
				Detail: fmt.Sprintf("%s has fewer than %d leading zeros", cur.Hash, l.opts.Difficulty),
			}
		}

		for j, t := range cur.Transactions {
			if err := replayTx(shadow, i, j, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func hashMismatch(i int, b *block.Block, got types.Hash) error {
	return &ValidationError{
		Kind: KindHashMismatch, Block: i, Tx: -1,
		Detail: fmt.Sprintf("stored %s, computed %s", b.Hash, got),
	}
}
