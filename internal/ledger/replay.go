package ledger

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/noobchain/internal/utxo"
	"github.com/Klingon-tech/noobchain/pkg/tx"
)

// replayTx checks transaction j of block i against the shadow set and
// applies it there.
func replayTx(shadow *utxo.Store, i, j int, t *tx.Transaction) error {
	fail := func(kind Kind, format string, args ...any) error {
		return &ValidationError{Kind: kind, Block: i, Tx: j, Detail: fmt.Sprintf(format, args...)}
	}

	if t.Genesis {
		return fail(KindMisplacedGenesis, "id %s", t.ID)
	}
	if !t.VerifySignature() {
		return fail(KindBadSignature, "sender %s", t.Sender.Short())
	}
	for k, out := range t.Outputs {
		if out == nil {
			return fail(KindOutputMismatch, "output %d is nil", k)
		}
	}
	inSum, outSum, err := t.CheckedSums()
	if err != nil {
		return fail(KindUnbalancedTransaction, "%v", err)
	}
	if inSum != outSum {
		return fail(KindUnbalancedTransaction, "inputs %d, outputs %d", inSum, outSum)
	}

	for k, in := range t.Inputs {
		spent, err := shadow.Get(in.OutputID)
		if errors.Is(err, utxo.ErrNotFound) {
			return fail(KindUnresolvedInput, "input %d references %s", k, in.OutputID)
		}
		if err != nil {
			return fmt.Errorf("block %d tx %d: shadow lookup: %w", i, j, err)
		}
		if in.Resolved == nil || in.Resolved.Value != spent.Value {
			return fail(KindInputValueMismatch, "input %d records %d, unspent output holds %d", k, in.Value(), spent.Value)
		}
		if err := shadow.Delete(in.OutputID); err != nil {
			return fmt.Errorf("block %d tx %d: shadow delete: %w", i, j, err)
		}
	}

	if len(t.Outputs) < 2 {
		return fail(KindRecipientMismatch, "%d outputs, want 2", len(t.Outputs))
	}
	if t.Outputs[0].Owner != t.Recipient {
		return fail(KindRecipientMismatch, "output owner %s, recipient %s", t.Outputs[0].Owner.Short(), t.Recipient.Short())
	}
	if t.Outputs[1].Owner != t.Sender {
		return fail(KindSenderMismatch, "output owner %s, sender %s", t.Outputs[1].Owner.Short(), t.Sender.Short())
	}
	if t.Outputs[0].Value != t.Value {
		return fail(KindPaymentMismatch, "payment output %d, signed value %d", t.Outputs[0].Value, t.Value)
	}
	for k, out := range t.Outputs {
		if out.OriginTxID != t.ID {
			return fail(KindOutputMismatch, "output %d origin %s, tx %s", k, out.OriginTxID, t.ID)
		}
		if id := out.ComputeID(); id != out.ID {
			return fail(KindOutputMismatch, "output %d id %s, contents hash to %s", k, out.ID, id)
		}
	}
	for _, out := range t.Outputs {
		if err := shadow.Put(out); err != nil {
			return fmt.Errorf("block %d tx %d: shadow put: %w", i, j, err)
		}
	}
	return nil
}
