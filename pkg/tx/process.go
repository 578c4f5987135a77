package tx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Processing errors.
var (
	ErrNilTransaction       = errors.New("nil transaction")
	ErrAlreadyProcessed     = errors.New("transaction already processed")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrDuplicateInput       = errors.New("duplicate input")
	ErrUnresolvedInput      = errors.New("input references unknown or spent output")
	ErrBelowMinimumTransfer = errors.New("input sum below minimum transfer")
	ErrInsufficientInputs   = errors.New("input sum below transfer value")
	ErrInputOverflow        = errors.New("input values overflow")
	ErrOutputOverflow       = errors.New("output values overflow")
	ErrOutputCollision      = errors.New("recipient and change outputs share an id")
	ErrNoSequence           = errors.New("processing environment has no sequence")
)

// UTXOSet is the view of unspent outputs a transaction is processed against.
type UTXOSet interface {
	Get(id types.Hash) (*Output, error)
	Has(id types.Hash) (bool, error)
	Put(out *Output) error
	Delete(id types.Hash) error
}

// Env is the processing environment supplied by the ledger.
type Env struct {
	UTXOs       UTXOSet
	Seq         *Sequence
	MinTransfer uint64
}

// Process validates t against env and, when accepted, applies it: the
// recipient and change outputs are inserted and the spent outputs removed.
// All checks run before the first mutation, so a rejected transaction
// leaves the set untouched.
func (t *Transaction) Process(env *Env) error {
	if t == nil {
		return ErrNilTransaction
	}
	if t.Genesis {
		return t.registerGenesis(env.UTXOs)
	}
	if !t.ID.IsZero() || len(t.Outputs) != 0 {
		return ErrAlreadyProcessed
	}
	if !t.VerifySignature() {
		return ErrInvalidSignature
	}
	if env.Seq == nil {
		return ErrNoSequence
	}

	seen := make(map[types.Hash]struct{}, len(t.Inputs))
	for i, in := range t.Inputs {
		if _, dup := seen[in.OutputID]; dup {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.OutputID] = struct{}{}
	}

	resolved, unresolved, err := resolveInputs(env.UTXOs, t.Inputs)
	if err != nil {
		return err
	}

	var sum uint64
	for _, out := range resolved {
		if out == nil {
			continue
		}
		if out.Value > math.MaxUint64-sum {
			return ErrInputOverflow
		}
		sum += out.Value
	}

	if sum < env.MinTransfer {
		if unresolved > 0 {
			return errors.Join(
				fmt.Errorf("%w: %d < %d", ErrBelowMinimumTransfer, sum, env.MinTransfer),
				fmt.Errorf("%w: %d input(s)", ErrUnresolvedInput, unresolved),
			)
		}
		return fmt.Errorf("%w: %d < %d", ErrBelowMinimumTransfer, sum, env.MinTransfer)
	}
	if unresolved > 0 {
		return fmt.Errorf("%w: %d input(s)", ErrUnresolvedInput, unresolved)
	}
	if sum < t.Value {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientInputs, sum, t.Value)
	}

	id := t.computeID(env.Seq.Next())
	pay := NewOutput(t.Recipient, t.Value, id)
	change := NewOutput(t.Sender, sum-t.Value, id)
	if pay.ID == change.ID {
		return ErrOutputCollision
	}

	for _, out := range []*Output{pay, change} {
		if err := env.UTXOs.Put(out); err != nil {
			return fmt.Errorf("insert output %s: %w", out.ID, err)
		}
	}
	for _, out := range resolved {
		if err := env.UTXOs.Delete(out.ID); err != nil {
			return fmt.Errorf("spend output %s: %w", out.ID, err)
		}
	}

	for i := range t.Inputs {
		t.Inputs[i].Resolved = resolved[i]
	}
	t.ID = id
	t.Outputs = []*Output{pay, change}
	return nil
}

func (t *Transaction) registerGenesis(set UTXOSet) error {
	if len(t.Outputs) != 1 {
		return fmt.Errorf("%w: %d outputs, want 1", ErrBadGenesis, len(t.Outputs))
	}
	t.ID = GenesisID
	if err := set.Put(t.Outputs[0]); err != nil {
		return fmt.Errorf("register genesis output: %w", err)
	}
	return nil
}

// resolveInputs looks up every input in set. Missing outputs are reported
// as a count and leave a nil slot in the result.
func resolveInputs(set UTXOSet, inputs []Input) ([]*Output, int, error) {
	resolved := make([]*Output, len(inputs))
	unresolved := 0
	for i, in := range inputs {
		ok, err := set.Has(in.OutputID)
		if err != nil {
			return nil, 0, fmt.Errorf("lookup input %d: %w", i, err)
		}
		if !ok {
			unresolved++
			continue
		}
		out, err := set.Get(in.OutputID)
		if err != nil {
			return nil, 0, fmt.Errorf("lookup input %d: %w", i, err)
		}
		resolved[i] = out
	}
	return resolved, unresolved, nil
}

// computeID returns Hash(sender | recipient | value | seq).
func (t *Transaction) computeID(seq uint64) types.Hash {
	buf := make([]byte, 0, 2*types.PubKeySize+16)
	buf = append(buf, t.Sender[:]...)
	buf = append(buf, t.Recipient[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, t.Value)
	buf = binary.LittleEndian.AppendUint64(buf, seq)
	return crypto.Hash(buf)
}
