package wallet

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUnspent         = errors.New("no unspent outputs")
	ErrZeroTarget        = errors.New("target must be positive")
)

// Selection is the set of outputs chosen to fund a transfer.
type Selection struct {
	Outputs []*tx.Output
	Total   uint64 // Sum of selected values.
	Change  uint64 // Total minus target.
}

// IDs returns the ids of the selected outputs, ready for tx.New.
func (s *Selection) IDs() []types.Hash {
	ids := make([]types.Hash, len(s.Outputs))
	for i, o := range s.Outputs {
		ids[i] = o.ID
	}
	return ids
}

// SelectCoins picks outputs covering target. Two candidates are built:
// the smallest single output that covers target, and a largest-first
// accumulation. The one leaving less change wins.
func SelectCoins(outs []*tx.Output, target uint64) (*Selection, error) {
	if target == 0 {
		return nil, ErrZeroTarget
	}

	candidates := make([]*tx.Output, 0, len(outs))
	for _, o := range outs {
		if o != nil && o.Value > 0 {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoUnspent
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Value != candidates[j].Value {
			return candidates[i].Value < candidates[j].Value
		}
		return bytes.Compare(candidates[i].ID[:], candidates[j].ID[:]) < 0
	})

	var single *Selection
	for _, o := range candidates {
		if o.Value >= target {
			single = &Selection{Outputs: []*tx.Output{o}, Total: o.Value, Change: o.Value - target}
			break
		}
	}

	var accum *Selection
	var selected []*tx.Output
	var total uint64
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Value
		if total >= target {
			accum = &Selection{Outputs: selected, Total: total, Change: total - target}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, target)
	}
}
