package wallet

import (
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Source lists the unspent outputs of an owner. *ledger.Ledger satisfies it.
type Source interface {
	Unspent(owner types.PubKey) ([]*tx.Output, error)
}

// Balance sums the unspent outputs src reports for the wallet's owner.
func (w *Wallet) Balance(src Source) (uint64, error) {
	outs, err := src.Unspent(w.owner)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, o := range outs {
		total += o.Value
	}
	return total, nil
}
