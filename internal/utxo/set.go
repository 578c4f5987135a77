// Package utxo manages the unspent-output set.
package utxo

import (
	"errors"

	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// ErrNotFound is returned by Get for an unknown or spent output id.
var ErrNotFound = errors.New("utxo not found")

// Set is the interface for UTXO storage. Every Set can be handed to
// transaction processing as a tx.UTXOSet.
type Set interface {
	tx.UTXOSet
	// ForEach visits every unspent output in id order.
	ForEach(fn func(*tx.Output) error) error
}

var (
	_ Set = (*Store)(nil)
	_ Set = (*View)(nil)
)

// Total returns the sum of all unspent values in set.
func Total(set Set) (uint64, error) {
	var total uint64
	err := set.ForEach(func(out *tx.Output) error {
		total += out.Value
		return nil
	})
	return total, err
}

// Owned returns the unspent outputs in set that belong to owner.
func Owned(set Set, owner types.PubKey) ([]*tx.Output, error) {
	var outs []*tx.Output
	err := set.ForEach(func(out *tx.Output) error {
		if out.Owner == owner {
			outs = append(outs, out)
		}
		return nil
	})
	return outs, err
}
