package utxo

import (
	"fmt"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Commitment hashes the ids of every unspent output in id order.
// Output ids commit to owner, value and origin, so two sets holding the
// same outputs have the same commitment. Returns a zero hash for an
// empty set.
func Commitment(set Set) (types.Hash, error) {
	var buf []byte
	err := set.ForEach(func(out *tx.Output) error {
		buf = append(buf, out.ID[:]...)
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("utxo commitment: %w", err)
	}
	if len(buf) == 0 {
		return types.Hash{}, nil
	}
	return crypto.Hash(buf), nil
}
