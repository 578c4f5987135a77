package crypto

import "github.com/Klingon-tech/noobchain/pkg/types"

// MerkleRoot folds an ordered list of leaf hashes into a single root.
//
// Adjacent leaves are paired left to right and each pair's concatenation is
// hashed, level by level, until one hash remains. When a level has an odd
// length the trailing unpaired leaf is dropped, not duplicated; this is a
// known asymmetry (the last leaf of an odd level is not committed to).
//
// An empty list yields the zero hash. The root is not part of block hashing.
func MerkleRoot(leaves []types.Hash) types.Hash {
	if len(leaves) == 0 {
		return types.Hash{}
	}

	level := make([]types.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]types.Hash, 0, len(level)/2)
		for i := 1; i < len(level); i += 2 {
			next = append(next, HashConcat(level[i-1], level[i]))
		}
		level = next
	}

	return level[0]
}
