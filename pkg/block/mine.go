package block

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// MaxDifficulty is the number of hex digits in a hash.
const MaxDifficulty = types.HashSize * 2

// checkInterval is how many nonces are tried between context checks.
const checkInterval = 4096

// ValidateDifficulty returns ErrBadDifficulty unless 1 <= d <= MaxDifficulty.
func ValidateDifficulty(d int) error {
	if d <= 0 || d > MaxDifficulty {
		return fmt.Errorf("%w: %d", ErrBadDifficulty, d)
	}
	return nil
}

// MeetsDifficulty reports whether the first d hex characters of hash are '0'.
func MeetsDifficulty(hash types.Hash, d int) bool {
	if ValidateDifficulty(d) != nil {
		return false
	}
	return hash.LeadingZeroDigits() >= d
}

// Mine searches nonces upward from the block's current nonce until the hash
// meets difficulty d. On success Nonce and Hash hold the first solving
// nonce. When ctx is cancelled first, ctx.Err() is returned and the block
// is left as it was.
func (b *Block) Mine(ctx context.Context, d int) error {
	if err := ValidateDifficulty(d); err != nil {
		return err
	}
	buf, off := b.Preimage()
	nonce, found, err := SearchNonces(ctx, buf, off, b.Nonce, math.MaxUint64, d)
	if err != nil {
		return err
	}
	if !found {
		return ErrNonceExhausted
	}
	binary.LittleEndian.PutUint64(buf[off:], nonce)
	b.Nonce = nonce
	b.Hash = crypto.Hash(buf)
	return nil
}

// SearchNonces tries nonces first through last (inclusive) against the
// preimage buf, rewriting the nonce at off in place, and returns the
// smallest one whose hash meets difficulty d. buf is modified.
func SearchNonces(ctx context.Context, buf []byte, off int, first, last uint64, d int) (uint64, bool, error) {
	for nonce, i := first, uint64(0); ; nonce, i = nonce+1, i+1 {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, false, err
			}
		}
		binary.LittleEndian.PutUint64(buf[off:], nonce)
		if crypto.Hash(buf).LeadingZeroDigits() >= d {
			return nonce, true, nil
		}
		if nonce == last {
			return 0, false, nil
		}
	}
}
