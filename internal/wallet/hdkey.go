package wallet

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// ErrPublicOnly is returned when a private key is requested from a
// neutered key.
var ErrPublicOnly = errors.New("key has no private part")

// Derivation path m/44'/CoinType'/account'/change/index.
const (
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinType is the unregistered coin type used for ledger keys.
	CoinType = bip32.FirstHardenedChild + 1337

	ChangeExternal = 0
	ChangeInternal = 1
)

// HDKey is a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates the root key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives the child at index. Add bip32.FirstHardenedChild for
// hardened derivation.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives along indices in order.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveAccount derives the key at m/44'/CoinType'/account'/change/index.
func (k *HDKey) DeriveAccount(account, change, index uint32) (*HDKey, error) {
	return k.DerivePath(
		PurposeBIP44,
		CoinType,
		bip32.FirstHardenedChild+account,
		change,
		index,
	)
}

// PrivateKeyBytes returns the 32-byte secret, or nil for a public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 pads private keys to 33 bytes with a leading zero.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// Owner returns the compressed public key, the key's ledger identity.
func (k *HDKey) Owner() types.PubKey {
	var owner types.PubKey
	copy(owner[:], k.key.PublicKey().Key)
	return owner
}

// PrivateKey returns the signing key.
func (k *HDKey) PrivateKey() (*crypto.PrivateKey, error) {
	priv := k.PrivateKeyBytes()
	if priv == nil {
		return nil, ErrPublicOnly
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// IsPrivate reports whether the key holds a private part.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth is 0 for the master key.
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// Neuter returns a public-only copy for watch-only use.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
