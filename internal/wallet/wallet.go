package wallet

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/noobchain/internal/log"
	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Wallet holds one signing key and builds transfers from its owner.
//
// A wallet keeps no spend state: two Sends made before the first is
// appended may select the same outputs, and the ledger rejects the second.
type Wallet struct {
	key    *crypto.PrivateKey
	owner  types.PubKey
	logger zerolog.Logger
}

// New wraps an existing key.
func New(key *crypto.PrivateKey) (*Wallet, error) {
	if key == nil {
		return nil, crypto.ErrInvalidKey
	}
	owner := key.PublicKey()
	return &Wallet{
		key:    key,
		owner:  owner,
		logger: log.Wallet.With().Str("owner", owner.Short()).Logger(),
	}, nil
}

// Generate creates a wallet around a fresh random key.
func Generate() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return New(key)
}

// FromMnemonic derives the wallet at m/44'/CoinType'/account'/0/index.
func FromMnemonic(mnemonic, passphrase string, account, index uint32) (*Wallet, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	hd, err := master.DeriveAccount(account, ChangeExternal, index)
	if err != nil {
		return nil, err
	}
	key, err := hd.PrivateKey()
	if err != nil {
		return nil, err
	}
	return New(key)
}

// Owner returns the wallet's public identity.
func (w *Wallet) Owner() types.PubKey {
	return w.owner
}

// Sign signs t with the wallet key. t.Sender must be the wallet owner.
func (w *Wallet) Sign(t *tx.Transaction) error {
	return t.Sign(w.key)
}

// Send builds and signs a transfer of value to recipient funded from the
// owner's unspent outputs in src. It refuses when the balance is below
// value. The returned transaction still has to be appended to a ledger.
func (w *Wallet) Send(recipient types.PubKey, value uint64, src Source) (*tx.Transaction, error) {
	outs, err := src.Unspent(w.owner)
	if err != nil {
		return nil, fmt.Errorf("list unspent: %w", err)
	}
	sel, err := SelectCoins(outs, value)
	if errors.Is(err, ErrNoUnspent) {
		err = fmt.Errorf("%w: have 0, need %d", ErrInsufficientFunds, value)
	}
	if err != nil {
		w.logger.Debug().Err(err).Uint64("value", value).Int("unspent", len(outs)).Msg("Send refused")
		return nil, err
	}

	t := tx.New(w.owner, recipient, value, sel.IDs())
	if err := w.Sign(t); err != nil {
		return nil, err
	}
	w.logger.Debug().
		Str("recipient", recipient.Short()).
		Uint64("value", value).
		Int("inputs", len(sel.Outputs)).
		Uint64("change", sel.Change).
		Msg("Transfer signed")
	return t, nil
}
