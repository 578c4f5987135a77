package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/noobchain/config"
	"github.com/Klingon-tech/noobchain/internal/ledger"
	"github.com/Klingon-tech/noobchain/internal/log"
	"github.com/Klingon-tech/noobchain/internal/wallet"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// participants returns the issuer and the two transfer parties. With a
// mnemonic they are accounts 0..2 of that phrase, otherwise random keys.
func participants(mnemonic string) (issuer, alice, bob *wallet.Wallet, err error) {
	ws := make([]*wallet.Wallet, 3)
	for i := range ws {
		if mnemonic != "" {
			ws[i], err = wallet.FromMnemonic(mnemonic, "", uint32(i), 0)
		} else {
			ws[i], err = wallet.Generate()
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("wallet %d: %w", i, err)
		}
	}
	return ws[0], ws[1], ws[2], nil
}

// mine bounds a single append by the configured timeout.
func mine(ctx context.Context, cfg config.Config, l *ledger.Ledger, t *tx.Transaction) error {
	if cfg.Ledger.MineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Ledger.MineTimeout)
		defer cancel()
	}
	_, err := l.Append(ctx, t)
	return err
}

// runScenario issues the genesis grant, makes one transfer, attempts an
// overdraft and validates the result.
func runScenario(ctx context.Context, cfg config.Config, l *ledger.Ledger) error {
	logger := log.Ledger.With().Str("ledger", l.ID()).Logger()

	issuer, alice, bob, err := participants(cfg.Demo.Mnemonic)
	if err != nil {
		return err
	}

	genesis := tx.NewGenesis(issuer.Owner(), alice.Owner(), cfg.Demo.GenesisValue)
	if err := issuer.Sign(genesis); err != nil {
		return fmt.Errorf("sign genesis: %w", err)
	}
	if err := mine(ctx, cfg, l, genesis); err != nil {
		return fmt.Errorf("append genesis: %w", err)
	}
	logBalances(l, alice, bob)

	send, err := alice.Send(bob.Owner(), cfg.Demo.Transfer, l)
	if err != nil {
		return fmt.Errorf("build transfer: %w", err)
	}
	if err := mine(ctx, cfg, l, send); err != nil {
		return fmt.Errorf("append transfer: %w", err)
	}
	logger.Info().Str("tx", send.ID.String()).Uint64("value", send.Value).Msg("Transfer appended")
	logBalances(l, alice, bob)

	// The wallet refuses an overdraft; a hand-built one is refused by the ledger.
	if _, err := alice.Send(bob.Owner(), cfg.Demo.Overdraft, l); err != nil {
		logger.Info().Err(err).Uint64("value", cfg.Demo.Overdraft).Msg("Wallet refused transfer")
	}
	if err := overdraft(ctx, cfg, l, alice, bob.Owner()); err != nil {
		logger.Info().Err(err).Int("blocks", l.Len()).Msg("Ledger refused transfer")
	}
	logBalances(l, alice, bob)

	if err := l.Validate(); err != nil {
		return fmt.Errorf("chain invalid: %w", err)
	}
	root, err := l.StateRoot()
	if err != nil {
		return err
	}
	logger.Info().Int("height", l.Height()).Str("state_root", root.String()).Msg("Chain valid")

	if cfg.Demo.Tamper {
		send.Value++
		var ve *ledger.ValidationError
		if err := l.Validate(); errors.As(err, &ve) {
			logger.Info().Int("block", ve.Block).Str("check", ve.Kind.String()).Msg("Tampered chain rejected")
		}
		send.Value--
	}
	return nil
}

// overdraft submits a transfer larger than sender's balance straight to
// the ledger, bypassing the wallet's balance check.
func overdraft(ctx context.Context, cfg config.Config, l *ledger.Ledger, sender *wallet.Wallet, to types.PubKey) error {
	outs, err := l.Unspent(sender.Owner())
	if err != nil {
		return err
	}
	ids := make([]types.Hash, len(outs))
	for i, o := range outs {
		ids[i] = o.ID
	}
	t := tx.New(sender.Owner(), to, cfg.Demo.Overdraft, ids)
	if err := sender.Sign(t); err != nil {
		return err
	}
	return mine(ctx, cfg, l, t)
}

func logBalances(l *ledger.Ledger, alice, bob *wallet.Wallet) {
	a, errA := alice.Balance(l)
	b, errB := bob.Balance(l)
	if err := errors.Join(errA, errB); err != nil {
		log.Ledger.Warn().Err(err).Msg("Balance unavailable")
		return
	}
	log.Ledger.Info().Str("ledger", l.ID()).Uint64("alice", a).Uint64("bob", b).Msg("Balances")
}
