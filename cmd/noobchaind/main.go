// Noobchain ledger daemon. Builds a ledger from configuration, runs the
// reference transfer scenario against it and prints the chain as JSON.
//
// Usage:
//
//	noobchaind [--ledger-difficulty=N --storage-backend=badger ...]
//	noobchaind --help
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/noobchain/config"
	"github.com/Klingon-tech/noobchain/internal/ledger"
	"github.com/Klingon-tech/noobchain/internal/log"
	"github.com/Klingon-tech/noobchain/internal/storage"
)

func main() {
	cfg, help, err := config.Load(config.Prefix)
	if err != nil {
		if errors.Is(err, config.ErrHelpWanted) {
			fmt.Println(help)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Logger.Error().Err(err).Msg("Daemon failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	closer, err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	if out, err := config.String(&cfg); err == nil {
		log.Logger.Debug().Str("config", out).Msg("Startup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.Storage.Backend)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	l, err := ledger.New(cfg.LedgerOptions(db))
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	defer l.Close()

	log.Logger.Info().
		Str("ledger", l.ID()).
		Int("difficulty", l.Difficulty()).
		Str("backend", cfg.Storage.Backend).
		Int("threads", cfg.Ledger.MiningThreads).
		Msg("Ledger started")

	if err := runScenario(ctx, cfg, l); err != nil {
		return err
	}
	return writeChain(cfg.Demo.Output, l)
}

func writeChain(path string, l *ledger.Ledger) error {
	data, err := ledger.MarshalChain(l)
	if err != nil {
		return fmt.Errorf("encode chain: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write chain: %w", err)
	}
	log.Logger.Info().Str("path", path).Int("blocks", l.Len()).Msg("Chain written")
	return nil
}
