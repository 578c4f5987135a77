package config

import (
	"fmt"
	"runtime"

	"github.com/Klingon-tech/noobchain/internal/log"
	"github.com/Klingon-tech/noobchain/internal/storage"
	"github.com/Klingon-tech/noobchain/internal/wallet"
	"github.com/Klingon-tech/noobchain/pkg/block"
)

// MaxMiningThreads caps parallel proof-of-work workers.
var MaxMiningThreads = 4 * runtime.NumCPU()

// Validate checks cfg for operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := block.ValidateDifficulty(cfg.Ledger.Difficulty); err != nil || cfg.Ledger.Difficulty == 0 {
		return fmt.Errorf("ledger.difficulty must be in range [1, %d]", block.MaxDifficulty)
	}
	if cfg.Ledger.MiningThreads < 0 || cfg.Ledger.MiningThreads > MaxMiningThreads {
		return fmt.Errorf("ledger.mining-threads must be in range [0, %d]", MaxMiningThreads)
	}
	if cfg.Ledger.MaxBlockTxs < 1 {
		return fmt.Errorf("ledger.max-block-txs must be positive")
	}
	if cfg.Ledger.MempoolSize < 1 {
		return fmt.Errorf("ledger.mempool-size must be positive")
	}
	if cfg.Ledger.MineTimeout < 0 {
		return fmt.Errorf("ledger.mine-timeout must not be negative")
	}

	switch cfg.Storage.Backend {
	case storage.BackendMemory, storage.BackendBadger:
	default:
		return fmt.Errorf("storage.backend must be %q or %q", storage.BackendMemory, storage.BackendBadger)
	}

	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}

	if cfg.Demo.GenesisValue == 0 {
		return fmt.Errorf("demo.genesis-value must be positive")
	}
	if cfg.Demo.Transfer == 0 {
		return fmt.Errorf("demo.transfer must be positive")
	}
	if cfg.Demo.Mnemonic != "" && !wallet.ValidateMnemonic(cfg.Demo.Mnemonic) {
		return fmt.Errorf("demo.mnemonic: %w", wallet.ErrInvalidMnemonic)
	}
	return nil
}
