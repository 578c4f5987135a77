// Package config holds the runtime settings of the ledger daemon.
//
// Values come from struct tag defaults, then NOOBCHAIN_* environment
// variables, then command line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/conf/v3"

	"github.com/Klingon-tech/noobchain/internal/ledger"
	"github.com/Klingon-tech/noobchain/internal/storage"
)

// Prefix is the environment variable prefix used by Load.
const Prefix = "NOOBCHAIN"

// ErrHelpWanted is returned by Load when --help or --version was given.
var ErrHelpWanted = conf.ErrHelpWanted

// build is set with -ldflags at release time.
var build = "develop"

// Config is the complete daemon configuration.
type Config struct {
	conf.Version
	Ledger  LedgerConfig
	Storage StorageConfig
	Log     LogConfig
	Demo    DemoConfig
}

// LedgerConfig mirrors ledger.Options.
type LedgerConfig struct {
	Difficulty    int           `conf:"default:3,help:leading zero hex digits required of every block hash"`
	MinTransfer   uint64        `conf:"default:1,help:minimum resolved input sum per transaction"`
	MiningThreads int           `conf:"default:1,help:parallel proof-of-work workers"`
	MaxBlockTxs   int           `conf:"default:100"`
	MempoolSize   int           `conf:"default:5000"`
	MineTimeout   time.Duration `conf:"default:2m,help:abandon a block that takes longer to mine"`
}

// StorageConfig selects the UTXO store backend.
type StorageConfig struct {
	Backend string `conf:"default:memory,help:memory or badger"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `conf:"default:info"`
	JSON  bool
	File  string
}

// DemoConfig parameterizes the reference scenario run by the daemon.
type DemoConfig struct {
	GenesisValue uint64 `conf:"default:100"`
	Transfer     uint64 `conf:"default:40"`
	Overdraft    uint64 `conf:"default:1000"`
	Mnemonic     string `conf:"mask,help:derive the demo wallets from this phrase instead of random keys"`
	Output       string `conf:"help:write the chain JSON here instead of stdout"`
	Tamper       bool   `conf:"help:alter a mined transfer afterwards and show validation failing"`
}

// Default returns the configuration Load produces with no overrides.
func Default() Config {
	return Config{
		Version: conf.Version{Build: build, Desc: "noobchain ledger daemon"},
		Ledger: LedgerConfig{
			Difficulty:    ledger.DefaultDifficulty,
			MinTransfer:   ledger.DefaultMinTransfer,
			MiningThreads: 1,
			MaxBlockTxs:   ledger.DefaultMaxBlockTxs,
			MempoolSize:   5000,
			MineTimeout:   2 * time.Minute,
		},
		Storage: StorageConfig{Backend: storage.BackendMemory},
		Log:     LogConfig{Level: "info"},
		Demo: DemoConfig{
			GenesisValue: 100,
			Transfer:     40,
			Overdraft:    1000,
		},
	}
}

// Load parses the process environment and arguments. On --help it
// returns the usage text together with ErrHelpWanted.
func Load(prefix string) (Config, string, error) {
	cfg := Config{Version: conf.Version{Build: build, Desc: "noobchain ledger daemon"}}
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return cfg, help, err
		}
		return cfg, "", fmt.Errorf("parsing config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return cfg, "", err
	}
	return cfg, "", nil
}

// String renders cfg for startup logs with masked fields hidden.
func String(cfg *Config) (string, error) {
	return conf.String(cfg)
}

// LedgerOptions converts the ledger section into ledger.Options over db.
func (c *Config) LedgerOptions(db storage.DB) ledger.Options {
	return ledger.Options{
		Difficulty:    c.Ledger.Difficulty,
		MinTransfer:   c.Ledger.MinTransfer,
		MiningThreads: c.Ledger.MiningThreads,
		MaxBlockTxs:   c.Ledger.MaxBlockTxs,
		MempoolSize:   c.Ledger.MempoolSize,
		DB:            db,
	}
}
