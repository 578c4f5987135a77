package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrAccountExists  = errors.New("account path already recorded")
)

const keystoreVersion = 1

// keystoreFile is the on-disk form of an exported wallet.
type keystoreFile struct {
	Version           int            `json:"version"`
	CreatedAt         time.Time      `json:"created_at"`
	EncryptedMnemonic []byte         `json:"encrypted_mnemonic"`
	Accounts          []AccountEntry `json:"accounts"`
}

// AccountEntry records a derived key so its owner can be shown without
// decrypting the mnemonic.
type AccountEntry struct {
	Account uint32 `json:"account"`
	Change  uint32 `json:"change"`
	Index   uint32 `json:"index"`
	Owner   string `json:"owner"` // hex compressed public key
}

// Keystore keeps encrypted mnemonics as JSON files in one directory.
type Keystore struct {
	path string
}

// NewKeystore opens dir, creating it when missing.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: dir}, nil
}

func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Create encrypts mnemonic under password and writes it as name.
func (ks *Keystore) Create(name, mnemonic string, password []byte, params EncryptionParams) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}

	blob, err := EncryptMnemonic(mnemonic, password, params)
	if err != nil {
		return fmt.Errorf("encrypt mnemonic: %w", err)
	}
	return ks.writeFile(path, &keystoreFile{
		Version:           keystoreVersion,
		CreatedAt:         time.Now().UTC(),
		EncryptedMnemonic: blob,
		Accounts:          []AccountEntry{},
	})
}

// Load decrypts the mnemonic stored as name.
func (ks *Keystore) Load(name string, password []byte) (string, error) {
	kf, err := ks.readFile(name)
	if err != nil {
		return "", err
	}
	mnemonic, err := DecryptMnemonic(kf.EncryptedMnemonic, password)
	if err != nil {
		return "", fmt.Errorf("decrypt wallet %q: %w", name, err)
	}
	return mnemonic, nil
}

// AddAccount records a derived account. Re-adding the same path with the
// same owner is a no-op.
func (ks *Keystore) AddAccount(name string, acct AccountEntry) error {
	kf, err := ks.readFile(name)
	if err != nil {
		return err
	}
	for _, existing := range kf.Accounts {
		if existing.Account == acct.Account && existing.Change == acct.Change && existing.Index == acct.Index {
			if existing.Owner == acct.Owner {
				return nil
			}
			return fmt.Errorf("%w: %d/%d/%d", ErrAccountExists, acct.Account, acct.Change, acct.Index)
		}
	}
	kf.Accounts = append(kf.Accounts, acct)
	return ks.writeFile(ks.walletPath(name), kf)
}

// Accounts returns the recorded accounts of wallet name.
func (ks *Keystore) Accounts(name string) ([]AccountEntry, error) {
	kf, err := ks.readFile(name)
	if err != nil {
		return nil, err
	}
	return kf.Accounts, nil
}

// List returns the names of all stored wallets.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".wallet" {
			names = append(names, e.Name()[:len(e.Name())-len(ext)])
		}
	}
	return names, nil
}

// Delete removes wallet name.
func (ks *Keystore) Delete(name string) error {
	err := os.Remove(ks.walletPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	return err
}

func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(name string) (*keystoreFile, error) {
	data, err := os.ReadFile(ks.walletPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
