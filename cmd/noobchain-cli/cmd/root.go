// Package cmd contains the noobchain-cli commands.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Klingon-tech/noobchain/internal/wallet"
)

var (
	keystoreDir string
	account     uint32
	index       uint32
)

var stdin = bufio.NewReader(os.Stdin)

// readPassword prompts on stderr. Replaced in tests.
var readPassword = func(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return password, err
}

func defaultKeystore() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".noobchain", "keystore")
	}
	return filepath.Join(home, ".noobchain", "keystore")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&keystoreDir, "keystore", "k", defaultKeystore(), "Directory holding encrypted wallets.")
	rootCmd.PersistentFlags().Uint32Var(&account, "account", 0, "Account number in m/44'/coin'/account'/0/index.")
	rootCmd.PersistentFlags().Uint32Var(&index, "index", 0, "Key index within the account.")
}

var rootCmd = &cobra.Command{
	Use:           "noobchain-cli",
	Short:         "Manage noobchain wallet keys",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openKeystore() (*wallet.Keystore, error) {
	return wallet.NewKeystore(keystoreDir)
}

// newPassword asks twice and requires both entries to match.
func newPassword() ([]byte, error) {
	first, err := readPassword("New password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(first) == 0 {
		return nil, errors.New("password must not be empty")
	}
	second, err := readPassword("Repeat password: ")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}
