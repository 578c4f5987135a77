package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/noobchain/internal/wallet"
)

var mnemonicCmd = &cobra.Command{
	Use:   "mnemonic",
	Short: "Generate or check BIP-39 mnemonics",
}

var mnemonicNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Print a fresh 24-word mnemonic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := wallet.GenerateMnemonic()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), m)
		return nil
	},
}

var mnemonicCheckCmd = &cobra.Command{
	Use:   "check <word>...",
	Short: "Verify a mnemonic's words and checksum",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wallet.ValidateMnemonic(strings.Join(args, " ")) {
			return wallet.ErrInvalidMnemonic
		}
		fmt.Fprintln(cmd.OutOrStdout(), "valid")
		return nil
	},
}

func init() {
	mnemonicCmd.AddCommand(mnemonicNewCmd, mnemonicCheckCmd)
	rootCmd.AddCommand(mnemonicCmd)
}

// resolveMnemonic returns the phrase given by flag, or decrypts it from
// the named keystore wallet.
func resolveMnemonic(phrase, name string) (string, error) {
	switch {
	case phrase != "" && name != "":
		return "", errors.New("use either --mnemonic or --wallet")
	case phrase != "":
		if !wallet.ValidateMnemonic(phrase) {
			return "", wallet.ErrInvalidMnemonic
		}
		return wallet.NormalizeMnemonic(phrase), nil
	case name != "":
		ks, err := openKeystore()
		if err != nil {
			return "", err
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return ks.Load(name, password)
	default:
		return "", errors.New("--mnemonic or --wallet is required")
	}
}
