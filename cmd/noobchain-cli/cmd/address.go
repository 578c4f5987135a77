package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/noobchain/internal/wallet"
)

var (
	addressMnemonic string
	addressWallet   string
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the owner key derived at --account/--index",
	Args:  cobra.NoArgs,
	RunE:  addressRun,
}

func init() {
	addressCmd.Flags().StringVarP(&addressMnemonic, "mnemonic", "m", "", "Mnemonic phrase.")
	addressCmd.Flags().StringVarP(&addressWallet, "wallet", "w", "", "Keystore wallet name.")
	rootCmd.AddCommand(addressCmd)
}

func addressRun(cmd *cobra.Command, args []string) error {
	phrase, err := resolveMnemonic(addressMnemonic, addressWallet)
	if err != nil {
		return err
	}
	w, err := wallet.FromMnemonic(phrase, "", account, index)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), w.Owner().String())
	return nil
}
