package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/noobchain/internal/wallet"
)

var (
	exportName     string
	exportMnemonic string
	exportBlob     string
	exportParams   = wallet.DefaultParams()
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Encrypt a mnemonic into the keystore",
	Long: `Encrypts the mnemonic (a new one when --mnemonic is omitted) with a
password and stores it in the keystore under --name. The owner key at
--account/--index is recorded next to it. With --blob the encrypted bytes
are also written as hex to that file.`,
	Args: cobra.NoArgs,
	RunE: exportRun,
}

func init() {
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "", "Wallet name.")
	exportCmd.Flags().StringVarP(&exportMnemonic, "mnemonic", "m", "", "Mnemonic to export.")
	exportCmd.Flags().StringVar(&exportBlob, "blob", "", "Also write the encrypted mnemonic here as hex.")
	_ = exportCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(exportCmd)
}

func exportRun(cmd *cobra.Command, args []string) error {
	phrase := exportMnemonic
	if phrase == "" {
		m, err := wallet.GenerateMnemonic()
		if err != nil {
			return err
		}
		phrase = m
		fmt.Fprintf(cmd.OutOrStdout(), "Mnemonic (write it down):\n%s\n", phrase)
	}
	if !wallet.ValidateMnemonic(phrase) {
		return wallet.ErrInvalidMnemonic
	}
	w, err := wallet.FromMnemonic(phrase, "", account, index)
	if err != nil {
		return err
	}

	password, err := newPassword()
	if err != nil {
		return err
	}
	ks, err := openKeystore()
	if err != nil {
		return err
	}
	if err := ks.Create(exportName, phrase, password, exportParams); err != nil {
		return err
	}
	if err := ks.AddAccount(exportName, wallet.AccountEntry{
		Account: account,
		Change:  wallet.ChangeExternal,
		Index:   index,
		Owner:   w.Owner().String(),
	}); err != nil {
		return err
	}

	if exportBlob != "" {
		blob, err := wallet.EncryptMnemonic(phrase, password, exportParams)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportBlob, []byte(hex.EncodeToString(blob)+"\n"), 0600); err != nil {
			return fmt.Errorf("write blob: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved wallet %q, owner %s\n", exportName, w.Owner())
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List keystore wallets and their recorded owners",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := openKeystore()
		if err != nil {
			return err
		}
		names, err := ks.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No wallets found.")
			return nil
		}
		for _, name := range names {
			accts, err := ks.Accounts(name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			for _, a := range accts {
				fmt.Fprintf(cmd.OutOrStdout(), "  %d/%d/%d  %s\n", a.Account, a.Change, a.Index, a.Owner)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
