package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/simplestorage/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print account for the specific wallet",
	Run:   accountRun,
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Print every named account in the account path",
	Run:   accountsRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(accountsCmd)
}

func accountRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(crypto.PubkeyToAddress(privateKey.PublicKey))
}

func accountsRun(cmd *cobra.Command, args []string) {
	ns, err := nameservice.New(accountPath)
	if err != nil {
		log.Fatal(err)
	}

	for _, entry := range ns.Entries() {
		fmt.Printf("%-12s %s\n", entry.Name, entry.Address)
	}
}
