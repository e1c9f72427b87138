// Package cmd contains wallet app
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/simplestorage/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	accountName  string
	accountPath  string
	backendURL   string
	networkName  string
	networksFile string
	rpcURL       string
	contractAddr string
)

// backendEnv names the environment variable holding the storage-api base url.
const backendEnv = "STORAGE_BACKEND_URL"

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private.ecdsa", "Path to the private key.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&backendURL, "url", "u", os.Getenv(backendEnv), "Base url of the storage-api service.")
	rootCmd.PersistentFlags().StringVarP(&networkName, "network", "n", "fuji", "Name of the network preset.")
	rootCmd.PersistentFlags().StringVar(&networksFile, "networks-file", "", "Path to a YAML file of additional network presets.")
	rootCmd.PersistentFlags().StringVarP(&rpcURL, "rpc", "r", "", "Overrides the rpc url of the network preset.")
	rootCmd.PersistentFlags().StringVarP(&contractAddr, "contract", "c", "", "Overrides the contract address of the network preset.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "SimpleStorage wallet",
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(accountName, nameservice.KeyExtension) {
		accountName += nameservice.KeyExtension
	}

	return filepath.Join(accountPath, accountName)
}

// getBackendURL resolves the storage-api base url at call time.
func getBackendURL() (string, error) {
	if backendURL == "" {
		return "", errors.New("backend url is not defined, set --url or " + backendEnv)
	}
	return strings.TrimSuffix(backendURL, "/"), nil
}
