package cmd

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ardanlabs/simplestorage/foundation/contract"
	"github.com/ardanlabs/simplestorage/foundation/network"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
)

var (
	wait    bool
	timeout time.Duration
)

var setCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Send a transaction that changes the stored value",
	Args:  cobra.ExactArgs(1),
	Run:   setRun,
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the transaction to be mined.")
	setCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "How long to wait for the node.")
}

func setRun(cmd *cobra.Command, args []string) {
	value, ok := new(big.Int).SetString(args[0], 10)
	if !ok {
		log.Fatalf("invalid value %q", args[0])
	}

	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	chain, err := selectNetwork()
	if err != nil {
		log.Fatal(err)
	}

	address, err := chain.ContractAddress()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	if chain.ChainID != 0 {
		chainID, err := client.ChainID(ctx)
		if err != nil {
			log.Fatal(err)
		}

		if chainID.Uint64() != chain.ChainID {
			log.Fatalf("rpc %s serves chain %d, network %s expects %d", chain.RPCURL, chainID, chain.Name, chain.ChainID)
		}
	}

	writer, err := contract.NewWriter(address, client)
	if err != nil {
		log.Fatal(err)
	}

	txHash, err := writer.SetValue(ctx, privateKey, value)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("tx:", txHash.Hex())

	if !wait {
		return
	}

	receipt, err := writer.WaitMined(ctx, txHash, 2*time.Second)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("mined in block:", receipt.BlockNumber)
}

// selectNetwork resolves the network preset and applies the flag overrides.
func selectNetwork() (network.Network, error) {
	networks, err := network.Load(networksFile)
	if err != nil {
		return network.Network{}, err
	}

	chain, err := networks.Lookup(networkName)
	if err != nil {
		return network.Network{}, err
	}

	if rpcURL != "" {
		chain.RPCURL = rpcURL
	}

	if contractAddr != "" {
		chain.Contract = contractAddr
	}

	return chain, nil
}
