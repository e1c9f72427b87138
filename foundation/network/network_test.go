package network_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/simplestorage/foundation/network"
)

func Test_Default(t *testing.T) {
	reg := network.Default()

	fuji, err := reg.Lookup("fuji")
	if err != nil {
		t.Fatalf("Should have the fuji preset: %s", err)
	}

	if fuji.ChainID != 43113 {
		t.Logf("got: %d", fuji.ChainID)
		t.Logf("exp: %d", 43113)
		t.Fatalf("Should have the fuji chain id.")
	}

	addr, err := fuji.ContractAddress()
	if err != nil {
		t.Fatalf("Should have a valid contract address: %s", err)
	}

	if addr.Hex() != "0xabE74f63a111F240b55e5EF1Aa931443e53C973D" {
		t.Logf("got: %s", addr.Hex())
		t.Fatalf("Should have the deployed contract address.")
	}

	local, err := reg.Lookup("local")
	if err != nil {
		t.Fatalf("Should have the local preset: %s", err)
	}

	if _, err := local.ContractAddress(); err == nil {
		t.Fatalf("Should require a contract address for the local preset.")
	}

	if _, err := reg.Lookup("mainnet"); !errors.Is(err, network.ErrNotFound) {
		t.Logf("got: %v", err)
		t.Logf("exp: %v", network.ErrNotFound)
		t.Fatalf("Should not find an unknown network.")
	}
}

func Test_Load(t *testing.T) {
	type table struct {
		name    string
		content string
		lookup  string
		rpc     string
		block   uint64
		fails   bool
	}

	tt := []table{
		{
			name: "override",
			content: `
networks:
  local:
    chain_id: 31337
    rpc_url: http://anvil:8545
    contract: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
    deploy_block: 1
`,
			lookup: "local",
			rpc:    "http://anvil:8545",
			block:  1,
		},
		{
			name: "additional",
			content: `
networks:
  sepolia:
    chain_id: 11155111
    rpc_url: https://rpc.sepolia.org
    contract: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
    deploy_block: 5000000
`,
			lookup: "sepolia",
			rpc:    "https://rpc.sepolia.org",
			block:  5000000,
		},
		{
			name: "unknown-field",
			content: `
networks:
  local:
    rpc: http://anvil:8545
`,
			fails: true,
		},
		{
			name: "missing-rpc",
			content: `
networks:
  local:
    chain_id: 31337
`,
			fails: true,
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "networks.yaml")
			if err := os.WriteFile(path, []byte(tst.content), 0600); err != nil {
				t.Fatalf("Test %s:\tShould be able to write the file: %s", tst.name, err)
			}

			reg, err := network.Load(path)
			if tst.fails {
				if err == nil {
					t.Fatalf("Test %s:\tShould fail to load the file.", tst.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("Test %s:\tShould be able to load the file: %s", tst.name, err)
			}

			n, err := reg.Lookup(tst.lookup)
			if err != nil {
				t.Fatalf("Test %s:\tShould find the network: %s", tst.name, err)
			}

			if n.RPCURL != tst.rpc || n.DeployBlock != tst.block || n.Name != tst.lookup {
				t.Logf("Test %s:\tgot: %+v", tst.name, n)
				t.Fatalf("Test %s:\tShould get back the file entry.", tst.name)
			}

			if _, err := reg.Lookup("fuji"); err != nil {
				t.Fatalf("Test %s:\tShould keep the built-in presets.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}
