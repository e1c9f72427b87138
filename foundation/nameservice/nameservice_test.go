package nameservice_test

import (
	"path/filepath"
	"testing"

	"github.com/ardanlabs/simplestorage/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func Test_Lookup(t *testing.T) {
	root := t.TempDir()

	names := []string{"kennedy", "pavel"}
	addrs := make(map[string]common.Address)

	for _, name := range names {
		pk, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("Should be able to generate a key: %s", err)
		}

		if err := crypto.SaveECDSA(filepath.Join(root, name+nameservice.KeyExtension), pk); err != nil {
			t.Fatalf("Should be able to save the key: %s", err)
		}

		addrs[name] = crypto.PubkeyToAddress(pk.PublicKey)
	}

	ns, err := nameservice.New(root)
	if err != nil {
		t.Fatalf("Should be able to load the name service: %s", err)
	}

	for name, addr := range addrs {
		if got := ns.Lookup(addr); got != name {
			t.Logf("got: %s", got)
			t.Logf("exp: %s", name)
			t.Fatalf("Should resolve the address to the key name.")
		}
	}

	unknown := common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	if got := ns.Lookup(unknown); got != unknown.Hex() {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", unknown.Hex())
		t.Fatalf("Should fall back to the hex address.")
	}

	entries := ns.Entries()
	if len(entries) != 2 || entries[0].Name != "kennedy" || entries[1].Name != "pavel" {
		t.Logf("got: %+v", entries)
		t.Fatalf("Should list the keys sorted by name.")
	}
}
