// Package nameservice reads a folder of wallet keys and creates a name
// lookup for their addresses.
package nameservice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyExtension is the file extension of a wallet private key.
const KeyExtension = ".ecdsa"

// Entry associates a key name with its address.
type Entry struct {
	Name    string
	Address common.Address
}

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	accounts map[common.Address]string
}

// New constructs a name service with the keys found under the root folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[common.Address]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != KeyExtension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading key %s: %w", fileName, err)
		}

		address := crypto.PubkeyToAddress(privateKey.PublicKey)
		ns.accounts[address] = strings.TrimSuffix(filepath.Base(fileName), KeyExtension)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address. The hex form of the
// address is returned when the address is unknown.
func (ns *NameService) Lookup(address common.Address) string {
	name, exists := ns.accounts[address]
	if !exists {
		return address.Hex()
	}
	return name
}

// Entries returns the known keys sorted by name.
func (ns *NameService) Entries() []Entry {
	entries := make([]Entry, 0, len(ns.accounts))
	for address, name := range ns.accounts {
		entries = append(entries, Entry{Name: name, Address: address})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}
