// Package network maintains the set of known chains the service can be
// pointed at, loaded from a YAML presets file.
package network

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// defaults holds the presets available without a presets file.
const defaults = `
networks:
  fuji:
    chain_id: 43113
    rpc_url: https://api.avax-test.network/ext/bc/C/rpc
    contract: "0xabE74f63a111F240b55e5EF1Aa931443e53C973D"
  local:
    chain_id: 31337
    rpc_url: http://127.0.0.1:8545
`

// ErrNotFound is returned when a network name is not in the registry.
var ErrNotFound = errors.New("network not found")

// Network describes a chain and the SimpleStorage deployment on it.
type Network struct {
	Name        string `yaml:"-"`
	ChainID     uint64 `yaml:"chain_id"`
	RPCURL      string `yaml:"rpc_url"`
	Contract    string `yaml:"contract"`
	DeployBlock uint64 `yaml:"deploy_block"`
}

// ContractAddress validates and returns the contract address.
func (n Network) ContractAddress() (common.Address, error) {
	if !common.IsHexAddress(n.Contract) {
		return common.Address{}, fmt.Errorf("network %s: invalid contract address %q", n.Name, n.Contract)
	}
	return common.HexToAddress(n.Contract), nil
}

// Registry maintains a set of networks by name.
type Registry struct {
	networks map[string]Network
}

// Default returns the registry of built-in presets.
func Default() *Registry {
	reg, err := decode([]byte(defaults))
	if err != nil {
		panic(fmt.Sprintf("decoding default networks: %s", err))
	}
	return reg
}

// Load returns the built-in presets merged with the presets found in the
// specified file. Entries in the file override built-in entries.
func Load(path string) (*Registry, error) {
	reg := Default()

	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading networks file: %w", err)
	}

	file, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding networks file %s: %w", path, err)
	}

	for name, n := range file.networks {
		reg.networks[name] = n
	}

	return reg, nil
}

// Lookup returns the network for the specified name.
func (r *Registry) Lookup(name string) (Network, error) {
	n, exists := r.networks[name]
	if !exists {
		return Network{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return n, nil
}

// Names returns the sorted list of network names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// =============================================================================

func decode(data []byte) (*Registry, error) {
	var doc struct {
		Networks map[string]Network `yaml:"networks"`
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	reg := Registry{
		networks: make(map[string]Network, len(doc.Networks)),
	}

	for name, n := range doc.Networks {
		if n.RPCURL == "" {
			return nil, fmt.Errorf("network %s: rpc_url is required", name)
		}
		n.Name = name
		reg.networks[name] = n
	}

	return &reg, nil
}
