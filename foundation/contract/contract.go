// Package contract provides access to the SimpleStorage contract: reading
// the stored value, filtering its ValueUpdated logs and writing a new value.
package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SimpleStorageABI is the interface of the deployed contract.
const SimpleStorageABI = `[
	{"type":"function","name":"getValue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setValue","stateMutability":"nonpayable","inputs":[{"name":"_value","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"ValueUpdated","anonymous":false,"inputs":[{"name":"newValue","type":"uint256","indexed":false}]}
]`

// Names of the contract members used by this package.
const (
	methodGetValue    = "getValue"
	methodSetValue    = "setValue"
	eventValueUpdated = "ValueUpdated"
)

// parsed holds the decoded ABI. The ABI is a constant so a failure here is a
// programming error.
var parsed = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(SimpleStorageABI))
	if err != nil {
		panic(fmt.Sprintf("parsing simple storage abi: %s", err))
	}
	return a
}()

// ErrUnexpectedOutput is returned when a call result can't be decoded.
var ErrUnexpectedOutput = errors.New("unexpected contract output")

// ValueUpdatedTopic returns the topic hash of the ValueUpdated event.
func ValueUpdatedTopic() common.Hash {
	return parsed.Events[eventValueUpdated].ID
}

// =============================================================================

// Backend is the subset of the ethclient API required to read the contract.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ValueUpdated represents a single ValueUpdated log emitted by the contract.
type ValueUpdated struct {
	BlockNumber uint64
	Value       *big.Int
	TxHash      common.Hash
	LogIndex    uint
}

// SimpleStorage provides read access to a deployed SimpleStorage contract.
type SimpleStorage struct {
	address common.Address
	backend Backend
}

// New constructs a SimpleStorage bound to the specified address.
func New(address common.Address, backend Backend) (*SimpleStorage, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}

	if address == (common.Address{}) {
		return nil, errors.New("contract address is required")
	}

	ss := SimpleStorage{
		address: address,
		backend: backend,
	}

	return &ss, nil
}

// Address returns the address of the bound contract.
func (ss *SimpleStorage) Address() common.Address {
	return ss.address
}

// Value performs a getValue call against the latest block.
func (ss *SimpleStorage) Value(ctx context.Context) (*big.Int, error) {
	input, err := parsed.Pack(methodGetValue)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", methodGetValue, err)
	}

	msg := ethereum.CallMsg{
		To:   &ss.address,
		Data: input,
	}

	output, err := ss.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", methodGetValue, err)
	}

	values, err := parsed.Unpack(methodGetValue, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", methodGetValue, err)
	}

	if len(values) != 1 {
		return nil, fmt.Errorf("%s: %w: got %d values", methodGetValue, ErrUnexpectedOutput, len(values))
	}

	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: %w: got %T", methodGetValue, ErrUnexpectedOutput, values[0])
	}

	return v, nil
}

// Head returns the number of the most recent block known to the node.
func (ss *SimpleStorage) Head(ctx context.Context) (uint64, error) {
	n, err := ss.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return n, nil
}

// FilterValueUpdated returns the ValueUpdated logs in the inclusive block
// range. A nil to means the latest block. Logs removed by a reorg are skipped.
func (ss *SimpleStorage) FilterValueUpdated(ctx context.Context, from uint64, to *uint64) ([]ValueUpdated, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: []common.Address{ss.address},
		Topics:    [][]common.Hash{{ValueUpdatedTopic()}},
	}

	if to != nil {
		q.ToBlock = new(big.Int).SetUint64(*to)
	}

	logs, err := ss.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", eventValueUpdated, err)
	}

	updates := make([]ValueUpdated, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}

		upd, err := decodeValueUpdated(lg)
		if err != nil {
			return nil, err
		}

		updates = append(updates, upd)
	}

	return updates, nil
}

// decodeValueUpdated converts a raw log into a ValueUpdated.
func decodeValueUpdated(lg types.Log) (ValueUpdated, error) {
	if len(lg.Topics) == 0 || lg.Topics[0] != ValueUpdatedTopic() {
		return ValueUpdated{}, fmt.Errorf("log %s/%d: %w: not a %s log", lg.TxHash, lg.Index, ErrUnexpectedOutput, eventValueUpdated)
	}

	values, err := parsed.Unpack(eventValueUpdated, lg.Data)
	if err != nil {
		return ValueUpdated{}, fmt.Errorf("unpack %s log %s: %w", eventValueUpdated, lg.TxHash, err)
	}

	v, ok := values[0].(*big.Int)
	if !ok {
		return ValueUpdated{}, fmt.Errorf("%s: %w: got %T", eventValueUpdated, ErrUnexpectedOutput, values[0])
	}

	upd := ValueUpdated{
		BlockNumber: lg.BlockNumber,
		Value:       v,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
	}

	return upd, nil
}
