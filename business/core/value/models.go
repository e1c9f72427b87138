package value

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/simplestorage/foundation/contract"
)

// Update represents a single change of the stored value.
type Update struct {
	BlockNumber uint64
	Value       *big.Int
	TxHash      string
}

// BlockRange is the inclusive range of blocks to query. A nil bound is
// resolved by the core.
type BlockRange struct {
	From *uint64
	To   *uint64
}

// Validate checks the bounds that are set against the range limit.
func (br BlockRange) Validate(maxRange uint64) error {
	if br.From == nil || br.To == nil {
		return nil
	}

	return checkRange(*br.From, *br.To, maxRange)
}

// checkRange validates an inclusive range against the range limit.
func checkRange(from uint64, to uint64, maxRange uint64) error {
	if from > to {
		return fmt.Errorf("%w: from %d is after to %d", ErrInvalidRange, from, to)
	}

	if to-from >= maxRange {
		return fmt.Errorf("%w: %d blocks requested, limit is %d", ErrInvalidRange, to-from+1, maxRange)
	}

	return nil
}

// =============================================================================

func toUpdate(vu contract.ValueUpdated) Update {
	return Update{
		BlockNumber: vu.BlockNumber,
		Value:       vu.Value,
		TxHash:      vu.TxHash.Hex(),
	}
}

func toUpdates(vus []contract.ValueUpdated) []Update {
	updates := make([]Update, len(vus))
	for i, vu := range vus {
		updates[i] = toUpdate(vu)
	}
	return updates
}
