package blockchaingrp

import (
	"strconv"

	"github.com/ardanlabs/simplestorage/business/core/value"
)

type appValue struct {
	Value string `json:"value"`
}

type appUpdate struct {
	BlockNumber string `json:"blockNumber"`
	Value       string `json:"value"`
	TxHash      string `json:"txHash"`
}

func toAppUpdate(upd value.Update) appUpdate {
	return appUpdate{
		BlockNumber: strconv.FormatUint(upd.BlockNumber, 10),
		Value:       upd.Value.String(),
		TxHash:      upd.TxHash,
	}
}

func toAppUpdates(updates []value.Update) []appUpdate {
	items := make([]appUpdate, len(updates))
	for i, upd := range updates {
		items[i] = toAppUpdate(upd)
	}
	return items
}

// =============================================================================

type eventsQuery struct {
	From string `json:"from" validate:"omitempty,number"`
	To   string `json:"to" validate:"omitempty,number|eq=latest"`
}

// blockRange converts a validated query into a block range. An empty bound
// and a "latest" upper bound are left for the core to resolve.
func (q eventsQuery) blockRange() (value.BlockRange, error) {
	var br value.BlockRange

	if q.From != "" {
		from, err := strconv.ParseUint(q.From, 10, 64)
		if err != nil {
			return value.BlockRange{}, err
		}
		br.From = &from
	}

	if q.To != "" && q.To != "latest" {
		to, err := strconv.ParseUint(q.To, 10, 64)
		if err != nil {
			return value.BlockRange{}, err
		}
		br.To = &to
	}

	return br, nil
}
