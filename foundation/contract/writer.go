package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

// Transactor is the subset of the ethclient API required to sign, submit
// and follow a transaction.
type Transactor interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Writer submits state changing transactions to the contract.
type Writer struct {
	address    common.Address
	transactor Transactor
}

// NewWriter constructs a Writer bound to the specified address.
func NewWriter(address common.Address, transactor Transactor) (*Writer, error) {
	if transactor == nil {
		return nil, errors.New("transactor is required")
	}

	if address == (common.Address{}) {
		return nil, errors.New("contract address is required")
	}

	w := Writer{
		address:    address,
		transactor: transactor,
	}

	return &w, nil
}

// SetValue signs a setValue transaction with the private key and sends it
// to the node. The hash of the submitted transaction is returned.
func (w *Writer) SetValue(ctx context.Context, privateKey *ecdsa.PrivateKey, value *big.Int) (common.Hash, error) {
	if value == nil || value.Sign() < 0 {
		return common.Hash{}, errors.New("value must be a non-negative integer")
	}

	input, err := parsed.Pack(methodSetValue, value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", methodSetValue, err)
	}

	from := crypto.PubkeyToAddress(privateKey.PublicKey)

	chainID, err := w.transactor.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id: %w", err)
	}

	nonce, err := w.transactor.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce for %s: %w", from, err)
	}

	gasPrice, err := w.transactor.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	msg := ethereum.CallMsg{
		From: from,
		To:   &w.address,
		Data: input,
	}

	gas, err := w.transactor.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &w.address,
		Value:    new(big.Int),
		Data:     input,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := w.transactor.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// WaitMined polls for the receipt of the transaction until it is mined or
// the context is done.
func (w *Writer) WaitMined(ctx context.Context, txHash common.Hash, poll time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := w.transactor.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("tx %s: %w", txHash, ErrReverted)
			}
			return receipt, nil

		case !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("receipt for %s: %w", txHash, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
