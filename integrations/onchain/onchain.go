// Package onchain provides Ethereum-backed implementations of the strategy
// engine's collaborator interfaces: a Curve-style market pool, a 1:1 staking
// mint, the protocol withdrawal queue, and custody balance reads. Reads go
// through eth_call; state-changing calls are delegated to a TxSender so key
// management stays outside this package.
package onchain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultCallTimeout bounds individual node calls.
const DefaultCallTimeout = 15 * time.Second

// Backend is the read-side node access the adapters need. *ethclient.Client
// satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// TxSender submits a state-changing call and returns its return data once the
// transaction is mined. Implementations simulate the call first so the return
// value is available to the caller.
type TxSender interface {
	Send(ctx context.Context, to common.Address, value *big.Int, data []byte) ([]byte, error)
}

func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DefaultCallTimeout)
}
