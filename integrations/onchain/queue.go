package onchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const queueABIJSON = `[
	{"name":"requestWithdrawals","type":"function","stateMutability":"nonpayable","inputs":[{"name":"_amounts","type":"uint256[]"},{"name":"_owner","type":"address"}],"outputs":[{"name":"requestIds","type":"uint256[]"}]},
	{"name":"claimWithdrawal","type":"function","stateMutability":"nonpayable","inputs":[{"name":"_requestId","type":"uint256"}],"outputs":[{"name":"claimed","type":"uint256"}]}
]`

// Queue adapts the staking protocol's asynchronous withdrawal queue to the
// strategy.WithdrawalQueue interface. Claims credit the base asset to the
// request owner as a contract side effect.
type Queue struct {
	sender  TxSender
	address common.Address
	abi     abi.ABI
}

// NewQueue constructs the withdrawal queue adapter.
func NewQueue(sender TxSender, address common.Address) (*Queue, error) {
	parsed, err := abi.JSON(strings.NewReader(queueABIJSON))
	if err != nil {
		return nil, fmt.Errorf("onchain: parse queue abi: %w", err)
	}
	return &Queue{sender: sender, address: address, abi: parsed}, nil
}

// Request implements the strategy.WithdrawalQueue interface.
func (q *Queue) Request(amounts []*big.Int, owner common.Address) ([]*big.Int, error) {
	if q == nil || q.sender == nil {
		return nil, fmt.Errorf("onchain: queue sender not configured")
	}
	data, err := q.abi.Pack("requestWithdrawals", amounts, owner)
	if err != nil {
		return nil, fmt.Errorf("onchain: pack requestWithdrawals: %w", err)
	}
	ctx, cancel := callContext()
	defer cancel()
	raw, err := q.sender.Send(ctx, q.address, nil, data)
	if err != nil {
		return nil, fmt.Errorf("onchain: requestWithdrawals: %w", err)
	}
	values, err := q.abi.Unpack("requestWithdrawals", raw)
	if err != nil {
		return nil, fmt.Errorf("onchain: unpack requestWithdrawals: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("onchain: requestWithdrawals returned %d values", len(values))
	}
	ids, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("onchain: requestWithdrawals returned unexpected type %T", values[0])
	}
	return ids, nil
}

// Claim implements the strategy.WithdrawalQueue interface.
func (q *Queue) Claim(requestID *big.Int) (*big.Int, error) {
	if q == nil || q.sender == nil {
		return nil, fmt.Errorf("onchain: queue sender not configured")
	}
	data, err := q.abi.Pack("claimWithdrawal", requestID)
	if err != nil {
		return nil, fmt.Errorf("onchain: pack claimWithdrawal: %w", err)
	}
	ctx, cancel := callContext()
	defer cancel()
	raw, err := q.sender.Send(ctx, q.address, nil, data)
	if err != nil {
		return nil, fmt.Errorf("onchain: claimWithdrawal: %w", err)
	}
	return unpackUint(q.abi, "claimWithdrawal", raw)
}
