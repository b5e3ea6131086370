package onchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const stakingABIJSON = `[
	{"name":"submit","type":"function","stateMutability":"payable","inputs":[{"name":"_referral","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"isStopped","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]}
]`

// Staking adapts the staking protocol's native mint entry point to the
// strategy.StakingProtocol interface. Submission is payable in the base
// asset and mints LST 1:1.
type Staking struct {
	backend Backend
	sender  TxSender
	address common.Address
	abi     abi.ABI
}

// NewStaking constructs the staking adapter.
func NewStaking(backend Backend, sender TxSender, address common.Address) (*Staking, error) {
	parsed, err := abi.JSON(strings.NewReader(stakingABIJSON))
	if err != nil {
		return nil, fmt.Errorf("onchain: parse staking abi: %w", err)
	}
	return &Staking{backend: backend, sender: sender, address: address, abi: parsed}, nil
}

// Mint implements the strategy.StakingProtocol interface.
func (s *Staking) Mint(amount *big.Int, referral common.Address) (*big.Int, error) {
	if s == nil || s.sender == nil {
		return nil, fmt.Errorf("onchain: staking sender not configured")
	}
	data, err := s.abi.Pack("submit", referral)
	if err != nil {
		return nil, fmt.Errorf("onchain: pack submit: %w", err)
	}
	ctx, cancel := callContext()
	defer cancel()
	raw, err := s.sender.Send(ctx, s.address, amount, data)
	if err != nil {
		return nil, fmt.Errorf("onchain: submit: %w", err)
	}
	return unpackUint(s.abi, "submit", raw)
}

// Paused implements the strategy.StakingProtocol interface.
func (s *Staking) Paused() (bool, error) {
	if s == nil || s.backend == nil {
		return false, fmt.Errorf("onchain: staking backend not configured")
	}
	data, err := s.abi.Pack("isStopped")
	if err != nil {
		return false, fmt.Errorf("onchain: pack isStopped: %w", err)
	}
	ctx, cancel := callContext()
	defer cancel()
	raw, err := s.backend.CallContract(ctx, ethereum.CallMsg{To: &s.address, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("onchain: isStopped: %w", err)
	}
	values, err := s.abi.Unpack("isStopped", raw)
	if err != nil {
		return false, fmt.Errorf("onchain: unpack isStopped: %w", err)
	}
	if len(values) != 1 {
		return false, fmt.Errorf("onchain: isStopped returned %d values", len(values))
	}
	stopped, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("onchain: isStopped returned unexpected type %T", values[0])
	}
	return stopped, nil
}
