package onchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Custody reads the strategy's live balances: the owner's native balance as
// liquid capital and an ERC-20 balance as the LST position.
type Custody struct {
	backend  Backend
	owner    common.Address
	lstToken common.Address
	abi      abi.ABI
}

// NewCustody constructs the custody reader.
func NewCustody(backend Backend, owner, lstToken common.Address) (*Custody, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("onchain: parse erc20 abi: %w", err)
	}
	return &Custody{backend: backend, owner: owner, lstToken: lstToken, abi: parsed}, nil
}

// LiquidBalance implements the strategy.Custody interface.
func (c *Custody) LiquidBalance() (*big.Int, error) {
	if c == nil || c.backend == nil {
		return nil, fmt.Errorf("onchain: custody backend not configured")
	}
	ctx, cancel := callContext()
	defer cancel()
	balance, err := c.backend.BalanceAt(ctx, c.owner, nil)
	if err != nil {
		return nil, fmt.Errorf("onchain: liquid balance: %w", err)
	}
	return balance, nil
}

// LSTBalance implements the strategy.Custody interface.
func (c *Custody) LSTBalance() (*big.Int, error) {
	if c == nil || c.backend == nil {
		return nil, fmt.Errorf("onchain: custody backend not configured")
	}
	data, err := c.abi.Pack("balanceOf", c.owner)
	if err != nil {
		return nil, fmt.Errorf("onchain: pack balanceOf: %w", err)
	}
	ctx, cancel := callContext()
	defer cancel()
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.lstToken, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("onchain: balanceOf: %w", err)
	}
	return unpackUint(c.abi, "balanceOf", raw)
}
