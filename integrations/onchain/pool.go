package onchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const poolABIJSON = `[
	{"name":"get_dy","type":"function","stateMutability":"view","inputs":[{"name":"i","type":"int128"},{"name":"j","type":"int128"},{"name":"dx","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"exchange","type":"function","stateMutability":"payable","inputs":[{"name":"i","type":"int128"},{"name":"j","type":"int128"},{"name":"dx","type":"uint256"},{"name":"min_dy","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Pool adapts a Curve-style two-coin stable pool to the strategy's MarketPool
// interface. assetIndex and lstIndex are the pool's coin indices for the base
// asset and the LST.
type Pool struct {
	backend    Backend
	sender     TxSender
	address    common.Address
	assetIndex *big.Int
	lstIndex   *big.Int
	abi        abi.ABI
}

// NewPool constructs the pool adapter.
func NewPool(backend Backend, sender TxSender, address common.Address, assetIndex, lstIndex int64) (*Pool, error) {
	parsed, err := abi.JSON(strings.NewReader(poolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("onchain: parse pool abi: %w", err)
	}
	return &Pool{
		backend:    backend,
		sender:     sender,
		address:    address,
		assetIndex: big.NewInt(assetIndex),
		lstIndex:   big.NewInt(lstIndex),
		abi:        parsed,
	}, nil
}

// QuoteToLST implements the strategy.MarketPool interface.
func (p *Pool) QuoteToLST(amount *big.Int) (*big.Int, error) {
	return p.quote(p.assetIndex, p.lstIndex, amount)
}

// SwapToLST implements the strategy.MarketPool interface. The base asset is
// the pool's native coin, so the input travels as call value.
func (p *Pool) SwapToLST(amount, minOut *big.Int) (*big.Int, error) {
	return p.exchange(p.assetIndex, p.lstIndex, amount, minOut, amount)
}

// SwapToAsset implements the strategy.MarketPool interface.
func (p *Pool) SwapToAsset(amount, minOut *big.Int) (*big.Int, error) {
	return p.exchange(p.lstIndex, p.assetIndex, amount, minOut, nil)
}

func (p *Pool) quote(i, j, dx *big.Int) (*big.Int, error) {
	if p == nil || p.backend == nil {
		return nil, fmt.Errorf("onchain: pool backend not configured")
	}
	data, err := p.abi.Pack("get_dy", i, j, dx)
	if err != nil {
		return nil, fmt.Errorf("onchain: pack get_dy: %w", err)
	}
	ctx, cancel := callContext()
	defer cancel()
	raw, err := p.backend.CallContract(ctx, ethereum.CallMsg{To: &p.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("onchain: get_dy: %w", err)
	}
	return unpackUint(p.abi, "get_dy", raw)
}

func (p *Pool) exchange(i, j, dx, minDy, value *big.Int) (*big.Int, error) {
	if p == nil || p.sender == nil {
		return nil, fmt.Errorf("onchain: pool sender not configured")
	}
	data, err := p.abi.Pack("exchange", i, j, dx, minDy)
	if err != nil {
		return nil, fmt.Errorf("onchain: pack exchange: %w", err)
	}
	ctx, cancel := callContext()
	defer cancel()
	raw, err := p.sender.Send(ctx, p.address, value, data)
	if err != nil {
		return nil, fmt.Errorf("onchain: exchange: %w", err)
	}
	return unpackUint(p.abi, "exchange", raw)
}

func unpackUint(parsed abi.ABI, method string, raw []byte) (*big.Int, error) {
	values, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("onchain: unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("onchain: %s returned %d values", method, len(values))
	}
	out, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("onchain: %s returned unexpected type %T", method, values[0])
	}
	return out, nil
}
