package strategy

import (
	"fmt"
	"math/big"
)

// stakeLiquid converts amount of liquid capital to LST using whichever path
// yields at least as much LST. The market path is taken only when the live
// quote beats 1:1, and then with a minimum output equal to the input so a
// stale quote can never settle below the native rate. Amounts at or below the
// dust floor stay idle. The decision is one-shot: a failed path fails the
// whole operation.
func (e *Engine) stakeLiquid(amount *big.Int) (*big.Int, error) {
	if e == nil || e.pool == nil || e.staking == nil {
		return nil, ErrNotConfigured
	}
	if amount == nil || amount.Cmp(e.dustFloor) <= 0 {
		return big.NewInt(0), nil
	}
	quote, err := e.pool.QuoteToLST(amount)
	if err != nil {
		return nil, fmt.Errorf("strategy: pool quote: %w", err)
	}

	var (
		out   *big.Int
		route string
	)
	if quote != nil && quote.Cmp(amount) > 0 {
		route = RouteMarket
		out, err = e.pool.SwapToLST(amount, amount)
	} else {
		route = RouteMint
		out, err = e.staking.Mint(amount, e.state.Referral)
	}
	if err != nil {
		return nil, fmt.Errorf("strategy: stake via %s: %w", route, err)
	}
	if out == nil {
		out = big.NewInt(0)
	}
	e.emitter.Emit(StakeRouted{
		Route:     route,
		AmountIn:  new(big.Int).Set(amount),
		AmountOut: new(big.Int).Set(out),
	})
	return new(big.Int).Set(out), nil
}

// swapToAsset converts amount of LST back to liquid capital through the
// market pool only; there is no native-unstake fallback at this layer. The
// pool reverts the operation when output falls below minOut.
func (e *Engine) swapToAsset(amount, minOut *big.Int) (*big.Int, error) {
	if e == nil || e.pool == nil {
		return nil, ErrNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrAmountZero
	}
	out, err := e.pool.SwapToAsset(amount, minOut)
	if err != nil {
		return nil, fmt.Errorf("strategy: swap to asset: %w", err)
	}
	if out == nil {
		out = big.NewInt(0)
	}
	return new(big.Int).Set(out), nil
}
