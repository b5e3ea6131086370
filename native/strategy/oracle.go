package strategy

import "math/big"

// FlatOracle values the LST 1:1 with the base asset. It is the default for
// deployments whose LST targets a hard peg; floating-rate deployments wire
// their own ValuationOracle.
type FlatOracle struct{}

// LSTValue implements the ValuationOracle interface.
func (FlatOracle) LSTValue(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(amount), nil
}
