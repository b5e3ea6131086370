package strategy

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
)

// AvailableDepositCapacity reports how much new capital the depositor may
// contribute right now. The staking-protocol pause gate runs before the
// generic admission and capacity checks, and the total value is recomputed
// fresh on every call.
func (e *Engine) AvailableDepositCapacity(depositor common.Address) (*big.Int, error) {
	if e == nil || e.staking == nil {
		return nil, ErrNotConfigured
	}
	paused, err := e.staking.Paused()
	if err != nil {
		return nil, fmt.Errorf("strategy: staking pause check: %w", err)
	}
	if paused {
		return big.NewInt(0), nil
	}
	if !e.state.OpenDeposits && !e.state.Allowed[depositor] {
		return big.NewInt(0), nil
	}
	total, err := e.TotalValue()
	if err != nil {
		return nil, err
	}
	if total.Cmp(e.state.DepositLimit) >= 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).Sub(e.state.DepositLimit, total), nil
}

// SetStakeOnDeploy toggles automatic conversion of newly deployed liquid
// capital. Management tier.
func (e *Engine) SetStakeOnDeploy(caller common.Address, enabled bool) error {
	if err := e.requireManagement(caller); err != nil {
		return err
	}
	prev := e.state.StakeOnDeploy
	e.state.StakeOnDeploy = enabled
	if err := e.persist(); err != nil {
		e.state.StakeOnDeploy = prev
		return err
	}
	e.emitter.Emit(ConfigUpdated{Field: "stakeOnDeploy", Value: strconv.FormatBool(enabled)})
	return nil
}

// SetDepositLimit changes the capacity ceiling on total managed value.
// Management tier.
func (e *Engine) SetDepositLimit(caller common.Address, limit *big.Int) error {
	if err := e.requireManagement(caller); err != nil {
		return err
	}
	if limit == nil || limit.Sign() < 0 || limit.Cmp(ethmath.MaxBig256) > 0 {
		return ErrInvalidLimit
	}
	prev := e.state.DepositLimit
	e.state.DepositLimit = new(big.Int).Set(limit)
	if err := e.persist(); err != nil {
		e.state.DepositLimit = prev
		return err
	}
	e.emitter.Emit(ConfigUpdated{Field: "depositLimit", Value: limit.String()})
	return nil
}

// SetOpenDeposits switches between open and allowlist-only admission.
// Emergency tier.
func (e *Engine) SetOpenDeposits(caller common.Address, open bool) error {
	if err := e.requireEmergency(caller); err != nil {
		return err
	}
	prev := e.state.OpenDeposits
	e.state.OpenDeposits = open
	if err := e.persist(); err != nil {
		e.state.OpenDeposits = prev
		return err
	}
	e.emitter.Emit(ConfigUpdated{Field: "openDeposits", Value: strconv.FormatBool(open)})
	return nil
}

// SetAllowed adds or removes an allowlist entry. Emergency tier.
func (e *Engine) SetAllowed(caller, depositor common.Address, allowed bool) error {
	if err := e.requireEmergency(caller); err != nil {
		return err
	}
	prev, existed := e.state.Allowed[depositor]
	if allowed {
		e.state.Allowed[depositor] = true
	} else {
		delete(e.state.Allowed, depositor)
	}
	if err := e.persist(); err != nil {
		if existed {
			e.state.Allowed[depositor] = prev
		} else {
			delete(e.state.Allowed, depositor)
		}
		return err
	}
	e.emitter.Emit(AllowlistUpdated{Account: depositor, Allowed: allowed})
	return nil
}
