package strategy

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lstvault/core/events"
)

// Engine orchestrates the strategy's state transitions: deposit admission,
// staking-route selection, the two-phase withdrawal ledger, and the periodic
// valuation cycle. Execution is single-writer per instance; callers provide
// the serialization.
type Engine struct {
	state     *StrategyState
	store     *Store
	custody   Custody
	pool      MarketPool
	staking   StakingProtocol
	queue     WithdrawalQueue
	oracle    ValuationOracle
	authority Authority
	harvester RewardHarvester
	emitter   events.Emitter
	owner     common.Address
	dustFloor *big.Int
	nowFn     func() int64
}

// NewEngine constructs an engine bound to the external collaborators. The
// state starts from deployment defaults; persisted deployments restore it via
// SetState after loading from a Store.
func NewEngine(custody Custody, pool MarketPool, staking StakingProtocol, queue WithdrawalQueue) *Engine {
	return &Engine{
		state:     NewStrategyState(),
		custody:   custody,
		pool:      pool,
		staking:   staking,
		queue:     queue,
		oracle:    FlatOracle{},
		emitter:   events.NoopEmitter{},
		dustFloor: new(big.Int).Set(DefaultDustFloor),
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState replaces the engine's state, typically with a record restored from
// the store. Nil resets to deployment defaults.
func (e *Engine) SetState(state *StrategyState) {
	if e == nil {
		return
	}
	if state == nil {
		e.state = NewStrategyState()
		return
	}
	if state.Allowed == nil {
		state.Allowed = make(map[common.Address]bool)
	}
	if state.DepositLimit == nil {
		state.DepositLimit = big.NewInt(0)
	}
	if state.PendingRedemptions == nil {
		state.PendingRedemptions = big.NewInt(0)
	}
	e.state = state
}

// SetStore wires the persistence layer. Without a store the engine keeps
// state in memory only.
func (e *Engine) SetStore(store *Store) {
	if e == nil {
		return
	}
	e.store = store
}

// SetOracle overrides the LST valuation. Nil restores the 1:1 default.
func (e *Engine) SetOracle(oracle ValuationOracle) {
	if e == nil {
		return
	}
	if oracle == nil {
		e.oracle = FlatOracle{}
		return
	}
	e.oracle = oracle
}

// SetAuthority wires the governance policy consulted by gated operations.
func (e *Engine) SetAuthority(authority Authority) {
	if e == nil {
		return
	}
	e.authority = authority
}

// SetHarvester wires the auxiliary reward harvester run during the cycle.
func (e *Engine) SetHarvester(harvester RewardHarvester) {
	if e == nil {
		return
	}
	e.harvester = harvester
}

// SetEmitter configures the event emitter. Nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetOwner records the custody address that withdrawal-queue requests are
// issued on behalf of.
func (e *Engine) SetOwner(owner common.Address) {
	if e == nil {
		return
	}
	e.owner = owner
}

// SetDustFloor overrides the threshold below which liquid capital stays idle.
func (e *Engine) SetDustFloor(floor *big.Int) {
	if e == nil || floor == nil || floor.Sign() < 0 {
		return
	}
	e.dustFloor = new(big.Int).Set(floor)
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// State returns a deep copy of the current strategy state.
func (e *Engine) State() *StrategyState {
	if e == nil {
		return nil
	}
	return e.state.Copy()
}

// PendingRedemptions returns the aggregate LST amount committed to unclaimed
// withdrawal requests.
func (e *Engine) PendingRedemptions() *big.Int {
	if e == nil || e.state == nil || e.state.PendingRedemptions == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(e.state.PendingRedemptions)
}

// TotalValue recomputes the total managed value: the liquid balance plus the
// oracle valuation of the held LST. Nothing is cached between calls.
func (e *Engine) TotalValue() (*big.Int, error) {
	if e == nil || e.custody == nil {
		return nil, ErrNotConfigured
	}
	liquid, err := e.custody.LiquidBalance()
	if err != nil {
		return nil, fmt.Errorf("strategy: liquid balance: %w", err)
	}
	lst, err := e.custody.LSTBalance()
	if err != nil {
		return nil, fmt.Errorf("strategy: lst balance: %w", err)
	}
	lstValue, err := e.oracle.LSTValue(lst)
	if err != nil {
		return nil, fmt.Errorf("strategy: lst valuation: %w", err)
	}
	total := big.NewInt(0)
	if liquid != nil {
		total.Add(total, liquid)
	}
	if lstValue != nil {
		total.Add(total, lstValue)
	}
	return total, nil
}

// ReportValue is the custody-framework hook that reports the strategy's
// current total managed value. Unlike RunCycle it deploys nothing and is safe
// to call while redemptions are in flight.
func (e *Engine) ReportValue() (*big.Int, error) {
	return e.TotalValue()
}

// RunCycle executes the periodic valuation cycle: harvest auxiliary rewards,
// deploy idle liquid capital, and recompute the total managed value. It fails
// fast while any redemption is in flight because the valuation cannot be
// trusted until in-flight capital reconciles.
func (e *Engine) RunCycle() (*big.Int, error) {
	if e == nil || e.custody == nil {
		return nil, ErrNotConfigured
	}
	if e.state.PendingRedemptions.Sign() != 0 {
		return nil, ErrRedemptionsPending
	}
	if e.harvester != nil {
		if err := e.harvester.Harvest(); err != nil {
			return nil, fmt.Errorf("strategy: harvest: %w", err)
		}
	}
	if e.state.StakeOnDeploy {
		liquid, err := e.custody.LiquidBalance()
		if err != nil {
			return nil, fmt.Errorf("strategy: liquid balance: %w", err)
		}
		if _, err := e.stakeLiquid(liquid); err != nil {
			return nil, err
		}
	}
	return e.TotalValue()
}

// Deploy is the custody-framework hook invoked when admitted capital arrives.
// It routes the new liquid capital into LST when automatic staking is on.
func (e *Engine) Deploy(amount *big.Int) error {
	if e == nil {
		return ErrNotConfigured
	}
	if !e.state.StakeOnDeploy {
		return nil
	}
	_, err := e.stakeLiquid(amount)
	return err
}

// Free is the custody-framework hook invoked ahead of a depositor withdrawal.
// Withdrawals are served from the liquid balance only, so there is nothing to
// unwind here; AvailableWithdrawCapacity bounds what the framework requests.
func (e *Engine) Free(amount *big.Int) error {
	if e == nil {
		return ErrNotConfigured
	}
	return nil
}

// AvailableWithdrawCapacity reports how much a depositor may withdraw right
// now: the liquid balance only, with no automatic unstaking.
func (e *Engine) AvailableWithdrawCapacity(depositor common.Address) (*big.Int, error) {
	if e == nil || e.custody == nil {
		return nil, ErrNotConfigured
	}
	liquid, err := e.custody.LiquidBalance()
	if err != nil {
		return nil, fmt.Errorf("strategy: liquid balance: %w", err)
	}
	if liquid == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(liquid), nil
}

// EmergencyExit force-converts up to amount of held LST back to the base
// asset through the market with no minimum-output guard. The path is
// best-effort wind-down: any nonzero proceeds are accepted. A zero clamped
// amount is a no-op, not an error.
func (e *Engine) EmergencyExit(caller common.Address, amount *big.Int) (*big.Int, error) {
	if err := e.requireEmergency(caller); err != nil {
		return nil, err
	}
	if e.custody == nil || e.pool == nil {
		return nil, ErrNotConfigured
	}
	lst, err := e.custody.LSTBalance()
	if err != nil {
		return nil, fmt.Errorf("strategy: lst balance: %w", err)
	}
	clamped := clampAmount(amount, lst)
	if clamped.Sign() == 0 {
		return big.NewInt(0), nil
	}
	out, err := e.swapToAsset(clamped, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(EmergencyExited{
		Requested: new(big.Int).Set(clamped),
		Realized:  new(big.Int).Set(out),
	})
	return out, nil
}

// ManualStake force-converts up to amount of idle liquid capital to LST,
// clamped to the live liquid balance. Fails if the clamped amount is zero.
func (e *Engine) ManualStake(caller common.Address, amount *big.Int) (*big.Int, error) {
	if err := e.requireManagement(caller); err != nil {
		return nil, err
	}
	if e.custody == nil {
		return nil, ErrNotConfigured
	}
	liquid, err := e.custody.LiquidBalance()
	if err != nil {
		return nil, fmt.Errorf("strategy: liquid balance: %w", err)
	}
	clamped := clampAmount(amount, liquid)
	if clamped.Sign() == 0 {
		return nil, ErrAmountZero
	}
	return e.stakeLiquid(clamped)
}

// ManualSwapToAsset force-converts up to amount of held LST back to the base
// asset under the caller-supplied minimum-output guard. Fails if the clamped
// amount is zero.
func (e *Engine) ManualSwapToAsset(caller common.Address, amount, minOut *big.Int) (*big.Int, error) {
	if err := e.requireManagement(caller); err != nil {
		return nil, err
	}
	if e.custody == nil {
		return nil, ErrNotConfigured
	}
	lst, err := e.custody.LSTBalance()
	if err != nil {
		return nil, fmt.Errorf("strategy: lst balance: %w", err)
	}
	clamped := clampAmount(amount, lst)
	if clamped.Sign() == 0 {
		return nil, ErrAmountZero
	}
	return e.swapToAsset(clamped, minOut)
}

func (e *Engine) requireManagement(caller common.Address) error {
	if e == nil {
		return ErrNotConfigured
	}
	if e.authority == nil {
		return ErrNotConfigured
	}
	if !e.authority.AllowManagement(caller) {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireEmergency(caller common.Address) error {
	if e == nil {
		return ErrNotConfigured
	}
	if e.authority == nil {
		return ErrNotConfigured
	}
	if !e.authority.AllowEmergency(caller) {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) persist() error {
	if e.store == nil {
		return nil
	}
	return e.store.Save(e.state)
}

// clampAmount bounds amount to [0, ceiling].
func clampAmount(amount, ceiling *big.Int) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	if ceiling == nil || ceiling.Sign() <= 0 {
		return big.NewInt(0)
	}
	if amount.Cmp(ceiling) > 0 {
		return new(big.Int).Set(ceiling)
	}
	return new(big.Int).Set(amount)
}
