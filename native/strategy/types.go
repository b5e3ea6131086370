package strategy

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
)

// DefaultDustFloor is the amount at or below which liquid capital is left idle
// instead of being routed through an external conversion.
var DefaultDustFloor = big.NewInt(1_000_000_000) // 1 gwei

// Custody exposes the live token balances held by the strategy's custody
// account. Balances are always read fresh, never cached.
type Custody interface {
	LiquidBalance() (*big.Int, error)
	LSTBalance() (*big.Int, error)
}

// MarketPool is the market-making pool used for swap-path conversions.
type MarketPool interface {
	// QuoteToLST returns the LST output currently quoted for swapping the
	// given amount of the base asset.
	QuoteToLST(amount *big.Int) (*big.Int, error)
	// SwapToLST executes the base-asset to LST swap, reverting the whole
	// operation when the output would fall below minOut.
	SwapToLST(amount, minOut *big.Int) (*big.Int, error)
	// SwapToAsset executes the LST to base-asset swap under the same
	// minimum-output guard.
	SwapToAsset(amount, minOut *big.Int) (*big.Int, error)
}

// StakingProtocol is the native mint path of the underlying staking protocol.
// Minting is 1:1 by protocol design.
type StakingProtocol interface {
	Mint(amount *big.Int, referral common.Address) (*big.Int, error)
	Paused() (bool, error)
}

// WithdrawalQueue is the staking protocol's asynchronous redemption queue.
type WithdrawalQueue interface {
	// Request queues the given LST amounts for redemption on behalf of owner
	// and returns the protocol-assigned request identifiers.
	Request(amounts []*big.Int, owner common.Address) ([]*big.Int, error)
	// Claim settles a matured request, crediting the proceeds to the owner's
	// custody as a side effect, and returns the realized amount.
	Claim(requestID *big.Int) (*big.Int, error)
}

// ValuationOracle prices an LST balance in base-asset terms.
type ValuationOracle interface {
	LSTValue(amount *big.Int) (*big.Int, error)
}

// Authority is the governance policy consulted at the top of each gated
// operation. The emergency tier is the broader one and implies management.
type Authority interface {
	AllowManagement(caller common.Address) bool
	AllowEmergency(caller common.Address) bool
}

// RewardHarvester sells auxiliary reward streams during the periodic cycle.
// Deployments without side rewards leave it unset.
type RewardHarvester interface {
	Harvest() error
}

// StrategyState is the durable configuration and ledger state of a deployed
// strategy instance. Everything else is derived at call time from balances.
type StrategyState struct {
	StakeOnDeploy      bool
	DepositLimit       *big.Int
	OpenDeposits       bool
	Allowed            map[common.Address]bool
	PendingRedemptions *big.Int
	Referral           common.Address
}

// NewStrategyState returns the deployment defaults: automatic staking on, an
// effectively unbounded deposit limit, and allowlist-only admission.
func NewStrategyState() *StrategyState {
	return &StrategyState{
		StakeOnDeploy:      true,
		DepositLimit:       new(big.Int).Set(ethmath.MaxBig256),
		Allowed:            make(map[common.Address]bool),
		PendingRedemptions: big.NewInt(0),
	}
}

// Copy returns a deep copy of the state for defensive use by callers.
func (s *StrategyState) Copy() *StrategyState {
	if s == nil {
		return nil
	}
	clone := &StrategyState{
		StakeOnDeploy: s.StakeOnDeploy,
		OpenDeposits:  s.OpenDeposits,
		Allowed:       make(map[common.Address]bool, len(s.Allowed)),
		Referral:      s.Referral,
	}
	if s.DepositLimit != nil {
		clone.DepositLimit = new(big.Int).Set(s.DepositLimit)
	}
	if s.PendingRedemptions != nil {
		clone.PendingRedemptions = new(big.Int).Set(s.PendingRedemptions)
	}
	for addr, ok := range s.Allowed {
		clone.Allowed[addr] = ok
	}
	return clone
}

// WithdrawalTicket is the opaque handle returned by InitiateWithdrawal and
// required later to claim. Request identifiers are protocol-assigned; the
// ticket ID exists for log and event correlation only.
type WithdrawalTicket struct {
	ID         string     `json:"id"`
	Requested  *big.Int   `json:"requested"`
	RequestIDs []*big.Int `json:"requestIds"`
	CreatedAt  int64      `json:"createdAt"`
}

// StaticAuthority is a fixed-membership Authority for deployments whose
// governance principals are known at configuration time.
type StaticAuthority struct {
	management map[common.Address]struct{}
	emergency  map[common.Address]struct{}
}

// NewStaticAuthority builds an authority from the two principal sets. Every
// emergency principal also holds the management tier.
func NewStaticAuthority(management, emergency []common.Address) *StaticAuthority {
	auth := &StaticAuthority{
		management: make(map[common.Address]struct{}, len(management)),
		emergency:  make(map[common.Address]struct{}, len(emergency)),
	}
	for _, addr := range management {
		auth.management[addr] = struct{}{}
	}
	for _, addr := range emergency {
		auth.emergency[addr] = struct{}{}
	}
	return auth
}

// AllowManagement implements the Authority interface.
func (a *StaticAuthority) AllowManagement(caller common.Address) bool {
	if a == nil {
		return false
	}
	if _, ok := a.management[caller]; ok {
		return true
	}
	_, ok := a.emergency[caller]
	return ok
}

// AllowEmergency implements the Authority interface.
func (a *StaticAuthority) AllowEmergency(caller common.Address) bool {
	if a == nil {
		return false
	}
	_, ok := a.emergency[caller]
	return ok
}
