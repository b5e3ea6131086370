package strategy

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"lstvault/core/events"
)

const (
	// TypeStakeRouted is emitted when liquid capital is converted to LST.
	TypeStakeRouted = "strategy.stakeRouted"
	// TypeWithdrawalInitiated is emitted when a redemption is queued with the staking protocol.
	TypeWithdrawalInitiated = "strategy.withdrawalInitiated"
	// TypeWithdrawalClaimed is emitted when a queued redemption settles.
	TypeWithdrawalClaimed = "strategy.withdrawalClaimed"
	// TypeEmergencyExited is emitted when LST is force-converted back to the base asset.
	TypeEmergencyExited = "strategy.emergencyExited"
	// TypeConfigUpdated is emitted for every governance-gated configuration change.
	TypeConfigUpdated = "strategy.configUpdated"
	// TypeAllowlistUpdated is emitted when a depositor is added to or removed from the allowlist.
	TypeAllowlistUpdated = "strategy.allowlistUpdated"

	// RouteMint identifies the protocol-native 1:1 mint path.
	RouteMint = "mint"
	// RouteMarket identifies the market-swap path.
	RouteMarket = "market"
)

// StakeRouted captures a completed conversion of liquid capital to LST.
type StakeRouted struct {
	Route     string
	AmountIn  *big.Int
	AmountOut *big.Int
}

// EventType satisfies the Event interface.
func (StakeRouted) EventType() string { return TypeStakeRouted }

// Event converts the structured payload into a broadcastable record.
func (e StakeRouted) Event() *events.Record {
	return &events.Record{
		Type: TypeStakeRouted,
		Attributes: map[string]string{
			"route":     e.Route,
			"amountIn":  formatAmount(e.AmountIn),
			"amountOut": formatAmount(e.AmountOut),
		},
	}
}

// WithdrawalInitiated captures a redemption entering the in-flight ledger.
type WithdrawalInitiated struct {
	TicketID   string
	Requested  *big.Int
	RequestIDs []*big.Int
	Pending    *big.Int
}

// EventType satisfies the Event interface.
func (WithdrawalInitiated) EventType() string { return TypeWithdrawalInitiated }

// Event converts the structured payload into a broadcastable record.
func (e WithdrawalInitiated) Event() *events.Record {
	ids := make([]string, len(e.RequestIDs))
	for i, id := range e.RequestIDs {
		ids[i] = formatAmount(id)
	}
	return &events.Record{
		Type: TypeWithdrawalInitiated,
		Attributes: map[string]string{
			"ticket":     e.TicketID,
			"requested":  formatAmount(e.Requested),
			"requestIds": strings.Join(ids, ","),
			"pending":    formatAmount(e.Pending),
		},
	}
}

// WithdrawalClaimed captures a redemption leaving the in-flight ledger.
type WithdrawalClaimed struct {
	TicketID string
	Realized *big.Int
	Pending  *big.Int
}

// EventType satisfies the Event interface.
func (WithdrawalClaimed) EventType() string { return TypeWithdrawalClaimed }

// Event converts the structured payload into a broadcastable record.
func (e WithdrawalClaimed) Event() *events.Record {
	return &events.Record{
		Type: TypeWithdrawalClaimed,
		Attributes: map[string]string{
			"ticket":   e.TicketID,
			"realized": formatAmount(e.Realized),
			"pending":  formatAmount(e.Pending),
		},
	}
}

// EmergencyExited captures a forced liquidation of held LST.
type EmergencyExited struct {
	Requested *big.Int
	Realized  *big.Int
}

// EventType satisfies the Event interface.
func (EmergencyExited) EventType() string { return TypeEmergencyExited }

// Event converts the structured payload into a broadcastable record.
func (e EmergencyExited) Event() *events.Record {
	return &events.Record{
		Type: TypeEmergencyExited,
		Attributes: map[string]string{
			"requested": formatAmount(e.Requested),
			"realized":  formatAmount(e.Realized),
		},
	}
}

// ConfigUpdated captures a governance-gated configuration change.
type ConfigUpdated struct {
	Field string
	Value string
}

// EventType satisfies the Event interface.
func (ConfigUpdated) EventType() string { return TypeConfigUpdated }

// Event converts the structured payload into a broadcastable record.
func (e ConfigUpdated) Event() *events.Record {
	return &events.Record{
		Type: TypeConfigUpdated,
		Attributes: map[string]string{
			"field": e.Field,
			"value": e.Value,
		},
	}
}

// AllowlistUpdated captures an allowlist membership change.
type AllowlistUpdated struct {
	Account common.Address
	Allowed bool
}

// EventType satisfies the Event interface.
func (AllowlistUpdated) EventType() string { return TypeAllowlistUpdated }

// Event converts the structured payload into a broadcastable record.
func (e AllowlistUpdated) Event() *events.Record {
	return &events.Record{
		Type: TypeAllowlistUpdated,
		Attributes: map[string]string{
			"account": e.Account.Hex(),
			"allowed": strconv.FormatBool(e.Allowed),
		},
	}
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
