package metrics

import (
	"lstvault/core/events"
	"lstvault/native/strategy"
)

// StrategyObserver is an event emitter that mirrors strategy events into the
// prometheus collectors before forwarding them to the next emitter, keeping
// the engine itself free of metrics plumbing.
type StrategyObserver struct {
	next events.Emitter
}

// NewStrategyObserver wraps next with metrics recording. Next may be nil.
func NewStrategyObserver(next events.Emitter) *StrategyObserver {
	return &StrategyObserver{next: next}
}

// Emit implements the events.Emitter interface.
func (o *StrategyObserver) Emit(ev events.Event) {
	switch e := ev.(type) {
	case strategy.StakeRouted:
		Strategy().StakeRouted(e.Route, e.AmountIn)
	case strategy.WithdrawalInitiated:
		Strategy().WithdrawalInitiated()
		Strategy().SetPendingRedemptions(e.Pending)
	case strategy.WithdrawalClaimed:
		Strategy().WithdrawalClaimed()
		Strategy().SetPendingRedemptions(e.Pending)
	case strategy.EmergencyExited:
		Strategy().EmergencyExit()
	}
	if o != nil && o.next != nil {
		o.next.Emit(ev)
	}
}
