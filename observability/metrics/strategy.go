package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StrategyMetrics groups the prometheus collectors exported by the strategy
// daemon.
type StrategyMetrics struct {
	stakeRouted          *prometheus.CounterVec
	stakeRoutedWei       *prometheus.CounterVec
	withdrawalsInitiated prometheus.Counter
	withdrawalsClaimed   prometheus.Counter
	emergencyExits       prometheus.Counter
	pendingRedemptions   prometheus.Gauge
	totalValue           prometheus.Gauge
}

var (
	strategyOnce     sync.Once
	strategyRegistry *StrategyMetrics
)

// Strategy returns the process-wide strategy metrics registry, registering the
// collectors on first use.
func Strategy() *StrategyMetrics {
	strategyOnce.Do(func() {
		strategyRegistry = &StrategyMetrics{
			stakeRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "strategy_stake_routed_total",
				Help: "Count of staking conversions by route (mint or market).",
			}, []string{"route"}),
			stakeRoutedWei: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "strategy_stake_routed_wei_total",
				Help: "Total base-asset wei converted to LST by route.",
			}, []string{"route"}),
			withdrawalsInitiated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "strategy_withdrawals_initiated_total",
				Help: "Count of two-phase withdrawals queued with the staking protocol.",
			}),
			withdrawalsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "strategy_withdrawals_claimed_total",
				Help: "Count of settled withdrawal claims.",
			}),
			emergencyExits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "strategy_emergency_exits_total",
				Help: "Count of emergency LST liquidations.",
			}),
			pendingRedemptions: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "strategy_pending_redemptions_wei",
				Help: "LST wei committed to unclaimed withdrawal requests.",
			}),
			totalValue: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "strategy_total_value_wei",
				Help: "Total managed value reported by the last completed cycle.",
			}),
		}
		prometheus.MustRegister(
			strategyRegistry.stakeRouted,
			strategyRegistry.stakeRoutedWei,
			strategyRegistry.withdrawalsInitiated,
			strategyRegistry.withdrawalsClaimed,
			strategyRegistry.emergencyExits,
			strategyRegistry.pendingRedemptions,
			strategyRegistry.totalValue,
		)
	})
	return strategyRegistry
}

// StakeRouted records a completed staking conversion for the given route.
func (m *StrategyMetrics) StakeRouted(route string, amountWei *big.Int) {
	if m == nil {
		return
	}
	m.stakeRouted.WithLabelValues(route).Inc()
	m.stakeRoutedWei.WithLabelValues(route).Add(weiToFloat(amountWei))
}

// WithdrawalInitiated records a queued redemption request.
func (m *StrategyMetrics) WithdrawalInitiated() {
	if m == nil {
		return
	}
	m.withdrawalsInitiated.Inc()
}

// WithdrawalClaimed records a settled redemption claim.
func (m *StrategyMetrics) WithdrawalClaimed() {
	if m == nil {
		return
	}
	m.withdrawalsClaimed.Inc()
}

// EmergencyExit records a forced LST liquidation.
func (m *StrategyMetrics) EmergencyExit() {
	if m == nil {
		return
	}
	m.emergencyExits.Inc()
}

// SetPendingRedemptions publishes the aggregate in-flight redemption total.
func (m *StrategyMetrics) SetPendingRedemptions(wei *big.Int) {
	if m == nil {
		return
	}
	m.pendingRedemptions.Set(weiToFloat(wei))
}

// SetTotalValue publishes the total managed value from the latest cycle.
func (m *StrategyMetrics) SetTotalValue(wei *big.Int) {
	if m == nil {
		return
	}
	m.totalValue.Set(weiToFloat(wei))
}

func weiToFloat(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(wei).Float64()
	return f
}
