// Package metrics exposes Prometheus instrumentation for the trading
// runtime.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakhungu_trades_total",
			Help: "Total number of settled trades",
		},
		[]string{"symbol", "contract_type", "outcome"},
	)

	stakeAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wakhungu_stake_amount",
			Help:    "Stake size per trade in account currency",
			Buckets: []float64{0.35, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"symbol"},
	)

	tradeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wakhungu_trade_duration_seconds",
			Help:    "Time from contract purchase to settlement",
			Buckets: []float64{0.5, 1, 2, 3, 5, 10, 30, 60},
		},
		[]string{"symbol"},
	)

	recoveryStep = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wakhungu_recovery_step",
			Help: "Current martingale recovery step per bot",
		},
		[]string{"bot_id"},
	)

	controlSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakhungu_control_signals_total",
			Help: "Control signals raised by the staking controller",
		},
		[]string{"bot_id", "signal"},
	)

	activeBots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wakhungu_active_bots",
			Help: "Number of bots currently in the ACTIVE state",
		},
	)

	brokerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakhungu_broker_errors_total",
			Help: "Broker call failures by kind",
		},
		[]string{"kind"},
	)

	ticksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakhungu_ticks_received_total",
			Help: "Market ticks received per symbol",
		},
		[]string{"symbol"},
	)
)

func RecordTrade(symbol, contractType, outcome string, stake float64, settled time.Duration) {
	tradesTotal.WithLabelValues(symbol, contractType, outcome).Inc()
	stakeAmount.WithLabelValues(symbol).Observe(stake)
	tradeDuration.WithLabelValues(symbol).Observe(settled.Seconds())
}

func SetRecoveryStep(botID string, step int) {
	recoveryStep.WithLabelValues(botID).Set(float64(step))
}

func RecordControlSignal(botID, signal string) {
	controlSignalsTotal.WithLabelValues(botID, signal).Inc()
}

func BotStarted() { activeBots.Inc() }
func BotStopped() { activeBots.Dec() }

func RecordBrokerError(kind string) {
	brokerErrorsTotal.WithLabelValues(kind).Inc()
}

func RecordTick(symbol string) {
	ticksReceived.WithLabelValues(symbol).Inc()
}
