package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics содержит метрики машины состояний расчёта.
type SettlementMetrics struct {
	// Счётчики исходов
	settlementStarted        prometheus.Counter
	settlementCompleted      prometheus.Counter
	settlementRejected       *prometheus.CounterVec
	settlementFailed         prometheus.Counter
	settlementPartialFailure prometheus.Counter
	lockBusy                 prometheus.Counter

	// Гистограммы времени выполнения
	settlementDuration prometheus.Histogram
	stepDuration       *prometheus.HistogramVec

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для активных расчётов
	activeSettlements prometheus.Gauge
}

// NewSettlementMetrics создаёт новый экземпляр метрик расчёта.
func NewSettlementMetrics() *SettlementMetrics {
	return newSettlementMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSettlementMetricsWithRegisterer(registerer prometheus.Registerer) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SettlementMetrics{
		settlementStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ibanking_settlement_started_total",
			Help: "Total number of settlement attempts started",
		}),
		settlementCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ibanking_settlement_completed_total",
			Help: "Total number of settlements completed successfully",
		}),
		settlementRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ibanking_settlement_rejected_total",
			Help: "Total number of settlement attempts rejected without side effects",
		}, []string{"reason"}),
		settlementFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ibanking_settlement_failed_total",
			Help: "Total number of settlement attempts failed",
		}),
		settlementPartialFailure: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ibanking_settlement_partial_failure_total",
			Help: "Total number of settlements requiring reconciliation",
		}),
		lockBusy: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ibanking_settlement_lock_busy_total",
			Help: "Total number of attempts rejected because the customer lock was held",
		}),
		settlementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ibanking_settlement_duration_seconds",
			Help:    "Duration of settlement attempts in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ibanking_settlement_step_duration_seconds",
			Help:    "Duration of individual settlement steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ibanking_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ibanking_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeSettlements: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ibanking_active_settlements",
			Help: "Number of currently active settlement attempts",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordSettlementStarted увеличивает счётчик запущенных расчётов.
func (m *SettlementMetrics) RecordSettlementStarted() {
	m.settlementStarted.Inc()
	m.activeSettlements.Inc()
}

// RecordSettlementFinished уменьшает количество активных расчётов.
func (m *SettlementMetrics) RecordSettlementFinished() {
	m.activeSettlements.Dec()
}

// RecordSettlementCompleted увеличивает счётчик успешных расчётов.
func (m *SettlementMetrics) RecordSettlementCompleted() {
	m.settlementCompleted.Inc()
}

// RecordSettlementRejected увеличивает счётчик отклонённых попыток по причине.
func (m *SettlementMetrics) RecordSettlementRejected(reason string) {
	m.settlementRejected.WithLabelValues(reason).Inc()
}

// RecordSettlementFailed увеличивает счётчик неудачных расчётов.
func (m *SettlementMetrics) RecordSettlementFailed() {
	m.settlementFailed.Inc()
}

// RecordSettlementPartialFailure увеличивает счётчик частичных сбоев.
func (m *SettlementMetrics) RecordSettlementPartialFailure() {
	m.settlementPartialFailure.Inc()
}

// RecordLockBusy увеличивает счётчик отказов из-за занятой блокировки.
func (m *SettlementMetrics) RecordLockBusy() {
	m.lockBusy.Inc()
}

// RecordSettlementDuration записывает время выполнения расчёта.
func (m *SettlementMetrics) RecordSettlementDuration(duration time.Duration) {
	m.settlementDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время выполнения шага расчёта.
func (m *SettlementMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *SettlementMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *SettlementMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
