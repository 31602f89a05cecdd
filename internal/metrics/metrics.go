package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver so engine code never guards its instrumentation.
type Metrics struct {
	deductionsConfirmed prometheus.Counter
	deductionsRejected  *prometheus.CounterVec

	fleetDemandHours   prometheus.Gauge
	fleetCapacityHours prometheus.Gauge
	fleetUtilization   prometheus.Gauge
}

// New registers the engine collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		deductionsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "packdesk_deductions_confirmed_total",
			Help: "Number of deduction events confirmed against the quota ledger.",
		}),
		deductionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "packdesk_deductions_rejected_total",
			Help: "Number of deduction confirmations refused, by reason.",
		}, []string{"reason"}),
		fleetDemandHours: factory.NewGauge(prometheus.GaugeOpts{
			Name: "packdesk_fleet_demand_hours",
			Help: "Total work-hours demanded across active assignments.",
		}),
		fleetCapacityHours: factory.NewGauge(prometheus.GaugeOpts{
			Name: "packdesk_fleet_capacity_hours",
			Help: "Total work-hours available across assigned team members.",
		}),
		fleetUtilization: factory.NewGauge(prometheus.GaugeOpts{
			Name: "packdesk_fleet_utilization_percent",
			Help: "Mean per-assignment utilization percent across the fleet.",
		}),
	}
}

// DeductionConfirmed counts a confirmed deduction.
func (m *Metrics) DeductionConfirmed() {
	if m == nil {
		return
	}
	m.deductionsConfirmed.Inc()
}

// DeductionRejected counts a refused confirmation by reason.
func (m *Metrics) DeductionRejected(reason string) {
	if m == nil {
		return
	}
	m.deductionsRejected.WithLabelValues(reason).Inc()
}

// SetFleet publishes the latest fleet snapshot figures.
func (m *Metrics) SetFleet(demandHours, capacityHours float64, utilizationPercent int) {
	if m == nil {
		return
	}
	m.fleetDemandHours.Set(demandHours)
	m.fleetCapacityHours.Set(capacityHours)
	m.fleetUtilization.Set(float64(utilizationPercent))
}
