package counter

import (
	"net/http"

	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the fee engine counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	StoredDataErrors        *prometheus.CounterVec
	FeeMutations            *prometheus.CounterVec
	CheckoutReconciliations *prometheus.CounterVec
	WebhookEvents           *prometheus.CounterVec
	RosterExports           *prometheus.CounterVec
}

// New creates the counters and registers them with registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		StoredDataErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eldsal_fee_stored_data_errors_total",
				Help: "Stored payment records that failed validation when deriving fee states",
			},
			[]string{"flavour", "field"},
		),
		FeeMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eldsal_fee_mutations_total",
				Help: "Admin fee mutations by outcome",
			},
			[]string{"flavour", "outcome"},
		),
		CheckoutReconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eldsal_checkout_reconciliations_total",
				Help: "Checkout session reconciliations by whether the billing link changed",
			},
			[]string{"flavour", "changed"},
		),
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eldsal_webhook_events_total",
				Help: "Checkout provider webhook deliveries by outcome",
			},
			[]string{"flavour", "outcome"},
		),
		RosterExports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eldsal_roster_exports_total",
				Help: "Member roster exports by target",
			},
			[]string{"target", "outcome"},
		),
	}

	registry.MustRegister(
		m.StoredDataErrors,
		m.FeeMutations,
		m.CheckoutReconciliations,
		m.WebhookEvents,
		m.RosterExports,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StoredDataError(f fees.Flavour, field string) {
	if m == nil {
		return
	}
	m.StoredDataErrors.WithLabelValues(string(f), field).Inc()
}

// ObserveStates counts every fee state that came out in the error state.
func (m *Metrics) ObserveStates(p fees.Payments) {
	if m == nil {
		return
	}
	if p.Membership.Error {
		m.StoredDataError(fees.FlavourMembership, "payment")
	}
	if p.Housecard.Error {
		m.StoredDataError(fees.FlavourHousecard, "payment")
	}
}

func (m *Metrics) FeeMutation(f fees.Flavour, outcome string) {
	if m == nil {
		return
	}
	m.FeeMutations.WithLabelValues(string(f), outcome).Inc()
}

func (m *Metrics) CheckoutReconciled(f fees.Flavour, changed bool) {
	if m == nil {
		return
	}
	label := "false"
	if changed {
		label = "true"
	}
	m.CheckoutReconciliations.WithLabelValues(string(f), label).Inc()
}

func (m *Metrics) WebhookEvent(f fees.Flavour, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(string(f), outcome).Inc()
}

func (m *Metrics) RosterExport(target, outcome string) {
	if m == nil {
		return
	}
	m.RosterExports.WithLabelValues(target, outcome).Inc()
}
