// ABOUTME: Prometheus instrumentation for reconciliation and intake.
// ABOUTME: Registered against an injected registry, no default-registry globals.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instrument set shared by the engines.
type Metrics struct {
	registry *prometheus.Registry

	// Invites counts invite attempts by outcome (ok, benign, error).
	Invites *prometheus.CounterVec

	// Kicks counts kick attempts by outcome.
	Kicks *prometheus.CounterVec

	// Intakes counts intake pipeline runs by terminal state.
	Intakes *prometheus.CounterVec

	// PlatformErrors counts classified non-benign platform call failures.
	PlatformErrors *prometheus.CounterVec
}

// New creates and registers the instrument set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Invites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wardroom_invites_total",
			Help: "Channel invite attempts by outcome.",
		}, []string{"outcome"}),
		Kicks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wardroom_kicks_total",
			Help: "Channel kick attempts by outcome.",
		}, []string{"outcome"}),
		Intakes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wardroom_intakes_total",
			Help: "Document intake runs by terminal state.",
		}, []string{"state"}),
		PlatformErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wardroom_platform_errors_total",
			Help: "Non-benign platform call failures by error kind.",
		}, []string{"kind"}),
	}
}

// Handler returns the scrape handler for the underlying registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
