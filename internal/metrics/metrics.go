// Package metrics exposes Prometheus instrumentation for expense intake,
// background jobs and stored category totals.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"github.com/prometheus/exporter-toolkit/web"

	"github.com/zenspend/zenspend/internal/extractor"
)

// Namespace prefixes every metric name.
const Namespace = "zenspend"

// Extraction outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeNoAmount      = "no_amount"
	OutcomeInvalidAmount = "invalid_amount"
	OutcomeError         = "error"
)

// Metrics holds the service's counters.
type Metrics struct {
	Extractions    *prometheus.CounterVec
	ExpensesStored *prometheus.CounterVec
	Jobs           *prometheus.CounterVec
}

// New creates unregistered counters.
func New() *Metrics {
	return &Metrics{
		Extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "extractor",
			Name:      "extractions_total",
			Help:      "Chat messages processed by the extractor, by outcome and input form.",
		}, []string{"outcome", "source"}),
		ExpensesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "expenses_stored_total",
			Help:      "Expenses persisted, by category and entry path.",
		}, []string{"category", "source"}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Background job attempts, by job type and final status.",
		}, []string{"type", "status"}),
	}
}

// Register adds the counters to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Extractions, m.ExpensesStored, m.Jobs} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveExtraction counts one extraction. source is empty on failure.
func (m *Metrics) ObserveExtraction(source extractor.Source, err error) {
	if source == "" {
		source = "none"
	}
	m.Extractions.WithLabelValues(Outcome(err), string(source)).Inc()
}

// ObserveStored counts one persisted expense.
func (m *Metrics) ObserveStored(category, source string) {
	m.ExpensesStored.WithLabelValues(category, source).Inc()
}

// ObserveJob counts one job reaching a terminal or retrying status.
func (m *Metrics) ObserveJob(jobType, status string) {
	m.Jobs.WithLabelValues(jobType, status).Inc()
}

// Outcome maps an extraction error onto an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, extractor.ErrNoAmount):
		return OutcomeNoAmount
	case errors.Is(err, extractor.ErrInvalidAmount):
		return OutcomeInvalidAmount
	default:
		return OutcomeError
	}
}

// NewRegistry returns a registry carrying the Go, process and build-info
// collectors for appName.
func NewRegistry(appName string) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		versioncollector.NewCollector(appName),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// LandingPage renders the index page linking to metrics and health.
func LandingPage(appName, description, metricsPath string) (http.Handler, error) {
	return web.NewLandingPage(web.LandingConfig{
		Name:        appName,
		Description: description,
		Version:     version.Print(appName),
		Links: []web.LandingLinks{
			{Address: metricsPath, Text: "Metrics"},
			{Address: "/health", Text: "Health"},
		},
	})
}
