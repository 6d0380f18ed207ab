package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every series with service identity.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics exposes the issuance and sweep counters. Registered against the
// default registerer at startup; tests register against their own.
type Metrics struct {
	issued      *prometheus.CounterVec
	issueErrors *prometheus.CounterVec
	collisions  prometheus.Counter
	reconciled  prometheus.Counter
	jobRuns     *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

func New(cfg Config) *Metrics {
	return NewWith(prometheus.DefaultRegisterer, cfg)
}

func NewWith(reg prometheus.Registerer, cfg Config) *Metrics {
	constLabels := prometheus.Labels{
		"service": cfg.ServiceName,
		"env":     cfg.Environment,
	}

	m := &Metrics{
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cobranca_boletos_issued_total",
			Help:        "Payment slips successfully issued and persisted.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		issueErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cobranca_issuance_errors_total",
			Help:        "Per-installment issuance failures by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cobranca_external_id_collisions_total",
			Help:        "Issuer responses whose external identifier collided with an existing record.",
			ConstLabels: constLabels,
		}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cobranca_gestao_records_created_total",
			Help:        "Management records created by the reconciler.",
			ConstLabels: constLabels,
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cobranca_sweep_job_runs_total",
			Help:        "Sweep job executions.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cobranca_sweep_job_errors_total",
			Help:        "Sweep job failures by reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "cobranca_sweep_job_duration_seconds",
			Help:        "Sweep job latency.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"job"}),
	}

	reg.MustRegister(
		m.issued,
		m.issueErrors,
		m.collisions,
		m.reconciled,
		m.jobRuns,
		m.jobErrors,
		m.jobDuration,
	)
	return m
}

func (m *Metrics) IncIssued(outcome string) {
	if m == nil {
		return
	}
	m.issued.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncIssuanceError(reason string) {
	if m == nil {
		return
	}
	m.issueErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncCollision() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}

func (m *Metrics) IncReconciled() {
	if m == nil {
		return
	}
	m.reconciled.Inc()
}

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobError(job, reason string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, reason).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
