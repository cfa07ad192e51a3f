// Package metrics provides Prometheus metrics for conversions and manifest serving.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hlsladder"

// Recorder holds the collectors of one registry. A nil *Recorder records
// nothing, so components can take one optionally.
type Recorder struct {
	gatherer prometheus.Gatherer

	encodeJobs        *prometheus.CounterVec
	encodeDuration    *prometheus.HistogramVec
	conversions       *prometheus.CounterVec
	rewrites          *prometheus.CounterVec
	duplicatesRemoved *prometheus.CounterVec
	manifestWrites    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: gatherer,
		encodeJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encode_jobs_total",
			Help:      "Encode jobs settled, by outcome",
		}, []string{"outcome"}),
		encodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_job_duration_seconds",
			Help:      "Wall time of encode jobs, by mode",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"mode"}),
		conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversions finished, by result",
		}, []string{"result"}),
		rewrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_rewrites_total",
			Help:      "Master manifests rewritten for a request, by result",
		}, []string{"result"}),
		duplicatesRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Duplicate declarations dropped by the optimizer, by kind",
		}, []string{"kind"}),
		manifestWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_writes_total",
			Help:      "Manifests written to storage, by role and result",
		}, []string{"role", "result"}),
	}
}

// EncodeJob records one settled job.
func (r *Recorder) EncodeJob(mode string, ok bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	r.encodeJobs.WithLabelValues(outcome).Inc()
	r.encodeDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (r *Recorder) Conversion(result string) {
	if r == nil {
		return
	}
	r.conversions.WithLabelValues(result).Inc()
}

func (r *Recorder) Rewrite(result string) {
	if r == nil {
		return
	}
	r.rewrites.WithLabelValues(result).Inc()
}

func (r *Recorder) DuplicatesRemoved(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.duplicatesRemoved.WithLabelValues(kind).Add(float64(n))
}

// ManifestWrite records one storage write of a manifest with the given role.
func (r *Recorder) ManifestWrite(role string, ok bool) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	r.manifestWrites.WithLabelValues(role, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
