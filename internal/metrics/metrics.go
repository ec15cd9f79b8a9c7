// Package metrics exposes tracker and HTTP metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flowfunds"

// Recorder owns a private registry so tests can create as many as they like.
type Recorder struct {
	registry *prometheus.Registry

	transactions  *prometheus.GaugeVec
	amounts       *prometheus.GaugeVec
	mutations     *prometheus.CounterVec
	saveFailures  *prometheus.CounterVec
	importRecords *prometheus.CounterVec
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	rateLimited   prometheus.Counter
	regexCache    *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transactions",
			Help:      "Number of stored transactions by type.",
		}, []string{"type"}),
		amounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "amount_total",
			Help:      "Sum of stored transaction amounts in major units by type.",
		}, []string{"type"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Tracker mutations by operation.",
		}, []string{"operation"}),
		saveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_failures_total",
			Help:      "Failed writes to the key-value store by key.",
		}, []string{"key"}),
		importRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_records_total",
			Help:      "Imported records by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		regexCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regex_cache_lookups_total",
			Help:      "Compiled search pattern cache lookups by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.transactions, r.amounts, r.mutations, r.saveFailures, r.importRecords,
		r.requests, r.duration, r.rateLimited, r.regexCache,
	)
	return r
}

// Registry returns the registry, for tests and custom collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// SetCollection records the size and value of the stored collection.
func (r *Recorder) SetCollection(incomeCount, expenseCount int, income, expenses float64) {
	r.transactions.WithLabelValues("income").Set(float64(incomeCount))
	r.transactions.WithLabelValues("expense").Set(float64(expenseCount))
	r.amounts.WithLabelValues("income").Set(income)
	r.amounts.WithLabelValues("expense").Set(expenses)
}

func (r *Recorder) Mutation(op string) { r.mutations.WithLabelValues(op).Inc() }

func (r *Recorder) SaveFailure(key string) { r.saveFailures.WithLabelValues(key).Inc() }

func (r *Recorder) ImportRecords(accepted, rejected int) {
	r.importRecords.WithLabelValues("accepted").Add(float64(accepted))
	r.importRecords.WithLabelValues("rejected").Add(float64(rejected))
}

func (r *Recorder) RegexLookup(hit bool) {
	if hit {
		r.regexCache.WithLabelValues("hit").Inc()
		return
	}
	r.regexCache.WithLabelValues("miss").Inc()
}

// ObserveRequest records one finished HTTP request.
func (r *Recorder) ObserveRequest(method, route string, code int, d time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Recorder) RateLimited() { r.rateLimited.Inc() }
