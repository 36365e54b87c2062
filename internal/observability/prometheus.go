package observability

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var latencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

type Prometheus struct {
	lookups       *prometheus.HistogramVec
	upstream      *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
	invalidations *prometheus.CounterVec
	httpDur       *prometheus.HistogramVec
	cache         *prometheus.CounterVec
}

// NewPrometheus registers the collectors on reg (prometheus.DefaultRegisterer
// when nil). Registering twice on the same registry reuses the existing collectors.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Prometheus{
		lookups: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enrich_lookup_duration_ms",
			Help:    "Product and user lookups by source",
			Buckets: latencyBuckets,
		}, []string{"entity", "source"})),
		upstream: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enrich_upstream_duration_ms",
			Help:    "Calls through the resilience policy by outcome",
			Buckets: latencyBuckets,
		}, []string{"entity", "outcome"})),
		breakerState: register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enrich_breaker_state",
			Help: "1 for the current breaker state of each upstream",
		}, []string{"entity", "state"})),
		invalidations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrich_invalidations_total",
			Help: "Change events handled by the invalidation subscriber",
		}, []string{"routing_key", "action", "ok"})),
		httpDur: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP requests by route and status",
			Buckets: latencyBuckets,
		}, []string{"method", "route", "status"})),
		cache: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrich_cache_requests_total",
			Help: "Cache lookups by result",
		}, []string{"entity", "result"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := are.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", are.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return c
}

func (p *Prometheus) ObserveLookup(entity, source string, durMs float64) {
	p.lookups.WithLabelValues(entity, source).Observe(durMs)
}

func (p *Prometheus) ObserveUpstream(entity, outcome string, durMs float64) {
	p.upstream.WithLabelValues(entity, outcome).Observe(durMs)
}

var breakerStates = []string{"closed", "open", "half-open"}

func (p *Prometheus) ObserveBreaker(entity, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		p.breakerState.WithLabelValues(entity, s).Set(v)
	}
}

func (p *Prometheus) ObserveInvalidation(routingKey, action string, ok bool) {
	p.invalidations.WithLabelValues(routingKey, action, strconv.FormatBool(ok)).Inc()
}

func (p *Prometheus) ObserveHTTP(method, route string, status int, durMs float64) {
	p.httpDur.WithLabelValues(method, route, strconv.Itoa(status)).Observe(durMs)
}

func (p *Prometheus) IncCacheHit(entity string) {
	p.cache.WithLabelValues(entity, "hit").Inc()
}

func (p *Prometheus) IncCacheMiss(entity string) {
	p.cache.WithLabelValues(entity, "miss").Inc()
}
