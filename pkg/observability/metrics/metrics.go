// Package metrics implements the observability hook interfaces with
// Prometheus collectors.
//
//	m, err := metrics.New(prometheus.DefaultRegisterer)
//	if err != nil { ... }
//	m.Install()
//	mux.Handle("/metrics", m.Handler())
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/observability"
)

const namespace = "depotview"

// Collector bundles the Prometheus metrics for every hook category.
type Collector struct {
	gatherer prometheus.Gatherer

	RecordsSkipped prometheus.Counter
	BuildDuration  prometheus.Histogram
	SceneBoxes     prometheus.Gauge
	SceneVersion   *prometheus.GaugeVec

	Fetches       *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	StaleFetches  *prometheus.CounterVec

	Transitions  *prometheus.CounterVec
	Picks        *prometheus.CounterVec
	PickDuration prometheus.Histogram
	ActionErrors *prometheus.CounterVec

	CacheOps *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPErrors   *prometheus.CounterVec
}

var (
	_ observability.SceneHooks       = (*Collector)(nil)
	_ observability.FetchHooks       = (*Collector)(nil)
	_ observability.InteractionHooks = (*Collector)(nil)
	_ observability.CacheHooks       = (*Collector)(nil)
	_ observability.HTTPHooks        = (*Collector)(nil)
)

// New registers the collectors against reg, defaulting to the global
// Prometheus registry when nil. Registering twice against the same registry
// reuses the existing collectors.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.RecordsSkipped, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "scene", Name: "records_skipped_total",
		Help: "Malformed location records left out of scene builds.",
	})); err != nil {
		return nil, err
	}
	if c.BuildDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "scene", Name: "build_duration_seconds",
		Help:    "Scene build latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
	})); err != nil {
		return nil, err
	}
	if c.SceneBoxes, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "scene", Name: "boxes",
		Help: "Number of boxes in the most recently built scene.",
	})); err != nil {
		return nil, err
	}
	if c.SceneVersion, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "scene", Name: "version",
		Help: "Version of the current scene graph per depot.",
	}, []string{"depot"})); err != nil {
		return nil, err
	}

	if c.Fetches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "fetch", Name: "requests_total",
		Help: "Data provider refreshes, labeled by depot and error code.",
	}, []string{"depot", "code"})); err != nil {
		return nil, err
	}
	if c.FetchDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "fetch", Name: "duration_seconds",
		Help:    "Data provider refresh latency in seconds.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})); err != nil {
		return nil, err
	}
	if c.StaleFetches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "fetch", Name: "stale_responses_total",
		Help: "Responses that completed after a newer refresh was issued.",
	}, []string{"depot"})); err != nil {
		return nil, err
	}

	if c.Transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "interaction", Name: "transitions_total",
		Help: "Interaction state changes.",
	}, []string{"from", "to", "event"})); err != nil {
		return nil, err
	}
	if c.Picks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "interaction", Name: "picks_total",
		Help: "Pick queries, labeled by whether a box was hit.",
	}, []string{"hit"})); err != nil {
		return nil, err
	}
	if c.PickDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "interaction", Name: "pick_duration_seconds",
		Help:    "Pick query latency in seconds.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})); err != nil {
		return nil, err
	}
	if c.ActionErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "interaction", Name: "action_errors_total",
		Help: "Failed menu action dispatches.",
	}, []string{"action", "code"})); err != nil {
		return nil, err
	}

	if c.CacheOps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cache", Name: "operations_total",
		Help: "Cache operations, labeled by key type and outcome.",
	}, []string{"key_type", "op"})); err != nil {
		return nil, err
	}

	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http_client", Name: "responses_total",
		Help: "Outgoing HTTP responses, labeled by method, host and status.",
	}, []string{"method", "host", "status"})); err != nil {
		return nil, err
	}
	if c.HTTPDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http_client", Name: "duration_seconds",
		Help:    "Outgoing HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "host"})); err != nil {
		return nil, err
	}
	if c.HTTPErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http_client", Name: "errors_total",
		Help: "Outgoing HTTP requests that failed without a response.",
	}, []string{"method", "host"})); err != nil {
		return nil, err
	}

	return c, nil
}

// Install registers c as every global observability hook.
func (c *Collector) Install() {
	observability.SetSceneHooks(c)
	observability.SetFetchHooks(c)
	observability.SetInteractionHooks(c)
	observability.SetCacheHooks(c)
	observability.SetHTTPHooks(c)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) OnRecordSkipped(context.Context, string, error) {
	c.RecordsSkipped.Inc()
}

func (c *Collector) OnBuild(_ context.Context, boxes, _ int, d time.Duration) {
	c.BuildDuration.Observe(d.Seconds())
	c.SceneBoxes.Set(float64(boxes))
}

func (c *Collector) OnSwap(_ context.Context, depot string, version uint64) {
	c.SceneVersion.WithLabelValues(depot).Set(float64(version))
}

func (c *Collector) OnFetchStart(context.Context, string, uint64) {}

func (c *Collector) OnFetchComplete(_ context.Context, depot string, _ uint64, _ int, d time.Duration, err error) {
	c.Fetches.WithLabelValues(depot, codeLabel(err)).Inc()
	c.FetchDuration.Observe(d.Seconds())
}

func (c *Collector) OnStaleResponse(_ context.Context, depot string, _, _ uint64) {
	c.StaleFetches.WithLabelValues(depot).Inc()
}

func (c *Collector) OnTransition(_ context.Context, from, to, event string) {
	c.Transitions.WithLabelValues(from, to, event).Inc()
}

func (c *Collector) OnPick(_ context.Context, hit bool, d time.Duration) {
	c.Picks.WithLabelValues(strconv.FormatBool(hit)).Inc()
	c.PickDuration.Observe(d.Seconds())
}

func (c *Collector) OnActionError(_ context.Context, action string, err error) {
	c.ActionErrors.WithLabelValues(action, codeLabel(err)).Inc()
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, _ int) {
	c.CacheOps.WithLabelValues(keyType, "set").Inc()
}

func (c *Collector) OnRequest(context.Context, string, string, string) {}

func (c *Collector) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, host, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (c *Collector) OnError(_ context.Context, method, host, _ string, _ error) {
	c.HTTPErrors.WithLabelValues(method, host).Inc()
}

func codeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	return string(errors.ErrCodeInternal)
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
