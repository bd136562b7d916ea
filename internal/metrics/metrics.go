package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "brandsim"

// Metrics holds the Prometheus collectors of the server.
type Metrics struct {
	// CompletionRequests counts completion calls by result (ok, error).
	CompletionRequests *prometheus.CounterVec
	// CompletionDuration records completion latency by prompt name.
	CompletionDuration *prometheus.HistogramVec
	// CompletionTokens counts tokens reported by the completion API by kind (prompt, completion).
	CompletionTokens *prometheus.CounterVec
	// PostsCreated counts persisted posts by origin (user, character).
	PostsCreated *prometheus.CounterVec
	// WorkflowFailures counts aborted post workflows by stage.
	WorkflowFailures *prometheus.CounterVec
	// FeedConnections is the number of open feed sockets.
	FeedConnections prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CompletionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Total number of completion API calls by result",
		}, []string{"result"}),
		CompletionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Completion API latency in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"prompt"}),
		CompletionTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Total number of tokens used by the completion API",
		}, []string{"kind"}),
		PostsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_created_total",
			Help:      "Total number of posts persisted by origin",
		}, []string{"origin"}),
		WorkflowFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_failures_total",
			Help:      "Total number of failed post workflows by stage",
		}, []string{"stage"}),
		FeedConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_connections",
			Help:      "Number of open post feed WebSocket connections",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveCompletion records one completion call.
func (m *Metrics) ObserveCompletion(prompt string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CompletionRequests.WithLabelValues(result).Inc()
	m.CompletionDuration.WithLabelValues(prompt).Observe(elapsed.Seconds())
}

// AddTokens records token usage reported by the completion API.
func (m *Metrics) AddTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.CompletionTokens.WithLabelValues("prompt").Add(float64(prompt))
	m.CompletionTokens.WithLabelValues("completion").Add(float64(completion))
}

// PostCreated counts n posts of the given origin.
func (m *Metrics) PostCreated(origin string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PostsCreated.WithLabelValues(origin).Add(float64(n))
}

// WorkflowFailed counts a workflow aborted at stage.
func (m *Metrics) WorkflowFailed(stage string) {
	if m == nil {
		return
	}
	m.WorkflowFailures.WithLabelValues(stage).Inc()
}

// FeedConnected adjusts the open feed socket gauge by delta.
func (m *Metrics) FeedConnected(delta int) {
	if m == nil {
		return
	}
	m.FeedConnections.Add(float64(delta))
}
