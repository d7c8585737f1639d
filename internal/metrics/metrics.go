package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Posts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotapost_posts_total",
		Help: "Scheduled post attempts by outcome",
	}, []string{"outcome"})
	Replies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotapost_replies_total",
		Help: "Reply attempts by outcome",
	}, []string{"outcome"})
	Skips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotapost_skips_total",
		Help: "Per-bot skips by stage",
	}, []string{"stage"})
	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rotapost_run_duration_seconds",
		Help:    "Worker pass duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotapost_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotapost_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rotapost_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(Posts, Replies, Skips, RunDuration, APIRetries, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g. ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveRunDuration records a worker pass duration.
func ObserveRunDuration(worker string, start time.Time) {
	RunDuration.WithLabelValues(worker).Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// IncCommandRun counts one CLI command invocation.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError counts one CLI command failure.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
