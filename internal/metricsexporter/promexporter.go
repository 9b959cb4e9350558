// Package metricsexporter publishes launch and tracing session metrics over
// a Prometheus endpoint.
package metricsexporter

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/logger"
)

var (
	sessionsStartedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracelaunch_sessions_started_total",
			Help: "Total number of tracing sessions started.",
		},
	)

	sessionsStoppedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracelaunch_sessions_stopped_total",
			Help: "Total number of tracing sessions stopped.",
		},
	)

	sessionSetupErrorsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracelaunch_session_setup_errors_total",
			Help: "Total number of tracing session setup failures.",
		},
	)

	processesLaunchedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracelaunch_processes_launched_total",
			Help: "Total number of processes launched.",
		},
		[]string{"process_name"},
	)

	processExitsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracelaunch_process_exits_total",
			Help: "Total number of process exits by status.",
		},
		[]string{"process_name", "status"},
	)

	processDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracelaunch_process_duration_seconds",
			Help:    "Wall-clock runtime of launched processes.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 20),
		},
		[]string{"process_name"},
	)

	activeProcessesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracelaunch_active_processes",
			Help: "Number of currently running launched processes.",
		},
	)

	eventsReadCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracelaunch_trace_events_read_total",
			Help: "Total number of trace events read back from sessions.",
		},
	)

	eventsSkippedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracelaunch_trace_events_skipped_total",
			Help: "Total number of trace output lines that could not be parsed.",
		},
	)

	traceReadDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracelaunch_trace_read_duration_seconds",
			Help:    "Time taken to convert and parse a trace directory.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 20),
		},
	)

	tracerCommandDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracelaunch_tracer_command_duration_seconds",
			Help:    "Time taken by tracer control commands.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
		[]string{"command"},
	)

	tracerCommandErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracelaunch_tracer_command_errors_total",
			Help: "Total number of failed tracer control commands.",
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(sessionsStartedCounter)
	prometheus.MustRegister(sessionsStoppedCounter)
	prometheus.MustRegister(sessionSetupErrorsCounter)
	prometheus.MustRegister(processesLaunchedCounter)
	prometheus.MustRegister(processExitsCounter)
	prometheus.MustRegister(processDurationHistogram)
	prometheus.MustRegister(activeProcessesGauge)
	prometheus.MustRegister(eventsReadCounter)
	prometheus.MustRegister(eventsSkippedCounter)
	prometheus.MustRegister(traceReadDurationHistogram)
	prometheus.MustRegister(tracerCommandDurationHistogram)
	prometheus.MustRegister(tracerCommandErrorsCounter)
}

func RecordSessionStarted() {
	sessionsStartedCounter.Inc()
}

func RecordSessionStopped() {
	sessionsStoppedCounter.Inc()
}

func RecordSessionSetupError() {
	sessionSetupErrorsCounter.Inc()
}

func RecordProcessLaunched(name string) {
	processesLaunchedCounter.WithLabelValues(name).Inc()
	activeProcessesGauge.Inc()
}

// RecordProcessExit classifies the exit code the same way shells do: 0 is
// success, 128+n means terminated by signal n.
func RecordProcessExit(name string, exitCode int, duration time.Duration) {
	status := "error"
	switch {
	case exitCode == 0:
		status = "success"
	case exitCode > 128:
		status = "signaled"
	}
	processExitsCounter.WithLabelValues(name, status).Inc()
	processDurationHistogram.WithLabelValues(name).Observe(duration.Seconds())
	activeProcessesGauge.Dec()
}

func RecordEventsRead(count int) {
	eventsReadCounter.Add(float64(count))
}

func RecordEventSkipped() {
	eventsSkippedCounter.Inc()
}

func RecordTraceReadDuration(duration time.Duration) {
	traceReadDurationHistogram.Observe(duration.Seconds())
}

func RecordTracerCommand(command string, duration time.Duration, err error) {
	tracerCommandDurationHistogram.WithLabelValues(command).Observe(duration.Seconds())
	if err != nil {
		tracerCommandErrorsCounter.WithLabelValues(command).Inc()
	}
}

var (
	limiter        = rate.NewLimiter(rate.Every(time.Second/time.Duration(config.RateLimitPerSec)), config.RateLimitBurst)
	maxRequestSize = int64(config.MaxRequestSize)
)

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxRequestSize {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type Server struct {
	server *http.Server
}

// StartServer serves /metrics in the background. Non-loopback addresses are
// rejected unless explicitly allowed.
func StartServer() *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", securityHeadersMiddleware(rateLimitMiddleware(promhttp.Handler())))

	addr := config.GetMetricsAddress()

	if host, _, err := net.SplitHostPort(addr); err == nil {
		if ip := net.ParseIP(host); ip != nil && !ip.IsLoopback() {
			if !config.AllowNonLoopbackMetrics() {
				logger.Warn("Rejecting non-loopback metrics address, falling back to default",
					zap.String("requested_addr", addr),
					zap.String("fallback", fmt.Sprintf("%s:%d", config.DefaultMetricsHost, config.DefaultMetricsPort)))
				addr = fmt.Sprintf("%s:%d", config.DefaultMetricsHost, config.DefaultMetricsPort)
			}
		}
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  config.DefaultMetricsReadTimeout,
		WriteTimeout: config.DefaultMetricsWriteTimeout,
	}

	srv := &Server{server: server}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in metrics server", zap.Any("panic", r))
			}
		}()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return srv
}

func (s *Server) Shutdown() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultMetricsShutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}
