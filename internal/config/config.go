package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultLogLevel          = "info"
	DefaultLTTngBin          = "lttng"
	DefaultBabeltraceBin     = "babeltrace2"
	DefaultMetricsHost       = "127.0.0.1"
	DefaultMetricsPort       = 3000
	DefaultTracingEnabled    = false
	DefaultTracingSampleRate = 1.0
	DefaultOTLPEndpoint      = "localhost:4318"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultCommandTimeout    = 30 * time.Second
	DefaultVersion           = "v0.3.0"
)

const (
	DefaultMetricsReadTimeout     = 5 * time.Second
	DefaultMetricsWriteTimeout    = 10 * time.Second
	DefaultMetricsShutdownTimeout = 5 * time.Second

	MaxRequestSize         = 1024 * 1024
	DefaultRateLimitPerSec = 10
	DefaultRateLimitBurst  = 20
)

const (
	// TASK_COMM_LEN - 1: the kernel truncates procname context values.
	ProcnameMaxLength = 15

	MaxSessionNameLength  = 200
	MaxEventPatternLength = 256
	MaxContextFieldLength = 64

	SessionTimestampFormat = "20060102150405"
)

// Profiling and userspace memory instrumentation libraries shipped with
// LTTng-UST, preloaded into traced processes when matching events are enabled.
const (
	LibProfileNormal = "liblttng-ust-cyg-profile.so"
	LibProfileFast   = "liblttng-ust-cyg-profile-fast.so"
	LibMemoryUST     = "liblttng-ust-libc-wrapper.so"

	ProfileEventPattern   = `^lttng_ust_cyg_profile.*:func_.*`
	MemoryUSTEventPattern = `^lttng_ust_libc:.*`
)

var (
	Version           = getEnvOrDefault("TRACELAUNCH_VERSION", DefaultVersion)
	LTTngBin          = getEnvOrDefault("TRACELAUNCH_LTTNG_BIN", DefaultLTTngBin)
	BabeltraceBin     = getEnvOrDefault("TRACELAUNCH_BABELTRACE_BIN", DefaultBabeltraceBin)
	MetricsHost       = getEnvOrDefault("TRACELAUNCH_METRICS_HOST", DefaultMetricsHost)
	MetricsPort       = getIntEnvOrDefault("TRACELAUNCH_METRICS_PORT", DefaultMetricsPort)
	TracingEnabled    = getEnvOrDefault("TRACELAUNCH_TRACING_ENABLED", "false") == "true"
	TracingSampleRate = getFloatEnvOrDefault("TRACELAUNCH_TRACING_SAMPLE_RATE", DefaultTracingSampleRate)
	OTLPEndpoint      = getEnvOrDefault("TRACELAUNCH_OTLP_ENDPOINT", DefaultOTLPEndpoint)
	ShutdownTimeout   = getDurationEnvOrDefault("TRACELAUNCH_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout)
	CommandTimeout    = getDurationEnvOrDefault("TRACELAUNCH_COMMAND_TIMEOUT", DefaultCommandTimeout)
	KeepTraces        = getEnvOrDefault("TRACELAUNCH_KEEP_TRACES", "false") == "true"
	RateLimitPerSec   = getIntEnvOrDefault("TRACELAUNCH_RATE_LIMIT_PER_SEC", DefaultRateLimitPerSec)
	RateLimitBurst    = getIntEnvOrDefault("TRACELAUNCH_RATE_LIMIT_BURST", DefaultRateLimitBurst)
)

// DefaultEventsUST is the default set of userspace events to enable: all
// events from the middleware instrumentation provider plus its lifecycle
// tracepoints. Wildcards are passed through to the tracer as-is.
var DefaultEventsUST = []string{
	"ros2:*",
}

// DefaultEventsKernel mirrors the kernel event set useful for correlating
// middleware activity with scheduling and I/O.
var DefaultEventsKernel = []string{
	"block_rq_complete",
	"block_rq_insert",
	"block_rq_issue",
	"irq_handler_entry",
	"irq_handler_exit",
	"kmem_mm_page_alloc",
	"kmem_mm_page_free",
	"power_cpu_frequency",
	"sched_process_exit",
	"sched_process_fork",
	"sched_process_free",
	"sched_switch",
	"sched_wakeup",
	"sched_wakeup_new",
	"sched_waking",
}

// DefaultContextFields are attached to every enabled channel so that trace
// events carry enough context to attribute them to launched processes.
var DefaultContextFields = []string{
	"procname",
	"vpid",
	"vtid",
}

// TracingDirectory returns the base directory for new tracing sessions:
// $TRACELAUNCH_TRACE_DIR if set, otherwise ~/.tracelaunch/tracing.
func TracingDirectory() string {
	if dir := os.Getenv("TRACELAUNCH_TRACE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tracelaunch", "tracing")
	}
	return filepath.Join(home, ".tracelaunch", "tracing")
}

func GetVersion() string {
	return Version
}

func GetMetricsAddress() string {
	addr := os.Getenv("TRACELAUNCH_METRICS_ADDR")
	if addr == "" {
		addr = MetricsHost + ":" + strconv.Itoa(MetricsPort)
	}
	return addr
}

func AllowNonLoopbackMetrics() bool {
	return os.Getenv("TRACELAUNCH_METRICS_INSECURE_ALLOW_ANY_ADDR") == "1"
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnvOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloatEnvOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDurationEnvOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
