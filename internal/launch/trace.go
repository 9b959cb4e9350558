package launch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/launch/substitution"
	"github.com/tracelaunch/tracelaunch/internal/logger"
	"github.com/tracelaunch/tracelaunch/internal/lttng"
)

var (
	profileEventRegex   = regexp.MustCompile(config.ProfileEventPattern)
	memoryUSTEventRegex = regexp.MustCompile(config.MemoryUSTEventPattern)
)

// Session control indirection, swapped out in tests.
var (
	traceInit = lttng.Init
	traceFini = lttng.Fini
)

// Trace sets up a tracing session around the rest of the launch. It must
// come before any Process action so that preload libraries and the session
// itself are in place when the processes start.
//
// For event and context lists, a nil list means "use the defaults" while an
// empty non-nil list disables that domain entirely.
type Trace struct {
	SessionName     []substitution.Substitution
	AppendTimestamp bool
	BasePath        []substitution.Substitution
	EventsUST       [][]substitution.Substitution
	EventsKernel    [][]substitution.Substitution
	ContextFields   [][]substitution.Substitution
	ProfileFast     bool

	sessionName string
	traceDir    string
}

// TraceConfig builds a Trace from plain strings; each string may carry
// $(env ...) markers.
type TraceConfig struct {
	SessionName     string
	AppendTimestamp bool
	BasePath        string
	EventsUST       []string
	EventsKernel    []string
	ContextFields   []string
	ProfileFast     bool
}

// NewTrace parses the config's substitution markers. Unset list fields stay
// nil and resolve to the configured defaults at execute time.
func NewTrace(cfg TraceConfig) (*Trace, error) {
	if cfg.SessionName == "" {
		return nil, fmt.Errorf("trace action requires a session name")
	}
	sessionName, err := substitution.Parse(cfg.SessionName)
	if err != nil {
		return nil, fmt.Errorf("session name: %w", err)
	}
	t := &Trace{
		SessionName:     sessionName,
		AppendTimestamp: cfg.AppendTimestamp,
		ProfileFast:     cfg.ProfileFast,
	}
	if cfg.BasePath != "" {
		if t.BasePath, err = substitution.Parse(cfg.BasePath); err != nil {
			return nil, fmt.Errorf("base path: %w", err)
		}
	}
	if t.EventsUST, err = parseList(cfg.EventsUST, "events-ust"); err != nil {
		return nil, err
	}
	if t.EventsKernel, err = parseList(cfg.EventsKernel, "events-kernel"); err != nil {
		return nil, err
	}
	if t.ContextFields, err = parseList(cfg.ContextFields, "context-fields"); err != nil {
		return nil, err
	}
	return t, nil
}

func parseList(values []string, attr string) ([][]substitution.Substitution, error) {
	if values == nil {
		return nil, nil
	}
	out := make([][]substitution.Substitution, 0, len(values))
	for _, v := range values {
		subs, err := substitution.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", attr, err)
		}
		out = append(out, subs)
	}
	return out, nil
}

// Execute resolves all substitutions exactly once, starts the tracing
// session, registers its teardown, and wires preload libraries for
// profiling/memory instrumentation when matching events are enabled.
func (t *Trace) Execute(ctx context.Context, lctx *Context) error {
	sessionName, err := substitution.PerformAll(lctx.Substitution, t.SessionName)
	if err != nil {
		return fmt.Errorf("session name: %w", err)
	}
	if t.AppendTimestamp {
		sessionName = lttng.AppendTimestamp(sessionName)
	}
	t.sessionName = sessionName

	basePath := ""
	if t.BasePath != nil {
		if basePath, err = substitution.PerformAll(lctx.Substitution, t.BasePath); err != nil {
			return fmt.Errorf("base path: %w", err)
		}
	}

	eventsUST, err := performList(lctx, t.EventsUST, config.DefaultEventsUST)
	if err != nil {
		return fmt.Errorf("events-ust: %w", err)
	}
	eventsKernel, err := performList(lctx, t.EventsKernel, config.DefaultEventsKernel)
	if err != nil {
		return fmt.Errorf("events-kernel: %w", err)
	}
	contextFields, err := performList(lctx, t.ContextFields, config.DefaultContextFields)
	if err != nil {
		return fmt.Errorf("context-fields: %w", err)
	}

	// Preload env must be in place before any Process starts.
	for _, lib := range t.preloadLibraries(eventsUST) {
		action := &LdPreload{LibName: lib}
		if err := action.Execute(ctx, lctx); err != nil {
			return err
		}
	}

	sctx, endSession := lctx.Tracing.StartSession(ctx, sessionName)
	traceDir, err := traceInit(sctx, lttng.SessionConfig{
		SessionName:   sessionName,
		BasePath:      basePath,
		EventsUST:     eventsUST,
		EventsKernel:  eventsKernel,
		ContextFields: contextFields,
	})
	if err != nil {
		endSession(err)
		return err
	}
	t.traceDir = traceDir

	// The session span stays open until teardown so it covers the whole
	// recording window.
	lctx.RegisterShutdown(func(shutdownCtx context.Context) {
		logger.Debug("Finalizing tracing session", zap.String("session", sessionName))
		err := traceFini(shutdownCtx, sessionName)
		if err != nil {
			logger.Warn("Failed to finalize tracing session",
				zap.String("session", sessionName),
				zap.Error(err))
		}
		endSession(err)
	})

	for _, prefix := range providerPrefixes(eventsUST) {
		lctx.AddTraceProvider(prefix)
	}

	logger.Info("Writing tracing session", zap.String("trace_dir", traceDir))
	logger.Debug("Tracing session configuration",
		zap.String("session", sessionName),
		zap.Strings("events_ust", eventsUST),
		zap.Strings("events_kernel", eventsKernel),
		zap.Strings("context_fields", contextFields))
	return nil
}

// preloadLibraries selects LTTng-UST helper libraries implied by the enabled
// userspace events.
func (t *Trace) preloadLibraries(eventsUST []string) []string {
	var libs []string
	if HasProfilingEvents(eventsUST) {
		if t.ProfileFast {
			libs = append(libs, config.LibProfileFast)
		} else {
			libs = append(libs, config.LibProfileNormal)
		}
	}
	if HasUSTMemoryEvents(eventsUST) {
		libs = append(libs, config.LibMemoryUST)
	}
	return libs
}

// ResolvedSessionName returns the session name with substitutions and
// timestamp suffix applied; empty before Execute.
func (t *Trace) ResolvedSessionName() string { return t.sessionName }

// TraceDirectory returns the session output directory; empty before Execute.
func (t *Trace) TraceDirectory() string { return t.traceDir }

// HasProfilingEvents reports whether the UST event list enables function
// profiling instrumentation.
func HasProfilingEvents(eventsUST []string) bool {
	return anyEventMatches(profileEventRegex, eventsUST)
}

// HasUSTMemoryEvents reports whether the UST event list enables userspace
// memory instrumentation.
func HasUSTMemoryEvents(eventsUST []string) bool {
	return anyEventMatches(memoryUSTEventRegex, eventsUST)
}

func anyEventMatches(re *regexp.Regexp, events []string) bool {
	for _, e := range events {
		if re.MatchString(e) {
			return true
		}
	}
	return false
}

func performList(lctx *Context, list [][]substitution.Substitution, defaults []string) ([]string, error) {
	if list == nil {
		return defaults, nil
	}
	return substitution.PerformEach(lctx.Substitution, list)
}

// providerPrefixes extracts tracepoint provider names from event patterns:
// "ros2:rcl_publish" and "ros2:*" both yield "ros2". Patterns with
// wildcarded providers yield nothing.
func providerPrefixes(events []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range events {
		provider, _, found := strings.Cut(e, ":")
		if !found || provider == "" || strings.Contains(provider, "*") {
			continue
		}
		if !seen[provider] {
			seen[provider] = true
			out = append(out, provider)
		}
	}
	return out
}
