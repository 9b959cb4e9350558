// Package launch runs subprocesses under a launch description. It is glue
// over os/exec, not a launch framework: actions execute in order, processes
// inherit environment additions made by earlier actions, and shutdown
// handlers run in reverse order once every process has exited.
package launch

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tracelaunch/tracelaunch/internal/launch/substitution"
	"github.com/tracelaunch/tracelaunch/internal/tracing"
)

// Action is one step of a launch description.
type Action interface {
	Execute(ctx context.Context, lctx *Context) error
}

// ShutdownFunc runs during launch teardown.
type ShutdownFunc func(ctx context.Context)

// Description is an ordered list of actions to execute.
type Description struct {
	Actions []Action
}

// Context is the shared state of one launch run.
type Context struct {
	// Substitution resolves $(env ...) markers in action attributes.
	Substitution *substitution.Context

	// Tracing reports the launch lifecycle as spans: a session span around
	// the tracing session and one span per launched process. Nil leaves
	// span reporting disabled.
	Tracing *tracing.Manager

	mu           sync.Mutex
	envAdditions map[string]string
	processes    []*Process
	shutdown     []ShutdownFunc

	// traceProviders holds UST provider prefixes of active Trace actions,
	// used to warn about executables without matching tracepoints.
	traceProviders []string
}

// NewContext returns a Context resolving against the process environment.
func NewContext() *Context {
	return &Context{
		Substitution: substitution.DefaultContext(),
		envAdditions: make(map[string]string),
	}
}

// SetEnv sets an environment addition for subsequently started processes.
func (c *Context) SetEnv(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envAdditions[key] = value
}

// AppendEnv appends value to a separator-joined environment addition, e.g.
// LD_PRELOAD entries.
func (c *Context) AppendEnv(key, sep, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.envAdditions[key]; ok && prev != "" {
		c.envAdditions[key] = prev + sep + value
		return
	}
	c.envAdditions[key] = value
}

// Environ merges the process environment with launch additions. Additions
// override inherited values of the same name.
func (c *Context) Environ() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	env := os.Environ()
	if len(c.envAdditions) == 0 {
		return env
	}
	out := make([]string, 0, len(env)+len(c.envAdditions))
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := c.envAdditions[key]; !overridden {
			out = append(out, kv)
		}
	}
	keys := make([]string, 0, len(c.envAdditions))
	for k := range c.envAdditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+c.envAdditions[k])
	}
	return out
}

// EnvAdditions returns a copy of the launch-level environment additions.
func (c *Context) EnvAdditions() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.envAdditions))
	for k, v := range c.envAdditions {
		out[k] = v
	}
	return out
}

// RegisterShutdown adds a teardown handler. Handlers run in reverse
// registration order after all processes have exited.
func (c *Context) RegisterShutdown(fn ShutdownFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = append(c.shutdown, fn)
}

// AddTraceProvider records a UST provider prefix that an active tracing
// session expects launched executables to carry.
func (c *Context) AddTraceProvider(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traceProviders = append(c.traceProviders, prefix)
}

func (c *Context) addProcess(p *Process) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processes = append(c.processes, p)
}

// Processes returns the processes started so far.
func (c *Context) Processes() []*Process {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Process(nil), c.processes...)
}

func (c *Context) traceProviderPrefixes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.traceProviders...)
}

func (c *Context) runShutdown(ctx context.Context) {
	c.mu.Lock()
	handlers := append([]ShutdownFunc(nil), c.shutdown...)
	c.shutdown = nil
	c.mu.Unlock()
	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i](ctx)
	}
}
