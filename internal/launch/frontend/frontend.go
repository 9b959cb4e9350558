// Package frontend loads launch descriptions from YAML files. It is the
// file-based counterpart of building a launch.Description in code.
//
//	trace:
//	  session-name: session-test
//	  append-timestamp: true
//	  events-ust: "ros2:* lttng_ust_libc:*"
//	  events-kernel: ""            # empty string disables the domain
//	  context-fields: "procname vpid vtid"
//	  profile-fast: true
//	processes:
//	  - name: pub
//	    exec: test_publisher
//	    args: "--count 10"
//	    env:
//	      - PUB_TOPIC=the_topic
package frontend

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tracelaunch/tracelaunch/internal/launch"
	"github.com/tracelaunch/tracelaunch/internal/launch/substitution"
)

// Load reads a YAML launch file and builds its launch description. The trace
// block, when present, always becomes the first action so that session setup
// and preload environment precede every process.
func Load(path string) (*launch.Description, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read launch file %q: %w", path, err)
	}

	desc := &launch.Description{}

	if v.IsSet("trace") {
		trace, err := parseTrace(v)
		if err != nil {
			return nil, fmt.Errorf("launch file %q: %w", path, err)
		}
		desc.Actions = append(desc.Actions, trace)
	}

	processes, err := parseProcesses(v)
	if err != nil {
		return nil, fmt.Errorf("launch file %q: %w", path, err)
	}
	desc.Actions = append(desc.Actions, processes...)

	if len(desc.Actions) == 0 {
		return nil, fmt.Errorf("launch file %q declares no trace block and no processes", path)
	}
	return desc, nil
}

func parseTrace(v *viper.Viper) (*launch.Trace, error) {
	sessionName := v.GetString("trace.session-name")
	if sessionName == "" {
		return nil, fmt.Errorf("trace block requires session-name")
	}
	profileFast := true
	if v.IsSet("trace.profile-fast") {
		profileFast = v.GetBool("trace.profile-fast")
	}
	trace, err := launch.NewTrace(launch.TraceConfig{
		SessionName:     sessionName,
		AppendTimestamp: v.GetBool("trace.append-timestamp"),
		BasePath:        v.GetString("trace.base-path"),
		ProfileFast:     profileFast,
	})
	if err != nil {
		return nil, err
	}

	// List attributes come as a space-delimited string; an empty string is
	// an explicit empty list, which disables the domain instead of falling
	// back to the defaults.
	if trace.EventsUST, err = parseListAttr(v, "trace.events-ust"); err != nil {
		return nil, err
	}
	if trace.EventsKernel, err = parseListAttr(v, "trace.events-kernel"); err != nil {
		return nil, err
	}
	if trace.ContextFields, err = parseListAttr(v, "trace.context-fields"); err != nil {
		return nil, err
	}
	return trace, nil
}

func parseListAttr(v *viper.Viper, key string) ([][]substitution.Substitution, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	raw := v.GetString(key)
	if raw == "" {
		return [][]substitution.Substitution{}, nil
	}
	args, err := substitution.SplitCommandLine(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return args, nil
}

func parseProcesses(v *viper.Viper) ([]launch.Action, error) {
	raw := v.Get("processes")
	if raw == nil {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("processes must be a list")
	}

	subCtx := substitution.DefaultContext()
	actions := make([]launch.Action, 0, len(entries))
	for i, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("processes[%d] must be a mapping", i)
		}
		proc := &launch.Process{
			Name:       stringField(fields, "name"),
			Executable: stringField(fields, "exec"),
		}
		if proc.Executable == "" {
			return nil, fmt.Errorf("processes[%d] requires exec", i)
		}

		args, err := resolveArgs(subCtx, fields["args"])
		if err != nil {
			return nil, fmt.Errorf("processes[%d] args: %w", i, err)
		}
		proc.Args = args

		env, err := resolveEnv(subCtx, fields["env"])
		if err != nil {
			return nil, fmt.Errorf("processes[%d] env: %w", i, err)
		}
		proc.Env = env

		actions = append(actions, proc)
	}
	return actions, nil
}

// resolveArgs accepts either a YAML list of strings or a single
// space-delimited string; env markers are resolved at load time.
func resolveArgs(ctx *substitution.Context, raw any) ([]string, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		split, err := substitution.SplitCommandLine(val)
		if err != nil {
			return nil, err
		}
		return substitution.PerformEach(ctx, split)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argument %v is not a string", item)
			}
			subs, err := substitution.Parse(s)
			if err != nil {
				return nil, err
			}
			resolved, err := substitution.PerformAll(ctx, subs)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("args must be a string or a list of strings")
	}
}

// resolveEnv accepts a list of KEY=VALUE strings. A mapping would be the
// obvious shape, but the config loader folds map keys to lowercase, which
// silently breaks environment variable names.
func resolveEnv(ctx *substitution.Context, raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("env must be a list of KEY=VALUE strings")
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		s, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("env entry %v is not a string", entry)
		}
		key, value, found := strings.Cut(s, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("env entry %q is not KEY=VALUE", s)
		}
		subs, err := substitution.Parse(value)
		if err != nil {
			return nil, err
		}
		resolved, err := substitution.PerformAll(ctx, subs)
		if err != nil {
			return nil, err
		}
		out = append(out, key+"="+resolved)
	}
	return out, nil
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
