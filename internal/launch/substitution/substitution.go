// Package substitution provides deferred string resolution for launch
// attributes. Values like session names or event lists may embed $(env VAR)
// markers that are resolved only when the launch actually executes.
package substitution

import (
	"fmt"
	"os"
	"strings"
)

// Context supplies the environment a substitution resolves against.
type Context struct {
	// LookupEnv returns the value of an environment variable and whether
	// it is set. Nil means the process environment.
	LookupEnv func(key string) (string, bool)
}

// DefaultContext resolves against the process environment.
func DefaultContext() *Context {
	return &Context{}
}

func (c *Context) lookupEnv(key string) (string, bool) {
	if c != nil && c.LookupEnv != nil {
		return c.LookupEnv(key)
	}
	return os.LookupEnv(key)
}

// Substitution is a single deferred string fragment.
type Substitution interface {
	// Perform resolves the fragment.
	Perform(ctx *Context) (string, error)
	// Describe returns a stable human-readable form for logging.
	Describe() string
}

// Text is a literal fragment.
type Text struct {
	Value string
}

func NewText(value string) Text { return Text{Value: value} }

func (t Text) Perform(*Context) (string, error) { return t.Value, nil }

func (t Text) Describe() string { return fmt.Sprintf("text(%q)", t.Value) }

// EnvVar resolves to the value of an environment variable, with an optional
// default when unset. Without a default, an unset variable is an error.
type EnvVar struct {
	Name       string
	Default    string
	HasDefault bool
}

func (e EnvVar) Perform(ctx *Context) (string, error) {
	if v, ok := ctx.lookupEnv(e.Name); ok {
		return v, nil
	}
	if e.HasDefault {
		return e.Default, nil
	}
	return "", fmt.Errorf("environment variable %q is not set", e.Name)
}

func (e EnvVar) Describe() string {
	if e.HasDefault {
		return fmt.Sprintf("env(%s %s)", e.Name, e.Default)
	}
	return fmt.Sprintf("env(%s)", e.Name)
}

// PerformAll resolves one argument: the concatenation of its fragments.
func PerformAll(ctx *Context, subs []Substitution) (string, error) {
	var b strings.Builder
	for _, s := range subs {
		v, err := s.Perform(ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// PerformEach resolves a whole argument list.
func PerformEach(ctx *Context, args [][]Substitution) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		v, err := PerformAll(ctx, arg)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Describe renders an argument list for logging.
func Describe(args [][]Substitution) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		frags := make([]string, 0, len(arg))
		for _, s := range arg {
			frags = append(frags, s.Describe())
		}
		parts = append(parts, strings.Join(frags, "+"))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
