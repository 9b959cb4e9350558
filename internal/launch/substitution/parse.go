package substitution

import (
	"fmt"
	"strings"
)

// Parse splits a string with $(name arg...) markers into a fragment
// sequence. Literal text between markers becomes Text fragments. Marker
// nesting is not supported.
func Parse(s string) ([]Substitution, error) {
	var subs []Substitution
	rest := s
	for {
		start := strings.Index(rest, "$(")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], ")")
		if end < 0 {
			return nil, fmt.Errorf("unterminated substitution in %q", s)
		}
		end += start
		if start > 0 {
			subs = append(subs, Text{Value: rest[:start]})
		}
		inner := rest[start+2 : end]
		if strings.Contains(inner, "$(") {
			return nil, fmt.Errorf("nested substitutions are not supported: %q", s)
		}
		sub, err := build(inner)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
		rest = rest[end+1:]
	}
	if rest != "" {
		subs = append(subs, Text{Value: rest})
	}
	return subs, nil
}

func build(inner string) (Substitution, error) {
	fields := strings.Fields(inner)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty substitution $()")
	}
	name, args := fields[0], fields[1:]
	switch name {
	case "env":
		switch len(args) {
		case 1:
			return EnvVar{Name: args[0]}, nil
		case 2:
			return EnvVar{Name: args[0], Default: args[1], HasDefault: true}, nil
		default:
			return nil, fmt.Errorf("$(env) takes 1 or 2 arguments, got %d", len(args))
		}
	case "optenv":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("$(optenv) takes 1 or 2 arguments, got %d", len(args))
		}
		def := ""
		if len(args) == 2 {
			def = args[1]
		}
		return EnvVar{Name: args[0], Default: def, HasDefault: true}, nil
	default:
		return nil, fmt.Errorf("unknown substitution %q (known: env, optenv)", name)
	}
}
