// Package redactor hides secret values when launched process environments
// are logged.
package redactor

import (
	"regexp"
	"strings"
)

const placeholder = "***"

// Rule marks environment variables whose values must not reach logs.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

var defaultRules = []Rule{
	{Name: "token", Pattern: regexp.MustCompile(`(?i)token`)},
	{Name: "secret", Pattern: regexp.MustCompile(`(?i)secret`)},
	{Name: "password", Pattern: regexp.MustCompile(`(?i)(password|passwd|pwd)`)},
	{Name: "key", Pattern: regexp.MustCompile(`(?i)(^|_)(api_?)?key(_|$)`)},
	{Name: "credential", Pattern: regexp.MustCompile(`(?i)credential`)},
}

// RedactEnv returns a copy of KEY=VALUE pairs with values of secret-looking
// variables replaced. Pairs without '=' pass through unchanged.
func RedactEnv(pairs []string) []string {
	out := make([]string, len(pairs))
	for i, kv := range pairs {
		key, _, found := strings.Cut(kv, "=")
		if found && isSecretName(key) {
			out[i] = key + "=" + placeholder
			continue
		}
		out[i] = kv
	}
	return out
}

func isSecretName(name string) bool {
	for _, rule := range defaultRules {
		if rule.Pattern.MatchString(name) {
			return true
		}
	}
	return false
}
