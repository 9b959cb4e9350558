// Package report renders a plain-text summary of a recorded trace: what was
// captured, by which processes, and how the recorded events compare to the
// event patterns that were enabled.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tracelaunch/tracelaunch/internal/tracereader"
)

func sectionHeader(name string) string {
	return fmt.Sprintf("%s:\n", name)
}

// GenerateSummarySection reports event totals and the recorded time span.
func GenerateSummarySection(sessionName string, events []tracereader.Event) string {
	var report string
	report += fmt.Sprintf("=== Trace Report: %s ===\n\n", sessionName)
	report += "Summary:\n"
	report += fmt.Sprintf("  Total events: %d\n", len(events))
	report += fmt.Sprintf("  Distinct event types: %d\n", len(countByName(events)))
	if len(events) > 0 {
		first := time.Unix(0, events[0].Timestamp)
		last := time.Unix(0, events[len(events)-1].Timestamp)
		span := last.Sub(first)
		report += fmt.Sprintf("  Recording period: %s to %s (%v)\n",
			first.Format("15:04:05.000"), last.Format("15:04:05.000"), span)
		if span > 0 {
			report += fmt.Sprintf("  Events per second: %.1f\n", float64(len(events))/span.Seconds())
		}
	}
	report += "\n"
	return report
}

// GenerateEventCountSection lists each recorded event type with its count,
// most frequent first.
func GenerateEventCountSection(events []tracereader.Event) string {
	counts := countByName(events)
	if len(counts) == 0 {
		return ""
	}

	var report string
	report += sectionHeader("Events")
	for _, nc := range sortedCounts(counts) {
		report += fmt.Sprintf("  %s: %d\n", nc.name, nc.count)
	}
	report += "\n"
	return report
}

// GenerateProcessSection lists the processes that emitted events, with their
// pid and event count.
func GenerateProcessSection(events []tracereader.Event) string {
	type procKey struct {
		name string
		vpid int64
	}
	counts := make(map[procKey]int)
	for _, e := range events {
		if e.Procname == "" {
			continue
		}
		counts[procKey{e.Procname, e.VPID}]++
	}
	if len(counts) == 0 {
		return ""
	}

	keys := make([]procKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].vpid < keys[j].vpid
	})

	var report string
	report += sectionHeader("Processes")
	for _, k := range keys {
		report += fmt.Sprintf("  %s (pid %d): %d events\n", k.name, k.vpid, counts[k])
	}
	report += "\n"
	return report
}

// MissingEvents returns the exact (non-wildcard) patterns that were enabled
// but never recorded, sorted.
func MissingEvents(enabled []string, events []tracereader.Event) []string {
	recorded := countByName(events)
	var missing []string
	for _, pattern := range enabled {
		if strings.Contains(pattern, "*") {
			continue
		}
		if recorded[pattern] == 0 {
			missing = append(missing, pattern)
		}
	}
	sort.Strings(missing)
	return missing
}

// GenerateCoverageSection compares recorded event types to the enabled
// patterns. Exact patterns with no recorded events are reported as missing;
// recorded events matched by no pattern are reported as unexpected. Wildcard
// patterns match by prefix and are never reported missing.
func GenerateCoverageSection(enabled []string, events []tracereader.Event) string {
	if len(enabled) == 0 {
		return ""
	}
	recorded := countByName(events)
	missing := MissingEvents(enabled, events)

	var unexpected []string
	for name := range recorded {
		if !matchesAny(name, enabled) {
			unexpected = append(unexpected, name)
		}
	}
	sort.Strings(unexpected)

	if len(missing) == 0 && len(unexpected) == 0 {
		return "Coverage:\n  All enabled events recorded\n\n"
	}

	var report string
	report += sectionHeader("Coverage")
	for _, name := range missing {
		report += fmt.Sprintf("  Missing: %s (enabled but never recorded)\n", name)
	}
	for _, name := range unexpected {
		report += fmt.Sprintf("  Unexpected: %s (recorded but not enabled)\n", name)
	}
	report += "\n"
	return report
}

// Generate renders the full report for a trace.
func Generate(sessionName string, enabled []string, events []tracereader.Event) string {
	var report string
	report += GenerateSummarySection(sessionName, events)
	report += GenerateEventCountSection(events)
	report += GenerateProcessSection(events)
	report += GenerateCoverageSection(enabled, events)
	return report
}

type nameCount struct {
	name  string
	count int
}

func countByName(events []tracereader.Event) map[string]int {
	counts := make(map[string]int, len(events))
	for _, e := range events {
		counts[e.Name]++
	}
	return counts
}

func sortedCounts(counts map[string]int) []nameCount {
	out := make([]nameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, nameCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

// matchesAny reports whether the event name matches one of the patterns.
// A trailing "*" matches any suffix, mirroring the tracer's wildcard rules.
func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if idx := strings.IndexByte(pattern, '*'); idx >= 0 {
			if strings.HasPrefix(name, pattern[:idx]) {
				return true
			}
			continue
		}
		if name == pattern {
			return true
		}
	}
	return false
}
