package report

import (
	"strings"
	"testing"

	"github.com/tracelaunch/tracelaunch/internal/tracereader"
)

func testEvents() []tracereader.Event {
	return []tracereader.Event{
		{Name: "app:init", Timestamp: 1_000_000_000, Procname: "writer", VPID: 100},
		{Name: "app:publish", Timestamp: 2_000_000_000, Procname: "writer", VPID: 100},
		{Name: "app:publish", Timestamp: 3_000_000_000, Procname: "writer", VPID: 100},
		{Name: "app:receive", Timestamp: 4_000_000_000, Procname: "reader", VPID: 200},
	}
}

func TestGenerateSummarySection(t *testing.T) {
	report := GenerateSummarySection("mysession-20250101", testEvents())

	if !strings.Contains(report, "mysession-20250101") {
		t.Error("summary should contain the session name")
	}
	if !strings.Contains(report, "Total events: 4") {
		t.Errorf("wrong total events line:\n%s", report)
	}
	if !strings.Contains(report, "Distinct event types: 3") {
		t.Errorf("wrong distinct types line:\n%s", report)
	}
	if !strings.Contains(report, "Recording period:") {
		t.Error("summary should contain the recording period")
	}
	// 4 events over 3 seconds
	if !strings.Contains(report, "Events per second: 1.3") {
		t.Errorf("wrong event rate line:\n%s", report)
	}
}

func TestGenerateSummarySectionEmpty(t *testing.T) {
	report := GenerateSummarySection("empty", nil)

	if !strings.Contains(report, "Total events: 0") {
		t.Errorf("wrong total events line:\n%s", report)
	}
	if strings.Contains(report, "Recording period:") {
		t.Error("empty trace should not report a recording period")
	}
}

func TestGenerateEventCountSection(t *testing.T) {
	report := GenerateEventCountSection(testEvents())

	if !strings.Contains(report, "app:publish: 2") {
		t.Errorf("missing publish count:\n%s", report)
	}
	// most frequent event first
	if strings.Index(report, "app:publish") > strings.Index(report, "app:init") {
		t.Errorf("counts not sorted by frequency:\n%s", report)
	}
	if GenerateEventCountSection(nil) != "" {
		t.Error("empty trace should produce no event section")
	}
}

func TestGenerateProcessSection(t *testing.T) {
	report := GenerateProcessSection(testEvents())

	if !strings.Contains(report, "writer (pid 100): 3 events") {
		t.Errorf("missing writer line:\n%s", report)
	}
	if !strings.Contains(report, "reader (pid 200): 1 events") {
		t.Errorf("missing reader line:\n%s", report)
	}
}

func TestGenerateCoverageSection(t *testing.T) {
	tests := []struct {
		name    string
		enabled []string
		want    []string
		notWant []string
	}{
		{
			name:    "all covered",
			enabled: []string{"app:init", "app:publish", "app:receive"},
			want:    []string{"All enabled events recorded"},
		},
		{
			name:    "missing exact pattern",
			enabled: []string{"app:init", "app:publish", "app:receive", "app:shutdown"},
			want:    []string{"Missing: app:shutdown"},
		},
		{
			name:    "unexpected event",
			enabled: []string{"app:init", "app:publish"},
			want:    []string{"Unexpected: app:receive"},
		},
		{
			name:    "wildcard covers everything",
			enabled: []string{"app:*"},
			want:    []string{"All enabled events recorded"},
			notWant: []string{"Missing", "Unexpected"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := GenerateCoverageSection(tt.enabled, testEvents())
			for _, w := range tt.want {
				if !strings.Contains(report, w) {
					t.Errorf("report missing %q:\n%s", w, report)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(report, nw) {
					t.Errorf("report should not contain %q:\n%s", nw, report)
				}
			}
		})
	}
}

func TestGenerateCoverageSectionNoPatterns(t *testing.T) {
	if got := GenerateCoverageSection(nil, testEvents()); got != "" {
		t.Errorf("no enabled patterns should produce no section, got:\n%s", got)
	}
}

func TestMissingEvents(t *testing.T) {
	events := testEvents()

	missing := MissingEvents([]string{"app:init", "app:shutdown", "other:*"}, events)
	if len(missing) != 1 || missing[0] != "app:shutdown" {
		t.Errorf("MissingEvents = %v, want [app:shutdown]", missing)
	}
	if got := MissingEvents(nil, events); got != nil {
		t.Errorf("no patterns should yield nil, got %v", got)
	}
}

func TestGenerate(t *testing.T) {
	report := Generate("full-session", []string{"app:*"}, testEvents())

	for _, section := range []string{"Summary:", "Events:", "Processes:", "Coverage:"} {
		if !strings.Contains(report, section) {
			t.Errorf("full report missing section %q", section)
		}
	}
}
