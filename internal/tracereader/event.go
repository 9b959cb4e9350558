// Package tracereader loads completed traces into memory for inspection.
// Traces are read through the external babeltrace2 converter; this package
// parses its textual event stream, one event per line.
package tracereader

import (
	"strings"
)

// Event is one trace event. Context fields recorded by the tracer (procname,
// vpid, vtid) are lifted into struct fields; everything else stays in Fields.
type Event struct {
	Name      string
	Timestamp int64 // ns since the epoch, tracer clock
	Procname  string
	VPID      int64
	VTID      int64
	Fields    map[string]any
}

// GetField looks up a field value. Dotted names descend into nested
// compound fields.
func GetField(e Event, name string) (any, bool) {
	if v, ok := e.Fields[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ".") {
		return nil, false
	}
	var cur any = e.Fields
	for _, part := range strings.Split(name, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// GetIntField returns a field as int64 when it holds any integer type.
func GetIntField(e Event, name string) (int64, bool) {
	v, ok := GetField(e, name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}

// GetStringField returns a field as a string when it holds one.
func GetStringField(e Event, name string) (string, bool) {
	v, ok := GetField(e, name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// EventNames lists the event name of every event, in order.
func EventNames(events []Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

// AreOrdered reports whether the first event was recorded strictly before
// the second.
func AreOrdered(first, second Event) bool {
	return first.Timestamp < second.Timestamp
}
