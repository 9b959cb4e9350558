package tracetest

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelaunch/tracelaunch/internal/tracereader"
)

// AssertEventsSet checks that the trace contains exactly the given event
// names, ignoring multiplicity and order.
func (f *Fixture) AssertEventsSet(eventNames []string) {
	f.t.Helper()
	require.ElementsMatch(f.t, uniqueStrings(eventNames), uniqueStrings(f.eventNames),
		"wrong set of events in trace")
}

// AssertProcessNamesExist checks that every name appears as a procname in
// the trace, after the kernel's 15-character truncation.
func (f *Fixture) AssertProcessNamesExist(names ...string) {
	f.t.Helper()
	procnames := make(map[string]bool, len(f.events))
	for _, e := range f.events {
		procnames[e.Procname] = true
	}
	for _, name := range names {
		require.True(f.t, procnames[trimProcname(name)],
			"process name %q not found in trace procnames", name)
	}
}

// AssertValidHandle checks that each named field holds a nonzero integer
// handle (a pointer recorded by the instrumentation).
func (f *Fixture) AssertValidHandle(e tracereader.Event, fieldNames ...string) {
	f.t.Helper()
	for _, name := range fieldNames {
		value, ok := tracereader.GetIntField(e, name)
		require.True(f.t, ok, "handle field %q missing or not an integer on %s", name, e.Name)
		require.Greater(f.t, value, int64(0), "invalid handle value for %q", name)
	}
}

// AssertValidQueueDepth checks that the queue depth field holds a positive
// integer.
func (f *Fixture) AssertValidQueueDepth(e tracereader.Event, fieldName string) {
	f.t.Helper()
	if fieldName == "" {
		fieldName = "queue_depth"
	}
	depth, ok := tracereader.GetIntField(e, fieldName)
	require.True(f.t, ok, "queue depth field %q missing or not an integer", fieldName)
	require.Greater(f.t, depth, int64(0), "invalid queue depth")
}

// AssertStringFieldNotEmpty checks that a string field exists and is
// non-empty.
func (f *Fixture) AssertStringFieldNotEmpty(e tracereader.Event, fieldName string) {
	f.t.Helper()
	value, ok := tracereader.GetStringField(e, fieldName)
	require.True(f.t, ok, "string field %q missing on %s", fieldName, e.Name)
	require.NotEmpty(f.t, value, "empty string field %q", fieldName)
}

// AssertEventAfterTimestamp checks that the event was recorded strictly
// after the given nanosecond timestamp.
func (f *Fixture) AssertEventAfterTimestamp(e tracereader.Event, timestamp int64) {
	f.t.Helper()
	require.Greater(f.t, e.Timestamp, timestamp,
		"event %s not after timestamp", e.Name)
}

// AssertEventOrder checks that the given events were recorded in strictly
// increasing timestamp order.
func (f *Fixture) AssertEventOrder(events ...tracereader.Event) {
	f.t.Helper()
	require.GreaterOrEqual(f.t, len(events), 2, "event order needs at least two events")
	for i := 0; i+1 < len(events); i++ {
		require.True(f.t, tracereader.AreOrdered(events[i], events[i+1]),
			"event %s (at %d) not before %s (at %d)",
			events[i].Name, events[i].Timestamp, events[i+1].Name, events[i+1].Timestamp)
	}
}

// AssertMatchingField checks that some later event carries the same value
// for the given field as the initial event. When matchingEventName is
// non-empty only events with that name are considered; when events is nil
// the whole trace is searched.
func (f *Fixture) AssertMatchingField(
	initial tracereader.Event,
	fieldName string,
	matchingEventName string,
	events []tracereader.Event,
) {
	f.t.Helper()
	if events == nil {
		events = f.events
	}
	if matchingEventName != "" {
		events = f.EventsWithName(matchingEventName, events...)
	}
	value := f.Field(initial, fieldName)

	matches := f.EventsWithFieldValue(fieldName, value, events...)
	require.GreaterOrEqual(f.t, len(matches), 1,
		"no event carries %s = %v", fieldName, value)

	ordered := 0
	for _, m := range matches {
		if tracereader.AreOrdered(initial, m) {
			ordered++
		}
	}
	require.GreaterOrEqual(f.t, ordered, 1,
		"no matching %s event after the initial %s event", fieldName, initial.Name)
}

// AssertFieldEquals checks the value of a field.
func (f *Fixture) AssertFieldEquals(e tracereader.Event, fieldName string, value any) {
	f.t.Helper()
	actual := f.Field(e, fieldName)
	require.True(f.t, assert.ObjectsAreEqualValues(value, actual),
		"field %q = %v (%T), expected %v (%T)", fieldName, actual, actual, value, value)
}

// Field returns a field value, failing the test when it is missing.
func (f *Fixture) Field(e tracereader.Event, fieldName string) any {
	f.t.Helper()
	value, ok := tracereader.GetField(e, fieldName)
	if !ok {
		f.t.Fatalf("field %q not found on event %s (fields: %v)", fieldName, e.Name, fieldKeys(e))
	}
	return value
}

// Procname returns the recorded process name of the event.
func (f *Fixture) Procname(e tracereader.Event) string { return e.Procname }

// EventsWithName returns all events with the given name. With no explicit
// event list, the whole trace is searched.
func (f *Fixture) EventsWithName(name string, events ...tracereader.Event) []tracereader.Event {
	if events == nil {
		events = f.events
	}
	var out []tracereader.Event
	for _, e := range events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// EventsWithProcname returns all events recorded by the given process,
// applying procname truncation to the expected name.
func (f *Fixture) EventsWithProcname(procname string, events ...tracereader.Event) []tracereader.Event {
	if events == nil {
		events = f.events
	}
	want := trimProcname(procname)
	var out []tracereader.Event
	for _, e := range events {
		if e.Procname == want {
			out = append(out, e)
		}
	}
	return out
}

// EventsWithFieldValue returns all events whose field equals the value,
// comparing across numeric types.
func (f *Fixture) EventsWithFieldValue(fieldName string, value any, events ...tracereader.Event) []tracereader.Event {
	if events == nil {
		events = f.events
	}
	var out []tracereader.Event
	for _, e := range events {
		if v, ok := tracereader.GetField(e, fieldName); ok && assert.ObjectsAreEqualValues(value, v) {
			out = append(out, e)
		}
	}
	return out
}

// EventsWithFieldNotValue returns all events that carry the field with a
// different value.
func (f *Fixture) EventsWithFieldNotValue(fieldName string, value any, events ...tracereader.Event) []tracereader.Event {
	if events == nil {
		events = f.events
	}
	var out []tracereader.Event
	for _, e := range events {
		if v, ok := tracereader.GetField(e, fieldName); ok && !assert.ObjectsAreEqualValues(value, v) {
			out = append(out, e)
		}
	}
	return out
}

// AreEventsOrdered reports whether the first event was recorded strictly
// before the second, without failing the test.
func (f *Fixture) AreEventsOrdered(first, second tracereader.Event) bool {
	return tracereader.AreOrdered(first, second)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func fieldKeys(e tracereader.Event) []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return keys
}
