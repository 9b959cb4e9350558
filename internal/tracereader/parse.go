package tracereader

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLine decodes one babeltrace2 pretty-printed event line produced with
// --clock-seconds, e.g.:
//
//	[1700000000.000000123] (+0.000000042) host ros2:rcl_publish: { cpu_id = 0 }, { procname = "pub", vpid = 7, vtid = 7 }, { message = 0x5555, msg = "hi" }
//
// All brace groups are merged into one field map; well-known context fields
// are lifted into the Event struct.
func parseLine(line string) (Event, error) {
	var e Event

	if !strings.HasPrefix(line, "[") {
		return e, fmt.Errorf("no timestamp prefix")
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return e, fmt.Errorf("unterminated timestamp")
	}
	ts, err := parseClockSeconds(line[1:end])
	if err != nil {
		return e, err
	}
	e.Timestamp = ts
	rest := strings.TrimSpace(line[end+1:])

	// Optional delta "(+0.000000042)" or "(+?.?????????)".
	if strings.HasPrefix(rest, "(") {
		closeIdx := strings.IndexByte(rest, ')')
		if closeIdx < 0 {
			return e, fmt.Errorf("unterminated delta")
		}
		rest = strings.TrimSpace(rest[closeIdx+1:])
	}

	// "<host> <event_name>: { ... }" where the event name itself may carry
	// a provider colon; the name ends at the ": {" separator.
	sep := strings.Index(rest, ": {")
	if sep < 0 {
		return e, fmt.Errorf("no field section")
	}
	head := rest[:sep]
	if space := strings.IndexByte(head, ' '); space >= 0 {
		head = head[space+1:]
	}
	e.Name = strings.TrimSpace(head)
	if e.Name == "" {
		return e, fmt.Errorf("empty event name")
	}

	e.Fields = make(map[string]any)
	for _, group := range splitTopLevel(rest[sep+2:]) {
		group = strings.TrimSpace(group)
		if !strings.HasPrefix(group, "{") || !strings.HasSuffix(group, "}") {
			continue
		}
		parseFieldGroup(group[1:len(group)-1], e.Fields)
	}

	if v, ok := e.Fields["procname"].(string); ok {
		e.Procname = v
	}
	if n, ok := GetIntField(e, "vpid"); ok {
		e.VPID = n
	}
	if n, ok := GetIntField(e, "vtid"); ok {
		e.VTID = n
	}
	return e, nil
}

// parseClockSeconds converts "seconds.fraction" into nanoseconds.
func parseClockSeconds(s string) (int64, error) {
	secPart, fracPart, found := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}
	var frac int64
	if found {
		// Right-pad to nanosecond precision.
		for len(fracPart) < 9 {
			fracPart += "0"
		}
		if frac, err = strconv.ParseInt(fracPart[:9], 10, 64); err != nil {
			return 0, fmt.Errorf("bad timestamp fraction %q", s)
		}
	}
	return sec*1e9 + frac, nil
}

// parseFieldGroup decodes "name = value, name = value" into the field map.
func parseFieldGroup(s string, fields map[string]any) {
	for _, part := range splitTopLevel(s) {
		name, raw, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fields[name] = parseValue(strings.TrimSpace(raw))
	}
}

// parseValue types a single field value: quoted string, nested compound,
// array, integer (decimal or hex), float, or raw text for anything else.
func parseValue(raw string) any {
	switch {
	case raw == "":
		return ""
	case raw[0] == '"':
		if unq, err := strconv.Unquote(raw); err == nil {
			return unq
		}
		return strings.Trim(raw, `"`)
	case raw[0] == '{':
		nested := make(map[string]any)
		parseFieldGroup(strings.TrimSuffix(raw[1:], "}"), nested)
		return nested
	case raw[0] == '[':
		return parseArray(strings.TrimSuffix(raw[1:], "]"))
	}
	if n, err := strconv.ParseInt(raw, 0, 64); err == nil {
		return n
	}
	if n, err := strconv.ParseUint(raw, 0, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// parseArray decodes "[0] = a, [1] = b" element lists.
func parseArray(s string) []any {
	var out []any
	for _, part := range splitTopLevel(s) {
		part = strings.TrimSpace(part)
		if idx := strings.Index(part, "] = "); idx >= 0 && strings.HasPrefix(part, "[") {
			part = part[idx+4:]
		}
		if part == "" {
			continue
		}
		out = append(out, parseValue(part))
	}
	return out
}

// splitTopLevel splits on commas that are not inside quotes, braces,
// brackets, or parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote:
			if c == '\\' {
				i++
			} else if c == '"' {
				inQuote = false
			}
		case c == '"':
			inQuote = true
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts
}
