// Package ust detects statically defined tracepoints in executables by
// parsing ELF .note.stapsdt sections. It is used to warn when a process is
// launched under a userspace tracing session but carries no tracepoints,
// which would otherwise surface only as an empty trace.
package ust

import (
	"debug/elf"
	"errors"
	"fmt"
	"strings"
)

const ntStapSDT = 3

// Tracepoint is one statically defined tracepoint found in a binary.
type Tracepoint struct {
	Provider string
	Name     string
	Address  uint64
	// Semaphore is nonzero for semaphore-guarded probes.
	Semaphore uint64
}

func (t Tracepoint) String() string {
	return t.Provider + ":" + t.Name
}

// ScanExecutable returns the tracepoints embedded in the given binary.
// A binary without a .note.stapsdt section yields (nil, nil). A file that is
// not ELF at all (e.g. a script) also yields (nil, nil): scripts commonly
// front instrumented binaries and must not fail the scan.
func ScanExecutable(path string) ([]Tracepoint, error) {
	f, err := elf.Open(path)
	if err != nil {
		var fmtErr *elf.FormatError
		if errors.As(err, &fmtErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("ust: open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	section := f.Section(".note.stapsdt")
	if section == nil {
		return nil, nil
	}
	data, err := section.Data()
	if err != nil {
		return nil, fmt.Errorf("ust: read .note.stapsdt of %q: %w", path, err)
	}

	return parseNotes(data, f.ByteOrder), nil
}

// parseNotes walks the ELF note entries. Each stapsdt descriptor is
// pc(8) base(8) semaphore(8) provider\0name\0argdesc\0.
func parseNotes(data []byte, order elfByteOrder) []Tracepoint {
	var points []Tracepoint
	offset := 0
	for offset+12 <= len(data) {
		nameLen := int(order.Uint32(data[offset:]))
		descLen := int(order.Uint32(data[offset+4:]))
		noteType := order.Uint32(data[offset+8:])
		offset += 12

		namePad := align4(nameLen)
		descPad := align4(descLen)
		if offset+namePad+descPad > len(data) {
			break
		}

		rawName := data[offset : offset+nameLen]
		if nameLen > 0 && rawName[nameLen-1] == 0 {
			rawName = rawName[:nameLen-1]
		}
		offset += namePad

		desc := data[offset : offset+descLen]
		offset += descPad

		if noteType != ntStapSDT || string(rawName) != "stapsdt" || len(desc) < 24 {
			continue
		}

		strs := desc[24:]
		provider, rest, ok := cstring(strs)
		if !ok {
			continue
		}
		name, _, ok := cstring(rest)
		if !ok {
			continue
		}

		points = append(points, Tracepoint{
			Provider:  provider,
			Name:      name,
			Address:   order.Uint64(desc[0:]),
			Semaphore: order.Uint64(desc[16:]),
		})
	}
	return points
}

// elfByteOrder is the subset of binary.ByteOrder the note parser needs.
type elfByteOrder interface {
	Uint32([]byte) uint32
	Uint64([]byte) uint64
}

// HasProvider reports whether any tracepoint belongs to a provider matching
// the given prefix. LTTng-UST providers use the tracepoint provider name
// directly (e.g. "ros2", "lttng_ust_tracef").
func HasProvider(points []Tracepoint, providerPrefix string) bool {
	for _, p := range points {
		if strings.HasPrefix(p.Provider, providerPrefix) {
			return true
		}
	}
	return false
}

// Providers returns the distinct provider names, in first-seen order.
func Providers(points []Tracepoint) []string {
	seen := make(map[string]bool, len(points))
	var out []string
	for _, p := range points {
		if !seen[p.Provider] {
			seen[p.Provider] = true
			out = append(out, p.Provider)
		}
	}
	return out
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func cstring(b []byte) (string, []byte, bool) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), b[i+1:], true
		}
	}
	return "", nil, false
}
