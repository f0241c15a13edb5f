// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/calfront/calfront/internal/exc"
	"github.com/calfront/calfront/internal/idl"
	"github.com/calfront/calfront/internal/symbols"
)

const (
	snapshotVersion = 1
	snapshotURI     = "snapshot"
)

// Snapshot encodes the flat symbols and diagnostics of every entry as a
// protobuf Struct. Trees and tokens are not part of a snapshot.
func (x *Index) Snapshot() ([]byte, error) {
	x.lock.RLock()
	entries := make([]any, 0, len(x.entries))
	for _, path := range x.pathsLocked() {
		entries = append(entries, encodeEntry(x.entries[path]))
	}
	x.lock.RUnlock()

	s, err := structpb.NewStruct(map[string]any{
		"version": snapshotVersion,
		"entries": entries,
	})
	if err != nil {
		return nil, exc.WrapUnknown(exc.Location{URI: snapshotURI}, err)
	}
	b, err := proto.Marshal(s)
	if err != nil {
		return nil, exc.WrapUnknown(exc.Location{URI: snapshotURI}, err)
	}
	return b, nil
}

// LoadSnapshot merges a snapshot into the index. Entries that are older than
// what the index already holds are skipped.
func (x *Index) LoadSnapshot(b []byte) error {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(b, s); err != nil {
		return exc.Wrap(exc.Location{URI: snapshotURI}, exc.CodeUnsupportedFileFormat, err)
	}
	m := s.AsMap()
	if v, _ := m["version"].(float64); int(v) != snapshotVersion {
		return exc.New(exc.Location{URI: snapshotURI}, exc.CodeUnsupportedFileFormat, fmt.Sprintf("unsupported snapshot version %v", m["version"]))
	}
	raw, _ := m["entries"].([]any)
	for _, r := range raw {
		em, ok := r.(map[string]any)
		if !ok {
			return exc.New(exc.Location{URI: snapshotURI}, exc.CodeUnsupportedFileFormat, "malformed snapshot entry")
		}
		entry, err := decodeEntry(em)
		if err != nil {
			return err
		}
		if err := x.put(entry); err != nil {
			x.logger.Debug("skipped snapshot entry", "path", entry.Path, "error", err)
		}
	}
	return nil
}

func encodeEntry(e *Entry) map[string]any {
	syms := make([]any, 0, len(e.Symbols))
	for _, s := range e.Symbols {
		syms = append(syms, map[string]any{
			"name":      s.Name,
			"kind":      s.Kind.String(),
			"detail":    s.Detail,
			"uri":       s.URI,
			"container": s.Container,
			"start":     encodeLocation(s.Span.Start),
			"end":       encodeLocation(s.Span.End),
		})
	}
	diags := make([]any, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		loc := d.Location()
		diags = append(diags, map[string]any{
			"code":     d.Code(),
			"message":  d.Message(),
			"uri":      loc.URI,
			"location": encodeLocation(loc.Location),
		})
	}
	return map[string]any{
		"path":        e.Path,
		"mod_time":    e.ModTime.UTC().Format(time.RFC3339Nano),
		"symbols":     syms,
		"diagnostics": diags,
	}
}

func encodeLocation(l idl.Location) []any {
	return []any{int64(l.Line), int64(l.Column), l.Offset}
}

func decodeEntry(m map[string]any) (*Entry, error) {
	path, _ := m["path"].(string)
	if path == "" {
		return nil, exc.New(exc.Location{URI: snapshotURI}, exc.CodeUnsupportedFileFormat, "snapshot entry without a path")
	}
	stamp, _ := m["mod_time"].(string)
	modTime, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, exc.Wrap(exc.Location{URI: path}, exc.CodeUnsupportedFileFormat, err)
	}
	e := &Entry{Path: path, ModTime: modTime}
	syms, _ := m["symbols"].([]any)
	for _, raw := range syms {
		sm, _ := raw.(map[string]any)
		e.Symbols = append(e.Symbols, &symbols.Symbol{
			Name:      str(sm, "name"),
			Kind:      symbols.ParseKind(str(sm, "kind")),
			Detail:    str(sm, "detail"),
			URI:       str(sm, "uri"),
			Container: str(sm, "container"),
			Span: idl.Span{
				Start: decodeLocation(sm["start"]),
				End:   decodeLocation(sm["end"]),
			},
		})
	}
	diags, _ := m["diagnostics"].([]any)
	for _, raw := range diags {
		dm, _ := raw.(map[string]any)
		e.Diagnostics = append(e.Diagnostics, exc.New(
			exc.Location{URI: str(dm, "uri"), Location: decodeLocation(dm["location"])},
			str(dm, "code"),
			str(dm, "message"),
		))
	}
	return e, nil
}

func decodeLocation(v any) idl.Location {
	parts, _ := v.([]any)
	if len(parts) != 3 {
		return idl.Location{}
	}
	line, _ := parts[0].(float64)
	column, _ := parts[1].(float64)
	offset, _ := parts[2].(float64)
	return idl.Location{Line: int32(line), Column: int32(column), Offset: int64(offset)}
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
