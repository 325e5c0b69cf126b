// Package document parses and serializes the journal document format: an
// ordered YAML metadata header between --- delimiters, followed by a free-form
// body organized into "## "-titled sections.
//
// Parsing is tolerant of a missing header (the whole file is body) but strict
// once an opening delimiter is seen: an unterminated or non-mapping header is
// a ParseError, never silently treated as body.
package document

import (
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/skald/internal/apperr"
)

const delim = "---"

// Value is a single header field value: either a scalar or a list of scalars.
type Value struct {
	scalar string
	list   []string
	isList bool
}

// String returns a scalar Value.
func String(s string) Value { return Value{scalar: s} }

// List returns a list Value.
func List(items ...string) Value { return Value{list: items, isList: true} }

// IsList reports whether the value is list-shaped.
func (v Value) IsList() bool { return v.isList }

// Scalar returns the scalar text, or "" for a list value.
func (v Value) Scalar() string {
	if v.isList {
		return ""
	}
	return v.scalar
}

// Items returns the list items. A non-empty scalar is treated as a
// single-item list so that add-to-list mutations work on either shape.
func (v Value) Items() []string {
	if v.isList {
		return v.list
	}
	if v.scalar == "" {
		return nil
	}
	return []string{v.scalar}
}

// Equal reports value equality. Used by go-cmp in tests.
func (v Value) Equal(o Value) bool {
	if v.isList != o.isList {
		return false
	}
	if !v.isList {
		return v.scalar == o.scalar
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

// Field is one header entry. Order of fields is significant and preserved.
type Field struct {
	Key   string
	Value Value
}

// Header is the ordered metadata block at the top of a document.
type Header struct {
	Fields []Field
}

// Get returns the value for key.
func (h *Header) Get(key string) (Value, bool) {
	for _, f := range h.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Scalar returns the scalar text for key, or "" if absent or list-shaped.
func (h *Header) Scalar(key string) string {
	v, ok := h.Get(key)
	if !ok {
		return ""
	}
	return v.Scalar()
}

// Items returns the list items for key, or nil if absent.
func (h *Header) Items(key string) []string {
	v, ok := h.Get(key)
	if !ok {
		return nil
	}
	return v.Items()
}

// Set replaces the value for key in place, or appends a new field at the end.
func (h *Header) Set(key string, v Value) {
	for i, f := range h.Fields {
		if f.Key == key {
			h.Fields[i].Value = v
			return
		}
	}
	h.Fields = append(h.Fields, Field{Key: key, Value: v})
}

// AppendUnique adds item to the list field key, creating the field if absent.
// It reports whether the list changed; an already-present item is a no-op.
func (h *Header) AppendUnique(key, item string) bool {
	v, ok := h.Get(key)
	if !ok {
		h.Set(key, List(item))
		return true
	}
	items := v.Items()
	for _, it := range items {
		if it == item {
			return false
		}
	}
	h.Set(key, List(append(items, item)...))
	return true
}

// Document is one parsed journal file.
type Document struct {
	Header Header
	Body   string
}

// Parse splits raw file content into header and body. A file with no opening
// delimiter parses to an empty header and the full text as body.
func Parse(data []byte) (*Document, error) {
	text := string(data)
	lead := strings.TrimLeft(text, "\n")
	if lead != delim && !strings.HasPrefix(lead, delim+"\n") {
		return &Document{Body: text}, nil
	}

	rest := strings.TrimPrefix(lead, delim)
	rest = strings.TrimPrefix(rest, "\n")
	block, body, ok := splitAtCloser(rest)
	if !ok {
		return nil, &apperr.ParseError{Reason: "unterminated metadata header"}
	}

	h, err := parseHeader(block)
	if err != nil {
		return nil, err
	}
	return &Document{Header: h, Body: body}, nil
}

// splitAtCloser finds the first line consisting solely of the delimiter and
// splits s around it. The body keeps its content verbatim except for the
// single conventional blank line after the closing delimiter.
func splitAtCloser(s string) (block, body string, ok bool) {
	if s == delim || strings.HasPrefix(s, delim+"\n") {
		return "", strings.TrimPrefix(strings.TrimPrefix(s, delim), "\n"), true
	}
	for from := 0; ; {
		i := strings.Index(s[from:], "\n"+delim)
		if i < 0 {
			return "", "", false
		}
		i += from
		after := s[i+1+len(delim):]
		if after == "" {
			return s[:i+1], "", true
		}
		if strings.HasPrefix(after, "\n") {
			return s[:i+1], strings.TrimPrefix(after[1:], "\n"), true
		}
		from = i + 1
	}
}

// parseHeader decodes the YAML block into an ordered Header. The yaml.Node
// API is used instead of a map so that field order survives a round trip.
func parseHeader(block string) (Header, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return Header{}, &apperr.ParseError{Reason: "invalid header yaml", Err: err}
	}
	if len(doc.Content) == 0 {
		return Header{}, nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return Header{}, &apperr.ParseError{Reason: "header is not a key/value mapping"}
	}

	var h Header
	seen := make(map[string]struct{}, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return Header{}, &apperr.ParseError{Reason: "non-scalar header key"}
		}
		if _, dup := seen[k.Value]; dup {
			return Header{}, &apperr.ParseError{Reason: "duplicate header field " + strconv.Quote(k.Value)}
		}
		seen[k.Value] = struct{}{}

		switch v.Kind {
		case yaml.ScalarNode:
			h.Fields = append(h.Fields, Field{Key: k.Value, Value: String(v.Value)})
		case yaml.SequenceNode:
			items := make([]string, 0, len(v.Content))
			for _, item := range v.Content {
				if item.Kind != yaml.ScalarNode {
					return Header{}, &apperr.ParseError{
						Reason: "field " + strconv.Quote(k.Value) + ": list items must be scalars",
					}
				}
				items = append(items, item.Value)
			}
			h.Fields = append(h.Fields, Field{Key: k.Value, Value: List(items...)})
		default:
			return Header{}, &apperr.ParseError{
				Reason: "field " + strconv.Quote(k.Value) + ": value must be a scalar or a list",
			}
		}
	}
	return h, nil
}

// Serialize renders a header and body back to file content. List fields use
// the single-line bracketed form to keep headers compact and diff-friendly.
func Serialize(h Header, body string) []byte {
	if len(h.Fields) == 0 {
		return []byte(body)
	}
	var b strings.Builder
	b.WriteString(delim + "\n")
	for _, f := range h.Fields {
		b.WriteString(f.Key)
		b.WriteString(": ")
		if f.Value.IsList() {
			b.WriteString("[")
			for i, item := range f.Value.Items() {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(scalarLiteral(item))
			}
			b.WriteString("]")
		} else {
			b.WriteString(scalarLiteral(f.Value.Scalar()))
		}
		b.WriteString("\n")
	}
	b.WriteString(delim + "\n\n")
	b.WriteString(body)
	return []byte(b.String())
}

// Bytes serializes the document.
func (d *Document) Bytes() []byte { return Serialize(d.Header, d.Body) }

var plainScalarRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._/@-]*$`)

// scalarLiteral renders a scalar so that the YAML parser reads back the exact
// same string: plain where safe, double-quoted otherwise.
func scalarLiteral(s string) string {
	if plainScalarRe.MatchString(s) && !strings.HasSuffix(s, " ") && !yamlReserved(s) {
		return s
	}
	return strconv.Quote(s)
}

func yamlReserved(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "on", "off", "null", "~":
		return true
	}
	return false
}
