package simlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FieldKind is the encoding of a field value.
type FieldKind int

const (
	// Hex values are written as 0x followed by hexadecimal digits.
	Hex FieldKind = iota
	// Dec values are plain decimal integers.
	Dec
)

func (k FieldKind) String() string {
	switch k {
	case Hex:
		return "hex"
	case Dec:
		return "dec"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

func (k FieldKind) valuePattern() string {
	if k == Hex {
		return `0[xX][0-9a-fA-F]+`
	}

	return `\d+`
}

// Field is a labeled value extracted from a log line.
type Field struct {
	Label string
	Kind  FieldKind
	Value string // raw token, e.g. "0x1f" or "12"
	Line  int
}

// Uint parses the field value. Hex values wider than 64 bits fail.
func (f Field) Uint() (uint64, error) {
	if f.Kind == Hex {
		digits := f.Value[2:]
		return strconv.ParseUint(digits, 16, 64)
	}

	return strconv.ParseUint(f.Value, 10, 64)
}

// FieldSpec describes one expected field of a record.
type FieldSpec struct {
	Label string
	Kind  FieldKind

	re *regexp.Regexp
}

// HexField declares a hex-encoded field.
func HexField(label string) FieldSpec {
	return newFieldSpec(label, Hex)
}

// DecField declares a decimal field.
func DecField(label string) FieldSpec {
	return newFieldSpec(label, Dec)
}

func newFieldSpec(label string, kind FieldKind) FieldSpec {
	// The label must not be the tail of a longer identifier, so "len"
	// does not match inside "arQueueLen".
	pattern := `(?:^|[^A-Za-z0-9_])` + regexp.QuoteMeta(label) +
		`\s*:\s*(` + kind.valuePattern() + `)`

	return FieldSpec{
		Label: label,
		Kind:  kind,
		re:    regexp.MustCompile(pattern),
	}
}

// Extract finds the field in text.
func (s FieldSpec) Extract(text string) (Field, bool) {
	m := s.re.FindStringSubmatch(text)
	if m == nil {
		return Field{}, false
	}

	return Field{Label: s.Label, Kind: s.Kind, Value: m[1]}, true
}

// ExtractField finds `label: value` in text, tolerating whitespace around
// the colon.
func ExtractField(text, label string, kind FieldKind) (Field, bool) {
	return newFieldSpec(label, kind).Extract(text)
}

// Schema is the ordered list of field lines that follow a record marker.
type Schema []FieldSpec

// NewSchema builds a schema from field specs.
func NewSchema(fields ...FieldSpec) Schema {
	return Schema(fields)
}

// Labels returns the labels of the schema in order.
func (s Schema) Labels() []string {
	labels := make([]string, len(s))
	for i, f := range s {
		labels[i] = f.Label
	}

	return labels
}

func (s Schema) String() string {
	return strings.Join(s.Labels(), ", ")
}
