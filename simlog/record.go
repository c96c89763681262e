package simlog

import (
	"fmt"
	"math"
)

// MalformedError reports a field line that does not carry the field its
// position in the record requires.
type MalformedError struct {
	Line  int
	Label string
	Text  string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed record at line %d: expected field %q, got %q",
		e.Line, e.Label, e.Text)
}

// TruncatedError reports an input that ends in the middle of a record.
type TruncatedError struct {
	Line  int
	Label string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated record after line %d: missing field %q",
		e.Line, e.Label)
}

// Record is a set of fields read from the lines that follow a marker.
type Record struct {
	Marker Line
	Fields []Field
	Last   int
}

// ReadRecord consumes exactly one line per schema field from src. The lines
// are consumed unconditionally; a line that does not match its field is a
// *MalformedError.
func ReadRecord(src Source, marker Line, schema Schema) (Record, error) {
	rec := Record{
		Marker: marker,
		Fields: make([]Field, 0, len(schema)),
		Last:   marker.Num,
	}

	for _, spec := range schema {
		line, ok := src.Next()
		if !ok {
			if err := src.Err(); err != nil {
				return rec, fmt.Errorf("read record field %q: %w", spec.Label, err)
			}

			return rec, &TruncatedError{Line: rec.Last, Label: spec.Label}
		}

		rec.Last = line.Num

		f, ok := spec.Extract(line.Text)
		if !ok {
			return rec, &MalformedError{
				Line:  line.Num,
				Label: spec.Label,
				Text:  line.Text,
			}
		}

		f.Line = line.Num
		rec.Fields = append(rec.Fields, f)
	}

	return rec, nil
}

// Get returns the field with the given label.
func (r Record) Get(label string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Label == label {
			return f, true
		}
	}

	return Field{}, false
}

// Uint returns the numeric value of a field. A missing or unparsable field
// is reported as a *MalformedError.
func (r Record) Uint(label string) (uint64, error) {
	f, ok := r.Get(label)
	if !ok {
		return 0, &MalformedError{Line: r.Last, Label: label}
	}

	v, err := f.Uint()
	if err != nil {
		return 0, &MalformedError{Line: f.Line, Label: label, Text: f.Value}
	}

	return v, nil
}

// Int is Uint for small counters. A value that does not fit an int is
// reported as a *MalformedError.
func (r Record) Int(label string) (int, error) {
	v, err := r.Uint(label)
	if err != nil {
		return 0, err
	}

	if v > math.MaxInt {
		f, _ := r.Get(label)
		return 0, &MalformedError{Line: f.Line, Label: label, Text: f.Value}
	}

	return int(v), nil
}

// Raw returns the raw token of a field, or "" if it is absent.
func (r Record) Raw(label string) string {
	f, _ := r.Get(label)
	return f.Value
}
