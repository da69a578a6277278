package datastore

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Field is one column/value pair used to build a Record.
type Field struct {
	Column string
	Value  Value
}

// Col builds a Field
func Col(column string, value Value) Field {
	return Field{Column: column, Value: value}
}

// Record maps column names to values, keeping the order columns were first set.
// Copies of a Record share storage; use Clone for an independent copy.
// The zero Record is empty and ready to use.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// NewRecord creates a Record from the given fields in order.
// A repeated column keeps its first position and takes the last value.
func NewRecord(fields ...Field) Record {
	r := Record{fields: orderedmap.New[string, Value]()}
	for _, f := range fields {
		r.fields.Set(f.Column, f.Value)
	}
	return r
}

// RecordFromMap converts a map of Go values into a Record with the given column order.
// Columns present in values but missing from order are an error.
func RecordFromMap(order []string, values map[string]any) (Record, error) {
	if len(order) != len(values) {
		return Record{}, fmt.Errorf("column order lists %d columns, map has %d", len(order), len(values))
	}
	r := NewRecord()
	for _, col := range order {
		raw, ok := values[col]
		if !ok {
			return Record{}, fmt.Errorf("column %q missing from values", col)
		}
		v, err := ValueOf(raw)
		if err != nil {
			return Record{}, fmt.Errorf("column %q: %w", col, err)
		}
		r.Set(col, v)
	}
	return r, nil
}

// Set assigns a value to column, appending the column if it is new.
func (r *Record) Set(column string, value Value) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, Value]()
	}
	r.fields.Set(column, value)
}

// Get returns the value stored for column
func (r Record) Get(column string) (Value, bool) {
	if r.fields == nil {
		return Value{}, false
	}
	return r.fields.Get(column)
}

// Len returns the number of columns
func (r Record) Len() int {
	if r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Columns returns the column names in order
func (r Record) Columns() []string {
	cols := make([]string, 0, r.Len())
	if r.fields == nil {
		return cols
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		cols = append(cols, pair.Key)
	}
	return cols
}

// Values returns the values in column order
func (r Record) Values() []Value {
	values := make([]Value, 0, r.Len())
	if r.fields == nil {
		return values
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		values = append(values, pair.Value)
	}
	return values
}

// Fields returns the column/value pairs in order
func (r Record) Fields() []Field {
	fields := make([]Field, 0, r.Len())
	if r.fields == nil {
		return fields
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, Field{Column: pair.Key, Value: pair.Value})
	}
	return fields
}

// Clone returns a Record with its own storage
func (r Record) Clone() Record {
	return NewRecord(r.Fields()...)
}

// Equal reports whether both records hold the same columns with equal values.
// Column order is not compared.
func (r Record) Equal(o Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for _, f := range r.Fields() {
		other, ok := o.Get(f.Column)
		if !ok || !f.Value.Equal(other) {
			return false
		}
	}
	return true
}

// args returns the bound parameters in column order.
func (r Record) args() []any {
	values := r.Values()
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v.Any()
	}
	return args
}

// MarshalJSON encodes the record as a JSON object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnionColumns returns every column used by records, in first-seen order.
func UnionColumns(records []Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for _, c := range r.Columns() {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}
