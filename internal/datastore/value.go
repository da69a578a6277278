package datastore

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies which scalar a Value holds. The set mirrors SQLite's storage classes.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single tagged scalar stored in a Record. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Null returns the NULL value
func Null() Value { return Value{} }

// Int returns an INTEGER value
func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// Real returns a REAL value
func Real(f float64) Value { return Value{kind: KindReal, f: f} }

// Text returns a TEXT value
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Blob returns a BLOB value. The slice is not copied.
func Blob(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBlob, b: b}
}

// ValueOf converts a Go or driver value into a Value.
// Booleans become 0/1 integers. time.Time becomes RFC3339Nano text; that case
// serves struct input such as cmdutil.StructToRecord, since SQLiteStore reads
// columns without a declared type and never receives time values from the driver.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return uintValue(v)
	case float32:
		return Real(float64(v)), nil
	case float64:
		return Real(v), nil
	case bool:
		if v {
			return Int(1), nil
		}
		return Int(0), nil
	case string:
		return Text(v), nil
	case []byte:
		return Blob(v), nil
	case time.Time:
		return Text(v.Format(time.RFC3339Nano)), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return Real(f), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// Kind reports the storage class of v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer payload and whether v is an INTEGER
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInteger }

// Float64 returns the real payload and whether v is a REAL
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindReal }

// Text returns the text payload and whether v is TEXT
func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

// Bytes returns the blob payload and whether v is a BLOB
func (v Value) Bytes() ([]byte, bool) { return v.b, v.kind == KindBlob }

// Any returns the value in the form database/sql binds as a parameter.
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindReal:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	case KindBlob:
		return bytes.Equal(v.b, o.b)
	default:
		return true
	}
}

// String renders v for display. NULL renders as "NULL" and blobs as hex.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBlob:
		return fmt.Sprintf("x'%x'", v.b)
	default:
		return "NULL"
	}
}

// blobJSON is the Datasette encoding of binary values.
type blobJSON struct {
	Base64  bool   `json:"$base64"`
	Encoded string `json:"encoded"`
}

// MarshalJSON encodes blobs as {"$base64": true, "encoded": "..."} and everything else natively.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindReal:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("cannot encode %v as JSON", v.f)
		}
		b, err := json.Marshal(v.f)
		if err != nil {
			return nil, err
		}
		// Keep a decimal point so decoders see a real, not an integer
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, ".0"...)
		}
		return b, nil
	case KindText:
		return json.Marshal(v.s)
	case KindBlob:
		return json.Marshal(blobJSON{Base64: true, Encoded: base64.StdEncoding.EncodeToString(v.b)})
	default:
		return []byte("null"), nil
	}
}

// valueFromJSON converts a cell decoded with json.Decoder.UseNumber.
func valueFromJSON(x any) (Value, error) {
	if m, ok := x.(map[string]any); ok {
		if flag, _ := m["$base64"].(bool); flag {
			encoded, _ := m["encoded"].(string)
			b, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return Value{}, fmt.Errorf("invalid base64 blob: %w", err)
			}
			return Blob(b), nil
		}
		return Value{}, fmt.Errorf("unsupported JSON object value")
	}
	return ValueOf(x)
}
