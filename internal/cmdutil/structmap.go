// Package cmdutil holds helpers shared by the CLI commands.
package cmdutil

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/lepinkainen/dbupload/internal/datastore"
)

// StructToMapOptions configures StructToMap and StructToRecord behavior.
type StructToMapOptions struct {
	OmitFields       map[string]bool
	KeyOverrides     map[string]string
	JoinStringSlices bool
}

// StructToMap converts a struct into a map keyed by snake_case field names.
// It supports optional field omission, key overrides, and joining string slices.
func StructToMap[T any](value T, opts StructToMapOptions) map[string]any {
	result := make(map[string]any)
	walkStruct(value, opts, func(key string, v any) {
		result[key] = v
	})
	return result
}

// StructToRecord converts a struct into a Record whose columns follow field declaration order.
// A `db:"name"` tag renames a column and `db:"-"` skips the field.
func StructToRecord[T any](value T, opts StructToMapOptions) (datastore.Record, error) {
	record := datastore.NewRecord()
	var firstErr error
	walkStruct(value, opts, func(key string, v any) {
		if firstErr != nil {
			return
		}
		val, err := datastore.ValueOf(v)
		if err != nil {
			firstErr = fmt.Errorf("field %q: %w", key, err)
			return
		}
		record.Set(key, val)
	})
	if firstErr != nil {
		return datastore.Record{}, firstErr
	}
	return record, nil
}

// StructsToRecords converts every item with StructToRecord
func StructsToRecords[T any](items []T, opts StructToMapOptions) ([]datastore.Record, error) {
	records := make([]datastore.Record, 0, len(items))
	for i, item := range items {
		record, err := StructToRecord(item, opts)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func walkStruct(value any, opts StructToMapOptions, emit func(string, any)) {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	appendStructFields(v, opts, emit)
}

func appendStructFields(v reflect.Value, opts StructToMapOptions, emit func(string, any)) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if opts.OmitFields != nil && opts.OmitFields[field.Name] {
			continue
		}

		value := v.Field(i)
		if field.Anonymous && value.Kind() == reflect.Struct {
			appendStructFields(value, opts, emit)
			continue
		}

		key := toSnakeCase(field.Name)
		if tag, ok := field.Tag.Lookup("db"); ok {
			if tag == "-" {
				continue
			}
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				key = name
			}
		}
		if override, ok := opts.KeyOverrides[field.Name]; ok {
			key = override
		}

		emit(key, normalizeValue(value, opts))
	}
}

func normalizeValue(value reflect.Value, opts StructToMapOptions) any {
	if !value.IsValid() {
		return nil
	}

	if value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}

	if opts.JoinStringSlices && value.Kind() == reflect.Slice && value.Type().Elem().Kind() == reflect.String {
		items := make([]string, value.Len())
		for i := 0; i < value.Len(); i++ {
			items[i] = value.Index(i).String()
		}
		return strings.Join(items, ",")
	}

	return value.Interface()
}

func toSnakeCase(input string) string {
	if input == "" {
		return ""
	}

	runes := []rune(input)
	var builder strings.Builder
	builder.Grow(len(runes) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				var next rune
				var nextNext rune
				if i+1 < len(runes) {
					next = runes[i+1]
				}
				if i+2 < len(runes) {
					nextNext = runes[i+2]
				}
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					builder.WriteRune('_')
				} else if unicode.IsUpper(prev) && next != 0 && unicode.IsLower(next) {
					if nextNext == 0 || !unicode.IsUpper(nextNext) {
						builder.WriteRune('_')
					}
				}
			}
			builder.WriteRune(unicode.ToLower(r))
			continue
		}

		builder.WriteRune(unicode.ToLower(r))
	}

	return builder.String()
}
