// Package recordfile loads schemas and records from files and writes result sets back out.
package recordfile

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/dbupload/internal/datastore"
)

// LoadSchema reads a table schema from a YAML or JSON mapping of column name to definition.
// Key order is the column order; a null definition makes a typeless column.
func LoadSchema(path string) (datastore.Schema, error) {
	if !isYAMLPath(path) {
		return nil, fmt.Errorf("unsupported schema file %q: expected .json, .yaml or .yml", path)
	}
	root, err := readYAML(path)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("schema file %q is empty", path)
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schema file %q: line %d: expected a mapping of column to definition", path, root.Line)
	}

	schema := make(datastore.Schema, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], resolveAlias(root.Content[i+1])
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("schema file %q: line %d: column name must be a scalar", path, key.Line)
		}
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("schema file %q: line %d: definition of %q must be a scalar", path, val.Line, key.Value)
		}
		def := val.Value
		if val.ShortTag() == "!!null" {
			def = ""
		}
		schema = append(schema, datastore.ColumnDef{Name: key.Value, Definition: def})
	}
	return schema, nil
}

// LoadRecords reads records from a .json, .yaml, .yml or .csv file.
// Structured files hold a sequence of mappings, or a mapping with a "rows" sequence.
func LoadRecords(path string) ([]datastore.Record, error) {
	switch {
	case isYAMLPath(path):
		return loadStructured(path)
	case strings.EqualFold(filepath.Ext(path), ".csv"):
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported record file %q: expected .json, .yaml, .yml or .csv", path)
	}
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// readYAML parses the first document of path. An empty file returns nil.
func readYAML(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	return resolveAlias(doc.Content[0]), nil
}

func loadStructured(path string) ([]datastore.Record, error) {
	root, err := readYAML(path)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return []datastore.Record{}, nil
	}

	if root.Kind == yaml.MappingNode {
		rows := mappingValue(root, "rows")
		if rows == nil {
			return nil, fmt.Errorf("%q: line %d: expected a sequence of records or a \"rows\" key", path, root.Line)
		}
		root = rows
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%q: line %d: expected a sequence of records", path, root.Line)
	}

	records := make([]datastore.Record, 0, len(root.Content))
	for i, item := range root.Content {
		record, err := nodeRecord(resolveAlias(item))
		if err != nil {
			return nil, fmt.Errorf("%q: record %d: %w", path, i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func nodeRecord(n *yaml.Node) (datastore.Record, error) {
	if n.Kind != yaml.MappingNode {
		return datastore.Record{}, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	record := datastore.NewRecord()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if key.Kind != yaml.ScalarNode {
			return datastore.Record{}, fmt.Errorf("line %d: column name must be a scalar", key.Line)
		}
		v, err := nodeValue(resolveAlias(n.Content[i+1]))
		if err != nil {
			return datastore.Record{}, fmt.Errorf("column %q: %w", key.Value, err)
		}
		record.Set(key.Value, v)
	}
	return record, nil
}

// nodeValue converts a scalar node using its resolved tag, so quoted numbers stay text.
func nodeValue(n *yaml.Node) (datastore.Value, error) {
	if n.Kind == yaml.MappingNode {
		return blobValue(n)
	}
	if n.Kind != yaml.ScalarNode {
		return datastore.Value{}, fmt.Errorf("line %d: nested values are not supported", n.Line)
	}

	switch n.ShortTag() {
	case "!!null":
		return datastore.Null(), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return datastore.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return datastore.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return datastore.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return datastore.Real(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return datastore.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return datastore.ValueOf(b)
	case "!!binary":
		return decodeBase64(n.Value, n.Line)
	default:
		return datastore.Text(n.Value), nil
	}
}

// blobValue accepts the {"$base64": true, "encoded": "..."} form written by the JSON encoder.
func blobValue(n *yaml.Node) (datastore.Value, error) {
	flag := mappingValue(n, "$base64")
	encoded := mappingValue(n, "encoded")
	if flag == nil || encoded == nil || flag.Value != "true" || len(n.Content) != 4 {
		return datastore.Value{}, fmt.Errorf("line %d: nested values are not supported", n.Line)
	}
	return decodeBase64(encoded.Value, encoded.Line)
}

func decodeBase64(s string, line int) (datastore.Value, error) {
	b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return datastore.Value{}, fmt.Errorf("line %d: invalid base64: %w", line, err)
	}
	return datastore.Blob(b), nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Kind == yaml.ScalarNode && n.Content[i].Value == key {
			return resolveAlias(n.Content[i+1])
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
