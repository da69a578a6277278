package recordfile

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/dbupload/internal/datastore"
)

// Format names an output encoding for result sets
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, yaml or csv)", s)
	}
}

// Write encodes records to w. FormatTable is rendered by the tui package, not here.
func Write(w io.Writer, format Format, records []datastore.Record) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatYAML:
		return writeYAML(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	default:
		return fmt.Errorf("format %q cannot be written by recordfile", format)
	}
}

// WriteFile writes records to filePath, respecting the overwrite flag.
// Returns true if the file was written, false if it was skipped.
func WriteFile(filePath string, format Format, records []datastore.Record, overwrite bool) (bool, error) {
	if fileExists(filePath) && !overwrite {
		slog.Info("Output file already exists, skipping", "filename", filePath, "overwrite", overwrite)
		return false, nil
	}

	var buf bytes.Buffer
	if err := Write(&buf, format, records); err != nil {
		return false, err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	slog.Info("Writing output file", "filename", filePath, "format", format, "rows", len(records))
	if err := os.WriteFile(filePath, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("failed to write output file: %w", err)
	}
	return true, nil
}

func fileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func writeJSON(w io.Writer, records []datastore.Record) error {
	if records == nil {
		records = []datastore.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func writeYAML(w io.Writer, records []datastore.Record) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, r := range records {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range r.Fields() {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Column},
				valueNode(f.Value),
			)
		}
		seq.Content = append(seq.Content, m)
	}
	if len(seq.Content) == 0 {
		seq.Style = yaml.FlowStyle
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

func valueNode(v datastore.Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch v.Kind() {
	case datastore.KindInteger:
		n.Tag, n.Value = "!!int", v.String()
	case datastore.KindReal:
		f, _ := v.Float64()
		n.Tag, n.Value = "!!float", formatYAMLFloat(f)
	case datastore.KindText:
		n.Tag, n.Value = "!!str", v.String()
	case datastore.KindBlob:
		b, _ := v.Bytes()
		n.Tag, n.Value = "!!binary", base64.StdEncoding.EncodeToString(b)
	default:
		n.Tag, n.Value = "!!null", "null"
	}
	return n
}

// formatYAMLFloat keeps a decimal point so the value reads back as a float.
func formatYAMLFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// writeCSV writes a header of every column seen. NULL and missing cells are empty.
func writeCSV(w io.Writer, records []datastore.Record) error {
	columns := datastore.UnionColumns(records)
	cw := csv.NewWriter(w)
	if len(columns) > 0 {
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	row := make([]string, len(columns))
	for _, r := range records {
		for i, col := range columns {
			row[i] = ""
			if v, ok := r.Get(col); ok && !v.IsNull() {
				row[i] = v.String()
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
