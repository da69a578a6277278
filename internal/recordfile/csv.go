package recordfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lepinkainen/dbupload/internal/datastore"
)

// loadCSV reads a CSV file whose header row names the columns.
func loadCSV(filename string) ([]datastore.Record, error) {
	csvFile, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = csvFile.Close() }()

	// File existence check
	if fi, err := csvFile.Stat(); err != nil || fi.Size() == 0 {
		return nil, fmt.Errorf("CSV file is empty or cannot be read")
	}

	reader := csv.NewReader(csvFile)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if seen[col] {
			return nil, fmt.Errorf("duplicate header column %q", col)
		}
		seen[col] = true
		header[i] = col
	}

	records := []datastore.Record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid record: %w", err)
		}

		record := datastore.NewRecord()
		for i, col := range header {
			record.Set(col, InferValue(row[i]))
		}
		records = append(records, record)
	}

	slog.Debug("Loaded CSV records", "file", filename, "rows", len(records), "columns", len(header))
	return records, nil
}

// InferValue types a text cell: empty is NULL, then integer, then finite real, otherwise text.
func InferValue(s string) datastore.Value {
	if s == "" {
		return datastore.Null()
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return datastore.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return datastore.Real(f)
	}
	return datastore.Text(s)
}
