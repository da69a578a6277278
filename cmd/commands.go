package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/dbupload/internal/cmdutil"
	"github.com/lepinkainen/dbupload/internal/config"
	"github.com/lepinkainen/dbupload/internal/datastore"
	"github.com/lepinkainen/dbupload/internal/recordfile"
	"github.com/lepinkainen/dbupload/internal/tui"
)

// CreateTableCmd represents the create-table command
type CreateTableCmd struct {
	Name    string   `arg:"" help:"Table name"`
	Schema  string   `short:"s" help:"YAML or JSON file mapping column names to definitions" type:"path"`
	Columns []string `short:"c" name:"column" help:"Column as name=definition, e.g. id='INTEGER PRIMARY KEY' (repeatable)" sep:"none"`
}

// UploadCmd represents the upload command
type UploadCmd struct {
	Table string `arg:"" help:"Target table"`
	Input string `short:"f" name:"file" help:"Path to a .json, .yaml, .yml or .csv file of records" type:"path" required:""`
}

// QueryCmd represents the query command
type QueryCmd struct {
	Table       string   `arg:"" help:"Table to read"`
	Where       []string `short:"w" help:"Equality filter as column=value; an empty value matches NULL (repeatable)" sep:"none"`
	Format      string   `help:"Output format: table, json, yaml or csv" default:"table" enum:"table,json,yaml,yml,csv"`
	Output      string   `short:"o" help:"Write results to this file instead of stdout" type:"path"`
	Overwrite   bool     `help:"Overwrite the output file if it exists"`
	Interactive bool     `short:"i" help:"Browse results in an interactive table"`
}

// DemoCmd represents the demo command
type DemoCmd struct{}

// Run methods for each command

func (c *CreateTableCmd) Run() error {
	var schema datastore.Schema
	if c.Schema != "" {
		loaded, err := recordfile.LoadSchema(c.Schema)
		if err != nil {
			return err
		}
		schema = append(schema, loaded...)
	}
	for _, arg := range c.Columns {
		schema = append(schema, parseColumn(arg))
	}

	// Check if required value is still missing
	if len(schema) == 0 {
		return fmt.Errorf("no columns given (provide via --schema file or --column flags)")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	return datastore.WithStore(store, func(s datastore.Store) error {
		if err := s.CreateTable(c.Name, schema); err != nil {
			return err
		}
		slog.Info("Table ready", "table", c.Name, "columns", len(schema))
		return nil
	})
}

// parseColumn splits "name=definition"; a bare name makes a typeless column.
func parseColumn(arg string) datastore.ColumnDef {
	name, def, _ := strings.Cut(arg, "=")
	return datastore.ColumnDef{Name: strings.TrimSpace(name), Definition: strings.TrimSpace(def)}
}

func (u *UploadCmd) Run() error {
	records, err := recordfile.LoadRecords(u.Input)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	return datastore.WithStore(store, func(s datastore.Store) error {
		n, err := s.UploadData(u.Table, records)
		if err != nil {
			return err
		}
		slog.Info("Upload complete", "table", u.Table, "rows", n, "file", u.Input)
		_, _ = fmt.Fprintf(stdout, "Uploaded %d rows to %s.\n", n, u.Table)
		return nil
	})
}

func (q *QueryCmd) Run() error {
	where, err := parseFilters(q.Where)
	if err != nil {
		return err
	}
	format, err := recordfile.ParseFormat(q.Format)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	var records []datastore.Record
	err = datastore.WithStore(store, func(s datastore.Store) error {
		records, err = s.QueryData(q.Table, where)
		return err
	})
	if err != nil {
		return err
	}
	slog.Debug("Query complete", "table", q.Table, "rows", len(records))

	switch {
	case q.Interactive:
		return browseResults(q.Table, records)
	case q.Output != "":
		if format == recordfile.FormatTable {
			format, err = formatFromPath(q.Output)
			if err != nil {
				return err
			}
		}
		_, err := recordfile.WriteFile(q.Output, format, records, q.Overwrite || config.OverwriteFiles)
		return err
	case format == recordfile.FormatTable:
		_, err := fmt.Fprintln(stdout, tui.RenderTable(records))
		return err
	default:
		return recordfile.Write(stdout, format, records)
	}
}

// parseFilters turns column=value pairs into an equality filter.
// Values are typed like CSV cells, so an empty value filters on NULL.
func parseFilters(args []string) (datastore.Record, error) {
	where := datastore.NewRecord()
	for _, arg := range args {
		col, value, ok := strings.Cut(arg, "=")
		if !ok {
			return datastore.Record{}, fmt.Errorf("invalid filter %q (want column=value)", arg)
		}
		where.Set(strings.TrimSpace(col), recordfile.InferValue(value))
	}
	return where, nil
}

func formatFromPath(path string) (recordfile.Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	format, err := recordfile.ParseFormat(ext)
	if err != nil || format == recordfile.FormatTable {
		return "", fmt.Errorf("cannot infer output format from %q; use --format json, yaml or csv", path)
	}
	return format, nil
}

type demoUser struct {
	ID    int64 `db:"id"`
	Name  string
	Email string
	Age   int
}

var demoSchema = datastore.Schema{
	{Name: "id", Definition: "INTEGER PRIMARY KEY"},
	{Name: "name", Definition: "TEXT NOT NULL"},
	{Name: "email", Definition: "TEXT"},
	{Name: "age", Definition: "INTEGER"},
}

var demoUsers = []demoUser{
	{ID: 1, Name: "Alice", Email: "alice@example.com", Age: 30},
	{ID: 2, Name: "Bob", Email: "bob@example.com", Age: 25},
	{ID: 3, Name: "Charlie", Email: "charlie@example.com", Age: 35},
}

func (d *DemoCmd) Run() error {
	records, err := cmdutil.StructsToRecords(demoUsers, cmdutil.StructToMapOptions{})
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	return datastore.WithStore(store, func(s datastore.Store) error {
		if err := s.CreateTable("users", demoSchema); err != nil {
			return err
		}
		n, err := s.UploadData("users", records)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Uploaded %d rows to the database.\n", n)

		rows, err := s.QueryData("users", datastore.Record{})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, "Data in the database:")
		_, err = fmt.Fprintln(stdout, tui.RenderTable(rows))
		return err
	})
}
