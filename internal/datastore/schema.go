package datastore

import (
	"fmt"
	"regexp"
	"strings"

	dberrors "github.com/lepinkainen/dbupload/internal/errors"
)

// identifierPattern matches names that are safe to use as table or column identifiers
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier checks that name is a plain SQL identifier.
// The returned error wraps errors.ErrInvalidIdentifier.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q must start with a letter or underscore and contain only letters, digits and underscores",
			dberrors.ErrInvalidIdentifier, name)
	}
	return nil
}

// validateRecordColumns checks the columns of one record. Names that differ only
// in case are rejected since SQLite would store just one of the values.
func validateRecordColumns(r Record) error {
	seen := make(map[string]bool, r.Len())
	for _, col := range r.Columns() {
		if err := ValidateIdentifier(col); err != nil {
			return err
		}
		key := strings.ToLower(col)
		if seen[key] {
			return fmt.Errorf("%w: duplicate column %q", dberrors.ErrInvalidIdentifier, col)
		}
		seen[key] = true
	}
	return nil
}

// quoteIdent double-quotes an identifier so keywords such as "order" stay usable as names
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) []string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return quoted
}

// ColumnDef is a column name and its literal SQL definition, e.g. "INTEGER PRIMARY KEY".
type ColumnDef struct {
	Name       string
	Definition string
}

// Schema is an ordered list of column definitions
type Schema []ColumnDef

// Columns returns the column names in declaration order
func (s Schema) Columns() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Validate checks the schema for the named table: at least one column,
// valid identifiers and no duplicate names. SQLite compares identifiers
// case-insensitively so duplicates are detected the same way.
func (s Schema) Validate(table string) error {
	if err := ValidateIdentifier(table); err != nil {
		return dberrors.NewSchemaError(table, "", "invalid table name", err)
	}
	if len(s) == 0 {
		return dberrors.NewSchemaError(table, "", "schema has no columns", nil)
	}

	seen := make(map[string]bool, len(s))
	for _, c := range s {
		if err := ValidateIdentifier(c.Name); err != nil {
			return dberrors.NewSchemaError(table, c.Name, "invalid column name", err)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return dberrors.NewSchemaError(table, c.Name, "duplicate column name", nil)
		}
		seen[key] = true
	}
	return nil
}

// createTableSQL renders CREATE TABLE IF NOT EXISTS for a validated schema.
// Definitions are passed through verbatim.
func createTableSQL(table string, s Schema) string {
	defs := make([]string, len(s))
	for i, c := range s {
		def := quoteIdent(c.Name)
		if d := strings.TrimSpace(c.Definition); d != "" {
			def += " " + d
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

// insertSQL renders a parameterized INSERT for the given columns.
// No columns produces an INSERT ... DEFAULT VALUES.
func insertSQL(table string, columns []string) string {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(table))
	}
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table),
		strings.Join(quoteIdents(columns), ", "),
		strings.Join(placeholders, ", "),
	)
}

// selectSQL renders a SELECT of columns in order. Each column is read as +"col",
// an expression with no declared type, so drivers return the stored value
// instead of parsing DATE, DATETIME or TIMESTAMP columns into time.Time.
func selectSQL(table string, columns []string) string {
	exprs := make([]string, len(columns))
	for i, col := range columns {
		q := quoteIdent(col)
		exprs[i] = "+" + q + " AS " + q
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), quoteIdent(table))
}

// whereSQL renders an equality filter. NULL filter values compare with IS NULL.
func whereSQL(where Record) (string, []any) {
	if where.Len() == 0 {
		return "", nil
	}
	clauses := make([]string, 0, where.Len())
	args := make([]any, 0, where.Len())
	for _, f := range where.Fields() {
		if f.Value.IsNull() {
			clauses = append(clauses, quoteIdent(f.Column)+" IS NULL")
			continue
		}
		clauses = append(clauses, quoteIdent(f.Column)+" = ?")
		args = append(args, f.Value.Any())
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
