// Package ddl defines a small, backend-agnostic model for table DDL and
// renders CREATE TABLE statements from it. Backends supply a Dialect for
// identifier quoting, type mapping and existence guards.
package ddl

import (
	"fmt"
	"strings"
)

// Infer builds a TableDef for columns. types maps a column to its logical
// type; missing entries are text. Key columns are NOT NULL and form the
// primary key; the rest are nullable.
func Infer(fqn string, columns, keys []string, types map[string]string, d Dialect) (TableDef, error) {
	if strings.TrimSpace(fqn) == "" {
		return TableDef{}, fmt.Errorf("ddl: table name is required")
	}
	if len(columns) == 0 {
		return TableDef{}, fmt.Errorf("ddl: columns must not be empty")
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	defs := make([]ColumnDef, 0, len(columns))
	for _, name := range columns {
		defs = append(defs, ColumnDef{
			Name:       name,
			SQLType:    d.mapType(types[name]),
			Nullable:   !isKey[name],
			PrimaryKey: isKey[name],
		})
	}
	return TableDef{FQN: fqn, Columns: defs}, nil
}

// BuildCreateTableSQL renders a CREATE TABLE statement:
//
//	CREATE TABLE [IF NOT EXISTS] <fqn> (
//	  <col> <type> [NOT NULL] [DEFAULT <expr>],
//	  ...,
//	  PRIMARY KEY (<pk-cols>)
//	);
//
// FQN segments are quoted individually. Default is emitted as raw SQL.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.quote(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := QuoteFQN(fqn, d)
	head := "CREATE TABLE "
	if d.IfNotExists {
		head += "IF NOT EXISTS "
	}
	stmt := fmt.Sprintf("%s%s (\n  %s\n);", head, quoted, strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		stmt = d.Guard(quoted, stmt)
	}
	return stmt, nil
}

// QuoteFQN quotes each dot-separated segment of name with d, dropping empty
// segments.
func QuoteFQN(name string, d Dialect) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, d.quote(p))
		}
	}
	return strings.Join(out, ".")
}
