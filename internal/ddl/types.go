package ddl

// ColumnDef describes a single column. Name is unquoted; quoting happens at
// render time.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name (dotted form, e.g. "public.life_expectancy")
// and the ordered column list.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect adapts rendering to a SQL backend. The zero value renders plain,
// unquoted ANSI DDL.
type Dialect struct {
	// Quote quotes one identifier segment. Nil leaves identifiers as-is.
	Quote func(id string) string

	// MapType turns a logical type ("int", "float", "" for text) into a
	// column type.
	MapType func(kind string) string

	// IfNotExists emits CREATE TABLE IF NOT EXISTS.
	IfNotExists bool

	// Guard wraps the whole statement, for dialects without IF NOT EXISTS.
	// It receives the quoted table name.
	Guard func(quotedFQN, stmt string) string
}

func (d Dialect) quote(id string) string {
	if d.Quote == nil {
		return id
	}
	return d.Quote(id)
}

func (d Dialect) mapType(kind string) string {
	if d.MapType == nil {
		if kind == "" {
			return "TEXT"
		}
		return kind
	}
	return d.MapType(kind)
}
