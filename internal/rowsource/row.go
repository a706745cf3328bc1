// Package rowsource streams rows from heterogeneous hospital price files.
// Resolvers see every source through the Row interface, so tabular and
// nested-JSON inputs share one extraction path.
package rowsource

// Row is one source row seen as a column lookup. Get returns the cell's
// trimmed string value and whether the column exists in the source at all;
// a present-but-blank cell returns ("", true).
type Row interface {
	Get(col string) (string, bool)
	Columns() []string
}

// NestedRow is implemented by JSON-backed rows, which additionally expose
// the raw nested value under a key for extraction rules that walk into
// price-detail objects.
type NestedRow interface {
	Row
	Detail(col string) (any, bool)
}

// Source streams rows until io.EOF.
type Source interface {
	Next() (Row, error)
	Close() error
}
