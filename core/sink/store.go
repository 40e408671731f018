package sink

import "context"

// RowUpdate overwrites the data row at a zero-based position. Positions refer
// to the ordering the last ReadRows call returned.
type RowUpdate struct {
	Position int
	Row      []string
}

// Store is the table backend the reconciliation protocol runs against. The
// protocol does one ReadRows scan, then one batched UpdateRows and one batched
// AppendRows, then SortByDate; backends are free to make any of these cheap.
type Store interface {
	// EnsureHeader creates the table with the canonical header if it does
	// not exist yet. Idempotent.
	EnsureHeader(ctx context.Context) error

	// ReadRows returns all data rows (header excluded) in table order.
	ReadRows(ctx context.Context) ([][]string, error)

	// UpdateRows overwrites rows in place by position.
	UpdateRows(ctx context.Context, updates []RowUpdate) error

	// AppendRows adds new rows at the end of the table.
	AppendRows(ctx context.Context, rows [][]string) error

	// SortByDate stably sorts data rows ascending by the date column.
	SortByDate(ctx context.Context) error
}
