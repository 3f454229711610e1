package data

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/tabular"
)

// MemoryTableStore keeps tables in process memory. It backs tests and STORE_BACKEND=memory.
// Each table has an explicit header so missing-column behaviour matches the durable store.
type MemoryTableStore struct {
	mu      sync.Mutex
	headers map[tabular.Table][]string
	rows    map[tabular.Table][]tabular.Row
}

var _ core.TableStore = (*MemoryTableStore)(nil)

// NewMemoryTableStore creates a store whose tables use the standard layouts.
func NewMemoryTableStore() *MemoryTableStore {
	s := &MemoryTableStore{
		headers: map[tabular.Table][]string{},
		rows:    map[tabular.Table][]tabular.Row{},
	}
	for _, schema := range tabular.AllSchemas() {
		s.headers[schema.Table] = slices.Clone(schema.Columns)
	}
	return s
}

// SetHeader replaces a table's header row, dropping cells of removed columns.
func (s *MemoryTableStore) SetHeader(table tabular.Table, header []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[table] = slices.Clone(header)
	for _, row := range s.rows[table] {
		for col := range row {
			if !slices.Contains(header, col) {
				delete(row, col)
			}
		}
	}
}

// Header returns the table's header row.
func (s *MemoryTableStore) Header(_ context.Context, table tabular.Table) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.headers[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return slices.Clone(header), nil
}

// ListAll returns copies of every row in insertion order.
func (s *MemoryTableStore) ListAll(_ context.Context, table tabular.Table) ([]tabular.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headers[table]; !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	out := make([]tabular.Row, 0, len(s.rows[table]))
	for _, row := range s.rows[table] {
		out = append(out, maps.Clone(row))
	}
	return out, nil
}

// AppendRows appends all rows or none.
func (s *MemoryTableStore) AppendRows(_ context.Context, table tabular.Table, rows []tabular.Row) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.headers[table]
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	if err := tabular.RequireRowColumns(table, header, rows...); err != nil {
		return err
	}
	for _, row := range rows {
		s.rows[table] = append(s.rows[table], maps.Clone(row))
	}
	return nil
}

// UpsertRow overwrites the row's cells on the first row matching key, or appends row.
func (s *MemoryTableStore) UpsertRow(_ context.Context, table tabular.Table, key, row tabular.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.headers[table]
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	if err := tabular.RequireRowColumns(table, header, key, row); err != nil {
		return err
	}
	merged := tabular.Row{}
	maps.Copy(merged, row)
	maps.Copy(merged, key)
	for i := range s.rows[table] {
		if tabular.MatchesKey(s.rows[table][i], key) {
			maps.Copy(s.rows[table][i], merged)
			return nil
		}
	}
	s.rows[table] = append(s.rows[table], merged)
	return nil
}

// UpdateRows overwrites the given cells on every row matching key.
func (s *MemoryTableStore) UpdateRows(_ context.Context, table tabular.Table, key, row tabular.Row) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.headers[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	if err := tabular.RequireRowColumns(table, header, key, row); err != nil {
		return 0, err
	}
	n := 0
	for i := range s.rows[table] {
		if tabular.MatchesKey(s.rows[table][i], key) {
			maps.Copy(s.rows[table][i], row)
			n++
		}
	}
	return n, nil
}
