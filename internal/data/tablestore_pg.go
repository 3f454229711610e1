package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/data/pgxutil"
	"github.com/target/inboxjobs/internal/domain/tabular"
	apperrors "github.com/target/inboxjobs/internal/errors"
)

// seqColumn orders rows by insertion; it is hidden from the header row.
const seqColumn = "row_seq"

// PGTableStore stores each table as a PostgreSQL table whose column names are the header row.
// All cells are TEXT; a bigserial row_seq column preserves insertion order.
type PGTableStore struct {
	DB *sql.DB
}

var _ core.TableStore = (*PGTableStore)(nil)

// NewPGTableStore constructs a PGTableStore.
func NewPGTableStore(db *sql.DB) *PGTableStore {
	return &PGTableStore{DB: db}
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

const headerQuery = `
	SELECT column_name
	FROM information_schema.columns
	WHERE table_schema = current_schema()
		AND table_name = $1
		AND column_name <> $2
	ORDER BY ordinal_position`

// Header reads the table's column names from the catalog.
func (s *PGTableStore) Header(ctx context.Context, table tabular.Table) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, headerQuery, string(table), seqColumn)
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", table, apperrors.MapDBError(err))
	}
	defer rows.Close()

	var header []string
	for rows.Next() {
		var col string
		if scanErr := rows.Scan(&col); scanErr != nil {
			return nil, fmt.Errorf("scan header %s: %w", table, scanErr)
		}
		header = append(header, col)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read header %s: %w", table, apperrors.MapDBError(err))
	}
	if len(header) == 0 {
		return nil, apperrors.Schemaf("table %q does not exist or has no columns", table)
	}
	return header, nil
}

// ListAll returns every row ordered by row_seq.
func (s *PGTableStore) ListAll(ctx context.Context, table tabular.Table) ([]tabular.Row, error) {
	header, err := s.Header(ctx, table)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // identifiers come from the catalog and are quoted
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		quoteColumns(header), quoteIdent(string(table)), quoteIdent(seqColumn))
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []tabular.Row
	for rows.Next() {
		cells := make([]sql.NullString, len(header))
		dest := make([]any, len(header))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if scanErr := rows.Scan(dest...); scanErr != nil {
			return nil, fmt.Errorf("scan %s: %w", table, scanErr)
		}
		row := make(tabular.Row, len(header))
		for i, col := range header {
			row[col] = cells[i].String
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, apperrors.MapDBError(err))
	}
	return out, nil
}

// AppendRows inserts rows inside one transaction.
func (s *PGTableStore) AppendRows(ctx context.Context, table tabular.Table, rows []tabular.Row) error {
	if len(rows) == 0 {
		return nil
	}
	header, err := s.Header(ctx, table)
	if err != nil {
		return err
	}
	if err = tabular.RequireRowColumns(table, header, rows...); err != nil {
		return err
	}

	//nolint:gosec // identifiers come from the catalog and are quoted
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(string(table)), quoteColumns(header), placeholders(1, len(header)))

	err = pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		stmt, prepErr := tx.PrepareContext(ctx, insert)
		if prepErr != nil {
			return prepErr
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, execErr := stmt.ExecContext(ctx, cellArgs(tabular.Project(header, row))...); execErr != nil {
				return execErr
			}
		}
		return nil
	}})
	if err != nil {
		return fmt.Errorf("append %s: %w", table, apperrors.MapDBError(err))
	}
	return nil
}

// UpsertRow updates the row matching key in place, inserting it when no row matches.
// Both statements run in one transaction so the row is never observed half-written.
func (s *PGTableStore) UpsertRow(ctx context.Context, table tabular.Table, key, row tabular.Row) error {
	if len(key) == 0 {
		return errors.New("upsert requires a key")
	}
	header, err := s.Header(ctx, table)
	if err != nil {
		return err
	}
	if err = tabular.RequireRowColumns(table, header, key, row); err != nil {
		return err
	}

	keyCols := sortedColumns(key)
	setCols := make([]string, 0, len(row))
	for _, col := range sortedColumns(row) {
		if _, isKey := key[col]; !isKey {
			setCols = append(setCols, col)
		}
	}

	// A concurrent insert of the same key trips the unique index; the retry then updates.
	err = pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{Retries: 1, Fn: func(tx *sql.Tx) error {
		if len(setCols) > 0 {
			update, args := buildUpdate(table, updateSpec{set: setCols, key: keyCols, row: row, keyRow: key})
			res, execErr := tx.ExecContext(ctx, update, args...)
			if execErr != nil {
				return execErr
			}
			if n, _ := res.RowsAffected(); n > 0 {
				return nil
			}
		} else {
			exists, existsErr := rowExists(ctx, tx, table, keyCols, key)
			if existsErr != nil || exists {
				return existsErr
			}
		}

		insertCols := append(slices.Clone(keyCols), setCols...)
		merged := tabular.Row{}
		for col, v := range row {
			merged[col] = v
		}
		for col, v := range key {
			merged[col] = v
		}
		//nolint:gosec // identifiers come from the catalog and are quoted
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(string(table)), quoteColumns(insertCols), placeholders(1, len(insertCols)))
		_, execErr := tx.ExecContext(ctx, insert, cellArgs(tabular.Project(insertCols, merged))...)
		return execErr
	}})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, apperrors.MapDBError(err))
	}
	return nil
}

// UpdateRows runs one UPDATE of row's columns filtered on every key column.
func (s *PGTableStore) UpdateRows(ctx context.Context, table tabular.Table, key, row tabular.Row) (int, error) {
	if len(key) == 0 || len(row) == 0 {
		return 0, errors.New("update requires a key and at least one column")
	}
	header, err := s.Header(ctx, table)
	if err != nil {
		return 0, err
	}
	if err = tabular.RequireRowColumns(table, header, key, row); err != nil {
		return 0, err
	}
	update, args := buildUpdate(table, updateSpec{
		set: sortedColumns(row), key: sortedColumns(key), row: row, keyRow: key,
	})
	res, err := s.DB.ExecContext(ctx, update, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return int(n), nil
}

type updateSpec struct {
	set    []string
	key    []string
	row    tabular.Row
	keyRow tabular.Row
}

func buildUpdate(table tabular.Table, spec updateSpec) (string, []any) {
	assignments := make([]string, len(spec.set))
	args := make([]any, 0, len(spec.set)+len(spec.key))
	for i, col := range spec.set {
		assignments[i] = fmt.Sprintf("%s = $%d", quoteIdent(col), i+1)
		args = append(args, spec.row[col])
	}
	conds := make([]string, len(spec.key))
	for i, col := range spec.key {
		conds[i] = fmt.Sprintf("%s = $%d", quoteIdent(col), len(spec.set)+i+1)
		args = append(args, spec.keyRow[col])
	}
	//nolint:gosec // identifiers come from the catalog and are quoted
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		quoteIdent(string(table)), strings.Join(assignments, ", "), strings.Join(conds, " AND "))
	return query, args
}

func rowExists(ctx context.Context, tx *sql.Tx, table tabular.Table, keyCols []string, key tabular.Row) (bool, error) {
	conds := make([]string, len(keyCols))
	args := make([]any, len(keyCols))
	for i, col := range keyCols {
		conds[i] = fmt.Sprintf("%s = $%d", quoteIdent(col), i+1)
		args[i] = key[col]
	}
	//nolint:gosec // identifiers come from the catalog and are quoted
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)",
		quoteIdent(string(table)), strings.Join(conds, " AND "))
	var exists bool
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func sortedColumns(row tabular.Row) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	return cols
}

func placeholders(start, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ph, ", ")
}

func cellArgs(cells []string) []any {
	args := make([]any, len(cells))
	for i, c := range cells {
		args[i] = c
	}
	return args
}
