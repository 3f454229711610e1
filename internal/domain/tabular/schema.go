// Package tabular describes the fixed-header tables the scheduler persists into and
// the column checks every store implementation applies before writing.
package tabular

import (
	"slices"

	apperrors "github.com/target/inboxjobs/internal/errors"
)

// Table names one of the three persisted tables.
type Table string

const (
	// Jobs holds one row per job.
	Jobs Table = "jobs"
	// Results holds one row per finished-job outcome unit.
	Results Table = "results"
	// Aggregated holds the per-address rollup across jobs.
	Aggregated Table = "aggregated"
	// Accumulators holds the sender tallies of unfinished fetchSenders jobs.
	Accumulators Table = "accumulators"
)

// Row is a single table row addressed by column name. Cells are text; empty means unset.
type Row map[string]string

// Column names shared across tables.
const (
	ColJobID      = "Job ID"
	ColType       = "Type"
	ColSearch     = "Search"
	ColTarget     = "Target"
	ColQuery      = "Query"
	ColStatus     = "Status"
	ColProcessed  = "Processed"
	ColTotal      = "Total"
	ColPageToken  = "PageToken"
	ColStartedAt  = "StartedAt"
	ColUpdatedAt  = "UpdatedAt"
	ColError      = "Error"
	ColFinishedAt = "FinishedAt"
	ColAddress    = "Address"
	ColUnread     = "Unread"
	ColThreads    = "Threads"
	ColLastDate   = "LastDate"
	ColState      = "State"
)

// Schema lists a table's required columns and its primary key.
type Schema struct {
	Table   Table
	Columns []string
	Key     []string
}

// JobsSchema is the Jobs table layout.
var JobsSchema = Schema{ //nolint:gochecknoglobals // fixed table layout
	Table: Jobs,
	Columns: []string{
		ColJobID, ColType, ColSearch, ColTarget, ColQuery, ColStatus, ColProcessed, ColTotal,
		ColPageToken, ColStartedAt, ColUpdatedAt, ColError, ColFinishedAt,
	},
	Key: []string{ColJobID},
}

// ResultsSchema is the Results table layout.
var ResultsSchema = Schema{ //nolint:gochecknoglobals // fixed table layout
	Table: Results,
	Columns: []string{
		ColJobID, ColType, ColSearch, ColTarget, ColAddress, ColTotal, ColUnread, ColThreads,
		ColLastDate, ColFinishedAt,
	},
	Key: []string{ColJobID, ColAddress},
}

// AggregatedSchema is the Aggregated table layout.
var AggregatedSchema = Schema{ //nolint:gochecknoglobals // fixed table layout
	Table: Aggregated,
	Columns: []string{
		ColJobID, ColAddress, ColTotal, ColUnread, ColThreads, ColLastDate, ColUpdatedAt,
	},
	Key: []string{ColAddress},
}

// AccumulatorsSchema is the layout of the table carrying in-flight sender tallies when no
// Redis is configured. State is the JSON-encoded accumulator; empty means none.
var AccumulatorsSchema = Schema{ //nolint:gochecknoglobals // fixed table layout
	Table:   Accumulators,
	Columns: []string{ColJobID, ColState, ColUpdatedAt},
	Key:     []string{ColJobID},
}

// Schemas returns the layouts of the Jobs, Results and Aggregated tables in check order.
func Schemas() []Schema {
	return []Schema{JobsSchema, ResultsSchema, AggregatedSchema}
}

// AllSchemas returns every layout a store provisions, including scheduler state tables.
func AllSchemas() []Schema {
	return append(Schemas(), AccumulatorsSchema)
}

// SchemaFor returns the layout for table.
func SchemaFor(table Table) (Schema, bool) {
	for _, s := range AllSchemas() {
		if s.Table == table {
			return s, true
		}
	}
	return Schema{}, false
}

// RequireColumns fails with a schema error naming every required column absent from header.
func RequireColumns(table Table, header, required []string) error {
	var missing []string
	for _, col := range required {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return apperrors.SchemaMissing(string(table), missing)
	}
	return nil
}

// RequireRowColumns checks that every column the rows write exists in header.
func RequireRowColumns(table Table, header []string, rows ...Row) error {
	seen := map[string]struct{}{}
	var cols []string
	for _, row := range rows {
		for col := range row {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			cols = append(cols, col)
		}
	}
	slices.Sort(cols)
	return RequireColumns(table, header, cols)
}

// Project returns the row's cells ordered by header, filling absent columns with "".
func Project(header []string, row Row) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = row[col]
	}
	return out
}

// MatchesKey reports whether row carries the same values as key on every key column.
func MatchesKey(row, key Row) bool {
	if len(key) == 0 {
		return false
	}
	for col, v := range key {
		if row[col] != v {
			return false
		}
	}
	return true
}
