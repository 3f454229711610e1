package data

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/domain/tabular"
)

// Cells are text. Timestamps are RFC 3339 in UTC, integers are base-10 and
// an empty cell means the field is unset.

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(col, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil //nolint:nilnil // empty cell is an unset timestamp
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", col, s, err)
	}
	t = t.UTC()
	return &t, nil
}

func parseInt(col, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err == nil {
		return n, nil
	}
	// Spreadsheet exports write whole numbers as "12.0".
	if f, ferr := strconv.ParseFloat(s, 64); ferr == nil && f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
		return int(f), nil
	}
	return 0, fmt.Errorf("parse %s %q: %w", col, s, err)
}

// rowDecoder collects the first decode failure so row mappers stay linear.
type rowDecoder struct {
	row tabular.Row
	err error
}

func (d *rowDecoder) int(col string) int {
	if d.err != nil {
		return 0
	}
	n, err := parseInt(col, d.row[col])
	d.err = err
	return n
}

func (d *rowDecoder) time(col string) *time.Time {
	if d.err != nil {
		return nil
	}
	t, err := parseTime(col, d.row[col])
	d.err = err
	return t
}

// JobToRow encodes a job as a Jobs table row.
func JobToRow(j *model.Job) tabular.Row {
	return tabular.Row{
		tabular.ColJobID:      j.ID,
		tabular.ColType:       string(j.Type),
		tabular.ColSearch:     j.Search,
		tabular.ColTarget:     j.TargetString(),
		tabular.ColQuery:      j.Query,
		tabular.ColStatus:     string(j.Status),
		tabular.ColProcessed:  strconv.Itoa(j.Processed),
		tabular.ColTotal:      strconv.Itoa(j.Total),
		tabular.ColPageToken:  j.PageToken,
		tabular.ColStartedAt:  formatTime(j.StartedAt),
		tabular.ColUpdatedAt:  formatTime(j.UpdatedAt),
		tabular.ColError:      j.Error,
		tabular.ColFinishedAt: formatTime(j.FinishedAt),
	}
}

// JobFromRow decodes a Jobs table row. Type and Status are taken as stored so rows
// with an unknown type still reach the scheduler, which fails them explicitly.
func JobFromRow(row tabular.Row) (*model.Job, error) {
	d := rowDecoder{row: row}
	j := &model.Job{
		ID:         strings.TrimSpace(row[tabular.ColJobID]),
		Type:       model.JobType(strings.TrimSpace(row[tabular.ColType])),
		Search:     row[tabular.ColSearch],
		Targets:    model.ParseTargets(row[tabular.ColTarget]),
		Query:      row[tabular.ColQuery],
		Status:     model.JobStatus(strings.ToLower(strings.TrimSpace(row[tabular.ColStatus]))),
		Processed:  d.int(tabular.ColProcessed),
		Total:      d.int(tabular.ColTotal),
		PageToken:  row[tabular.ColPageToken],
		StartedAt:  d.time(tabular.ColStartedAt),
		UpdatedAt:  d.time(tabular.ColUpdatedAt),
		FinishedAt: d.time(tabular.ColFinishedAt),
		Error:      row[tabular.ColError],
	}
	if d.err != nil {
		return nil, fmt.Errorf("job %q: %w", j.ID, d.err)
	}
	return j, nil
}

// ResultToRow encodes a result as a Results table row.
func ResultToRow(r model.ResultRow) tabular.Row {
	return tabular.Row{
		tabular.ColJobID:      r.JobID,
		tabular.ColType:       string(r.Type),
		tabular.ColSearch:     r.Search,
		tabular.ColTarget:     r.Target,
		tabular.ColAddress:    r.Address,
		tabular.ColTotal:      strconv.Itoa(r.Total),
		tabular.ColUnread:     strconv.Itoa(r.Unread),
		tabular.ColThreads:    strconv.Itoa(r.Threads),
		tabular.ColLastDate:   formatTime(r.LastDate),
		tabular.ColFinishedAt: formatTime(r.FinishedAt),
	}
}

// ResultFromRow decodes a Results table row.
func ResultFromRow(row tabular.Row) (model.ResultRow, error) {
	d := rowDecoder{row: row}
	r := model.ResultRow{
		JobID:      row[tabular.ColJobID],
		Type:       model.JobType(row[tabular.ColType]),
		Search:     row[tabular.ColSearch],
		Target:     row[tabular.ColTarget],
		Address:    row[tabular.ColAddress],
		Total:      d.int(tabular.ColTotal),
		Unread:     d.int(tabular.ColUnread),
		Threads:    d.int(tabular.ColThreads),
		LastDate:   d.time(tabular.ColLastDate),
		FinishedAt: d.time(tabular.ColFinishedAt),
	}
	if d.err != nil {
		return model.ResultRow{}, fmt.Errorf("result %q/%q: %w", r.JobID, r.Address, d.err)
	}
	return r, nil
}

// AggregatedToRow encodes an aggregated rollup row.
func AggregatedToRow(a model.AggregatedRow) tabular.Row {
	updated := a.UpdatedAt
	return tabular.Row{
		tabular.ColJobID:     a.JobID,
		tabular.ColAddress:   a.Address,
		tabular.ColTotal:     strconv.Itoa(a.Total),
		tabular.ColUnread:    strconv.Itoa(a.Unread),
		tabular.ColThreads:   strconv.Itoa(a.Threads),
		tabular.ColLastDate:  formatTime(a.LastDate),
		tabular.ColUpdatedAt: formatTime(&updated),
	}
}

// AggregatedFromRow decodes an aggregated rollup row.
func AggregatedFromRow(row tabular.Row) (model.AggregatedRow, error) {
	d := rowDecoder{row: row}
	a := model.AggregatedRow{
		JobID:    row[tabular.ColJobID],
		Address:  row[tabular.ColAddress],
		Total:    d.int(tabular.ColTotal),
		Unread:   d.int(tabular.ColUnread),
		Threads:  d.int(tabular.ColThreads),
		LastDate: d.time(tabular.ColLastDate),
	}
	if updated := d.time(tabular.ColUpdatedAt); updated != nil {
		a.UpdatedAt = *updated
	}
	if d.err != nil {
		return model.AggregatedRow{}, fmt.Errorf("aggregated %q: %w", a.Address, d.err)
	}
	return a, nil
}
