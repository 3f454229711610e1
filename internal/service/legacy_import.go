package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/data"
	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/domain/tabular"
	apperrors "github.com/target/inboxjobs/internal/errors"
)

// legacyField maps one column to the two key spellings legacy entries used.
// The canonical spelling wins; an absent or empty value falls back to the legacy spelling
// and then to def. defNow stamps the import time instead of def.
type legacyField struct {
	column    string
	canonical string
	legacy    string
	def       string
	defNow    bool
}

var legacyJobFields = []legacyField{
	{column: tabular.ColType, canonical: "Type", legacy: "type"},
	{column: tabular.ColSearch, canonical: "Search", legacy: "search"},
	{column: tabular.ColTarget, canonical: "Target", legacy: "target"},
	{column: tabular.ColQuery, canonical: "Query", legacy: "query"},
	{column: tabular.ColStatus, canonical: "Status", legacy: "status", def: string(model.JobStatusDone)},
	{column: tabular.ColProcessed, canonical: "Processed", legacy: "processed", def: "0"},
	{column: tabular.ColTotal, canonical: "Total", legacy: "total", def: "0"},
	{column: tabular.ColPageToken, canonical: "PageToken", legacy: "pageToken"},
	{column: tabular.ColStartedAt, canonical: "StartedAt", legacy: "startedAt"},
	{column: tabular.ColUpdatedAt, canonical: "UpdatedAt", legacy: "updatedAt", defNow: true},
	{column: tabular.ColError, canonical: "Error", legacy: "error"},
	{column: tabular.ColFinishedAt, canonical: "FinishedAt", legacy: "finishedAt"},
}

var legacySenderFields = []legacyField{
	{column: tabular.ColTotal, canonical: "Total", legacy: "total", def: "0"},
	{column: tabular.ColUnread, canonical: "Unread", legacy: "unread", def: "0"},
	{column: tabular.ColThreads, canonical: "Threads", legacy: "threads", def: "0"},
	{column: tabular.ColLastDate, canonical: "LastDate", legacy: "lastDate"},
}

var (
	legacyIDField      = legacyField{canonical: "Job ID", legacy: "jobId"}
	legacySendersField = legacyField{canonical: "Senders", legacy: "senders"}
	legacyFinished     = legacyField{canonical: "FinishedAt", legacy: "finishedAt", defNow: true}
)

// legacyObject is one decoded JSON object of a legacy entry.
type legacyObject map[string]json.RawMessage

func decodeLegacyObject(raw []byte) (legacyObject, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj legacyObject
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("entry is not a JSON object")
	}
	return obj, nil
}

// raw returns the first non-empty value of f's two spellings.
func (o legacyObject) raw(f legacyField) (json.RawMessage, bool) {
	for _, key := range []string{f.canonical, f.legacy} {
		v, ok := o[key]
		if !ok {
			continue
		}
		trimmed := bytes.TrimSpace(v)
		if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == `""` {
			continue
		}
		return v, true
	}
	return nil, false
}

// cell resolves f to its table cell text.
func (o legacyObject) cell(f legacyField, now time.Time) (string, error) {
	v, ok := o.raw(f)
	if !ok {
		if f.defNow {
			return now.UTC().Format(time.RFC3339), nil
		}
		return f.def, nil
	}
	s, err := cellText(v)
	if err != nil {
		return "", fmt.Errorf("field %s: %w", f.canonical, err)
	}
	return s, nil
}

// cellText renders a JSON scalar, or an array of strings, as cell text.
func cellText(v json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return "", err
	}
	switch val := x.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("unsupported list element %T", item)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, model.TargetSeparator), nil
	default:
		return "", fmt.Errorf("unsupported value %T", x)
	}
}

// legacyEntry is one converted legacy key.
type legacyEntry struct {
	key     string
	job     *model.Job
	results []model.ResultRow
}

// parseLegacyEntry converts one legacy value into a Jobs row and its Results rows.
func parseLegacyEntry(key, value string, now time.Time) (*legacyEntry, error) {
	obj, err := decodeLegacyObject([]byte(value))
	if err != nil {
		return nil, apperrors.Parse(key, err)
	}

	row := tabular.Row{}
	id := strings.TrimSpace(key)
	if id == "" {
		if id, err = obj.cell(legacyIDField, now); err != nil {
			return nil, apperrors.Parse(key, err)
		}
	}
	row[tabular.ColJobID] = strings.TrimSpace(id)
	for _, f := range legacyJobFields {
		if row[f.column], err = obj.cell(f, now); err != nil {
			return nil, apperrors.Parse(key, err)
		}
	}

	job, err := data.JobFromRow(row)
	if err != nil {
		return nil, apperrors.Parse(key, err)
	}
	if job.Type == model.JobTypeFetchSenders && len(job.Targets) == 0 && job.Search != "" {
		job.Targets = []string{job.Search}
	}
	switch {
	case job.ID == "":
		return nil, apperrors.Parse(key, errors.New("missing job id"))
	case job.Type == "":
		return nil, apperrors.Parse(key, errors.New("missing job type"))
	case !job.Status.Valid():
		return nil, apperrors.Parse(key, fmt.Errorf("invalid status %q", job.Status))
	}

	results, err := legacyResults(obj, job, now)
	if err != nil {
		return nil, apperrors.Parse(key, err)
	}
	return &legacyEntry{key: key, job: job, results: results}, nil
}

// legacyResults derives the Results rows of a snapshot: one row per sender for
// fetchSenders and one summary row for markReadAndArchive.
func legacyResults(obj legacyObject, job *model.Job, now time.Time) ([]model.ResultRow, error) {
	finishedCell, err := obj.cell(legacyFinished, now)
	if err != nil {
		return nil, err
	}
	base := tabular.Row{
		tabular.ColJobID:      job.ID,
		tabular.ColType:       string(job.Type),
		tabular.ColSearch:     job.Search,
		tabular.ColTarget:     job.TargetString(),
		tabular.ColFinishedAt: finishedCell,
	}

	switch job.Type {
	case model.JobTypeFetchSenders:
		return legacySenderRows(obj, base, now)
	case model.JobTypeMarkReadAndArchive:
		row := maps.Clone(base)
		row[tabular.ColAddress] = ""
		row[tabular.ColTotal] = fmt.Sprint(job.Processed)
		res, err := data.ResultFromRow(row)
		if err != nil {
			return nil, err
		}
		return []model.ResultRow{res}, nil
	default:
		return nil, nil
	}
}

func legacySenderRows(obj legacyObject, base tabular.Row, now time.Time) ([]model.ResultRow, error) {
	v, ok := obj.raw(legacySendersField)
	if !ok {
		return nil, nil
	}
	var senders map[string]json.RawMessage
	if err := json.Unmarshal(v, &senders); err != nil {
		return nil, fmt.Errorf("senders: %w", err)
	}

	keys := make([]string, 0, len(senders))
	for key := range senders {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return strings.Compare(model.NormalizeAddress(a), model.NormalizeAddress(b))
	})

	rows := make([]model.ResultRow, 0, len(keys))
	for _, addr := range keys {
		stats, err := decodeLegacyObject(senders[addr])
		if err != nil {
			return nil, fmt.Errorf("sender %s: %w", addr, err)
		}
		row := maps.Clone(base)
		row[tabular.ColAddress] = model.NormalizeAddress(addr)
		for _, f := range legacySenderFields {
			if row[f.column], err = stats.cell(f, now); err != nil {
				return nil, fmt.Errorf("sender %s: %w", addr, err)
			}
		}
		res, err := data.ResultFromRow(row)
		if err != nil {
			return nil, err
		}
		rows = append(rows, res)
	}
	return rows, nil
}

// LegacyImporterOptions groups dependencies for LegacyImporter.
type LegacyImporterOptions struct {
	Source core.LegacyKV      // Required: legacy key-value store
	Jobs   core.JobRepository // Required: destination tables
	Now    func() time.Time   // Optional: clock override for tests
	Logger *slog.Logger       // Optional: structured logger
}

// ImportOptions controls one import run.
type ImportOptions struct {
	// KeepSource leaves converted entries in the legacy store.
	KeepSource bool
	// DryRun parses and reports without writing or deleting anything.
	DryRun bool
}

// ImportReport summarizes one import run.
type ImportReport struct {
	Entries         int `json:"entries"`
	JobsImported    int `json:"jobs_imported"`
	ResultsImported int `json:"results_imported"`
	// AlreadyPresent counts entries whose Job ID was already in the Jobs table.
	AlreadyPresent int `json:"already_present"`
	// Skipped counts entries that failed to parse.
	Skipped int `json:"skipped"`
	Removed int `json:"removed"`
}

// LegacyImporter converts legacy key-value job snapshots into Jobs and Results rows.
type LegacyImporter struct {
	source core.LegacyKV
	jobs   core.JobRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewLegacyImporter constructs a LegacyImporter.
func NewLegacyImporter(opts LegacyImporterOptions) (*LegacyImporter, error) {
	if opts.Source == nil {
		return nil, errors.New("legacy source is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &LegacyImporter{
		source: opts.Source,
		jobs:   opts.Jobs,
		now:    opts.Now,
		logger: opts.Logger.With("component", "legacy_import"),
	}, nil
}

// Import converts every legacy entry and bulk-appends the rows.
//
// Entries that fail to parse are logged and skipped. Entries whose Job ID already exists
// are not appended again, only their missing Results rows are, so a run interrupted
// between the append and the source cleanup can be repeated. Converted entries are
// removed from the source after the appends succeed unless opts.KeepSource is set.
func (imp *LegacyImporter) Import(ctx context.Context, opts ImportOptions) (*ImportReport, error) {
	if err := imp.jobs.CheckSchema(ctx); err != nil {
		return nil, fmt.Errorf("check schema: %w", err)
	}
	raw, err := imp.source.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read legacy entries: %w", err)
	}
	existing, err := imp.existingIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Entries: len(raw)}
	now := imp.now()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var (
		newJobs   []*model.Job
		results   []model.ResultRow
		converted []string
	)
	for _, key := range keys {
		entry, parseErr := parseLegacyEntry(key, raw[key], now)
		if parseErr != nil {
			report.Skipped++
			imp.logger.WarnContext(ctx, "skipping legacy entry", "key", key, "error", parseErr)
			continue
		}
		converted = append(converted, key)

		if stored, ok := existing[entry.job.ID]; ok {
			report.AlreadyPresent++
			if !stored {
				continue
			}
			missing, missErr := imp.missingResults(ctx, entry)
			if missErr != nil {
				return nil, missErr
			}
			results = append(results, missing...)
			continue
		}
		existing[entry.job.ID] = false
		newJobs = append(newJobs, entry.job)
		results = append(results, entry.results...)
	}

	report.JobsImported = len(newJobs)
	report.ResultsImported = len(results)
	if opts.DryRun {
		imp.logger.InfoContext(ctx, "legacy import dry run", "report", report)
		return report, nil
	}

	if err = imp.jobs.CreateMany(ctx, newJobs); err != nil {
		return nil, fmt.Errorf("append legacy jobs: %w", err)
	}
	if _, err = imp.jobs.AppendResults(ctx, results); err != nil {
		return nil, fmt.Errorf("append legacy results: %w", err)
	}

	if !opts.KeepSource && len(converted) > 0 {
		if err = imp.source.Delete(ctx, converted...); err != nil {
			return nil, fmt.Errorf("remove converted entries: %w", err)
		}
		report.Removed = len(converted)
	}

	imp.logger.InfoContext(ctx, "legacy import finished",
		"entries", report.Entries,
		"jobs", report.JobsImported,
		"results", report.ResultsImported,
		"already_present", report.AlreadyPresent,
		"skipped", report.Skipped,
		"removed", report.Removed,
	)
	return report, nil
}

// existingIDs maps every stored Job ID to true. Import adds IDs converted during the run as false.
func (imp *LegacyImporter) existingIDs(ctx context.Context) (map[string]bool, error) {
	jobs, err := imp.jobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	ids := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		ids[job.ID] = true
	}
	return ids, nil
}

// missingResults returns entry's Results rows when none were written for its job yet.
func (imp *LegacyImporter) missingResults(ctx context.Context, entry *legacyEntry) ([]model.ResultRow, error) {
	if len(entry.results) == 0 {
		return nil, nil
	}
	stored, err := imp.jobs.ListResults(ctx, entry.job.ID)
	if err != nil {
		return nil, fmt.Errorf("list results for %s: %w", entry.job.ID, err)
	}
	if len(stored) > 0 {
		return nil, nil
	}
	return entry.results, nil
}
