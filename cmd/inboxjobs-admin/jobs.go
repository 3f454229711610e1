package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/inboxjobs/internal/bootstrap"
	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/service"
)

const timeLayout = time.RFC3339

type createArchiveOptions struct {
	Search  string
	Targets []string
}

type tickOptions struct {
	Count  int
	Direct bool
}

type importOptions struct {
	KeepSource bool
	DryRun     bool
}

type jobIDOptions struct {
	ID      string
	RawJSON bool
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parseCreateArchiveFlags(args []string) (createArchiveOptions, error) {
	fs := newFlagSet("create-archive")
	var (
		opts    createArchiveOptions
		targets string
	)
	fs.StringVar(&opts.Search, "search", "", "Extra search narrowing the sender disjunction")
	fs.StringVar(&targets, "targets", "", "Comma-separated sender addresses or domains (required)")
	if err := fs.Parse(args); err != nil {
		return createArchiveOptions{}, err
	}
	opts.Targets = model.ParseTargets(targets)
	if len(opts.Targets) == 0 {
		return createArchiveOptions{}, errors.New("--targets is required")
	}
	return opts, nil
}

func parseSearchFlag(name string, args []string) (string, error) {
	fs := newFlagSet(name)
	search := fs.String("search", "", "Provider search expression (required)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if strings.TrimSpace(*search) == "" {
		return "", errors.New("--search is required")
	}
	return *search, nil
}

func parseJobIDFlags(name string, args []string) (jobIDOptions, error) {
	fs := newFlagSet(name)
	var opts jobIDOptions
	fs.StringVar(&opts.ID, "id", "", "Job ID (required)")
	fs.BoolVar(&opts.RawJSON, "json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return jobIDOptions{}, err
	}
	if opts.ID == "" && fs.NArg() > 0 {
		opts.ID = fs.Arg(0)
	}
	if strings.TrimSpace(opts.ID) == "" {
		return jobIDOptions{}, errors.New("--id is required")
	}
	return opts, nil
}

func parseListFlags(args []string) (model.JobStatus, error) {
	fs := newFlagSet("list")
	status := fs.String("status", "", "Only list jobs in this status")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	s := model.JobStatus(strings.TrimSpace(*status))
	if s != "" && !s.Valid() {
		return "", fmt.Errorf("invalid --status %q", s)
	}
	return s, nil
}

func parseTickFlags(args []string) (tickOptions, error) {
	fs := newFlagSet("tick")
	opts := tickOptions{Count: 1}
	fs.IntVar(&opts.Count, "count", 1, "Maximum invocations to run; stops early once idle")
	fs.BoolVar(&opts.Direct, "direct", false, "Call the scheduler without taking the lease")
	if err := fs.Parse(args); err != nil {
		return tickOptions{}, err
	}
	if opts.Count <= 0 {
		return tickOptions{}, errors.New("--count must be greater than zero")
	}
	return opts, nil
}

func parseImportFlags(args []string) (importOptions, error) {
	fs := newFlagSet("import-legacy")
	var opts importOptions
	fs.BoolVar(&opts.KeepSource, "keep-source", false, "Leave converted entries in the legacy store")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Report what would be imported without writing")
	if err := fs.Parse(args); err != nil {
		return importOptions{}, err
	}
	return opts, nil
}

func runCheck(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("check")
	noMailbox := fs.Bool("no-mailbox", false, "Only check the table headers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{Mailbox: !*noMailbox}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		report, checkErr := s.Jobs.CheckEnvironment(ctx)
		if err := printEnvironmentReport(cmdCtx.Out, report, !*noMailbox); err != nil {
			return err
		}
		return checkErr
	})
}

func runTick(cmdCtx *commandContext, args []string) error {
	opts, err := parseTickFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{Mailbox: true, Redis: true}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		if s.Runner == nil || s.Scheduler == nil {
			return errors.New("scheduler unavailable: no mailbox configured")
		}
		for range opts.Count {
			var (
				res     *core.TickResult
				tickErr error
			)
			if opts.Direct {
				res, tickErr = s.Scheduler.Tick(ctx, time.Now())
			} else {
				res, tickErr = s.Runner.Invoke(ctx, time.Now())
			}
			if tickErr != nil {
				return tickErr
			}
			if err := printTickResult(cmdCtx.Out, res); err != nil {
				return err
			}
			if res.Outcome == core.TickIdle || res.Outcome == core.TickSkipped {
				return nil
			}
		}
		return nil
	})
}

func runCreateArchive(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateArchiveFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{Redis: true}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		job, createErr := s.Jobs.StartMarkReadAndArchive(ctx, opts.Search, opts.Targets)
		if createErr != nil {
			return createErr
		}
		return printJob(cmdCtx.Out, job)
	})
}

func runCreateSenders(cmdCtx *commandContext, args []string) error {
	search, err := parseSearchFlag("create-senders", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{Redis: true}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		job, createErr := s.Jobs.StartFetchSenders(ctx, search)
		if createErr != nil {
			return createErr
		}
		return printJob(cmdCtx.Out, job)
	})
}

func runCancel(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobIDFlags("cancel", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		job, cancelErr := s.Jobs.Cancel(ctx, opts.ID)
		if cancelErr != nil {
			return cancelErr
		}
		return printJob(cmdCtx.Out, job)
	})
}

func runStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobIDFlags("status", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		resp, statusErr := s.Jobs.GetStatus(ctx, opts.ID)
		if statusErr != nil {
			return statusErr
		}
		if opts.RawJSON {
			return printJSON(cmdCtx.Out, resp)
		}
		if !resp.Known {
			return writef(cmdCtx.Out, "Job %s: %s\n", resp.ID, resp.Status)
		}
		return printJob(cmdCtx.Out, resp.Job)
	})
}

func runList(cmdCtx *commandContext, args []string) error {
	status, err := parseListFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		var (
			jobs    []*model.Job
			listErr error
		)
		if status == model.JobStatusRunning {
			jobs, listErr = s.Jobs.ListRunning(ctx)
		} else {
			jobs, listErr = s.Jobs.ListAll(ctx)
		}
		if listErr != nil {
			return listErr
		}
		return printJobs(cmdCtx.Out, filterJobs(jobs, status))
	})
}

func runResults(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobIDFlags("results", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		rows, resErr := s.Jobs.Results(ctx, opts.ID)
		if resErr != nil {
			return resErr
		}
		if opts.RawJSON {
			return printJSON(cmdCtx.Out, rows)
		}
		return printResults(cmdCtx.Out, rows)
	})
}

func runStats(cmdCtx *commandContext, _ []string) error {
	return withServices(cmdCtx, serviceNeeds{}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		stats, err := s.Jobs.Stats(ctx)
		if err != nil {
			return err
		}
		return printStats(cmdCtx.Out, stats)
	})
}

func runImportLegacy(cmdCtx *commandContext, args []string) error {
	opts, err := parseImportFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, serviceNeeds{Redis: true}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		if s.Importer == nil {
			return errImporterUnavailable
		}
		report, impErr := s.Importer.Import(ctx, service.ImportOptions{
			KeepSource: opts.KeepSource,
			DryRun:     opts.DryRun,
		})
		if report != nil {
			if err := printImportReport(cmdCtx.Out, report, opts.DryRun); err != nil {
				return err
			}
		}
		return impErr
	})
}

func filterJobs(jobs []*model.Job, status model.JobStatus) []*model.Job {
	if status == "" {
		return jobs
	}
	out := make([]*model.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func printJob(w io.Writer, job *model.Job) error {
	if job == nil {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Job ID", job.ID},
		{"Type", string(job.Type)},
		{"Status", string(job.Status)},
		{"Search", job.Search},
		{"Targets", job.TargetString()},
		{"Query", job.Query},
		{"Progress", fmt.Sprintf("%d/%d", job.Processed, job.Total)},
		{"Cursor", job.PageToken},
		{"Started", formatTime(job.StartedAt)},
		{"Updated", formatTime(job.UpdatedAt)},
		{"Finished", formatTime(job.FinishedAt)},
	}
	if job.Error != "" {
		rows = append(rows, [2]string{"Error", job.Error})
	}
	for _, r := range rows {
		if err := writef(tw, "%s\t%s\n", r[0], r[1]); err != nil {
			return fmt.Errorf("write job field %s: %w", r[0], err)
		}
	}
	return tw.Flush()
}

func printJobs(w io.Writer, jobs []*model.Job) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "JOB ID\tTYPE\tSTATUS\tPROGRESS\tUPDATED\tQUERY"); err != nil {
		return fmt.Errorf("write jobs header: %w", err)
	}
	for _, j := range jobs {
		if err := writef(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			j.ID, j.Type, j.Status, j.Processed, j.Total, formatTime(j.UpdatedAt), j.SearchExpression()); err != nil {
			return fmt.Errorf("write job %s: %w", j.ID, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush jobs: %w", err)
	}
	return writef(w, "%d job(s)\n", len(jobs))
}

func printResults(w io.Writer, rows []model.ResultRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ADDRESS\tTOTAL\tUNREAD\tTHREADS\tLAST DATE"); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}
	for _, r := range rows {
		if err := writef(tw, "%s\t%d\t%d\t%d\t%s\n",
			r.Address, r.Total, r.Unread, r.Threads, formatTime(r.LastDate)); err != nil {
			return fmt.Errorf("write result %s: %w", r.Address, err)
		}
	}
	return tw.Flush()
}

func printStats(w io.Writer, stats *model.JobStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		n     int
	}{
		{"queued", stats.Queued},
		{"running", stats.Running},
		{"done", stats.Done},
		{"error", stats.Error},
		{"cancelled", stats.Cancelled},
	}
	if err := writeln(tw, "Status\tJobs"); err != nil {
		return fmt.Errorf("write stats header: %w", err)
	}
	for _, r := range rows {
		if err := writef(tw, "%s\t%d\n", r.label, r.n); err != nil {
			return fmt.Errorf("write stats row %s: %w", r.label, err)
		}
	}
	return tw.Flush()
}

func printTickResult(w io.Writer, res *core.TickResult) error {
	if res == nil {
		return writeln(w, "no invocation due")
	}
	line := fmt.Sprintf("outcome=%s", res.Outcome)
	if res.JobID != "" {
		line += fmt.Sprintf(" job=%s type=%s processed=%d", res.JobID, res.JobType, res.Processed)
	}
	if res.Promoted {
		line += " promoted"
	}
	if res.Error != "" {
		line += fmt.Sprintf(" error=%q", res.Error)
	}
	return writeln(w, line)
}

func printEnvironmentReport(w io.Writer, report *service.EnvironmentReport, mailboxChecked bool) error {
	if report == nil {
		return nil
	}
	schema := "ok"
	if !report.SchemaOK {
		schema = "FAILED: " + report.SchemaErr
	}
	if err := writef(w, "Tables:  %s\n", schema); err != nil {
		return err
	}
	if !mailboxChecked {
		return nil
	}
	mailbox := fmt.Sprintf("ok (about %d inbox threads)", report.InboxCount)
	if !report.MailboxOK {
		mailbox = "FAILED: " + report.MailboxErr
	}
	return writef(w, "Mailbox: %s\n", mailbox)
}

func printImportReport(w io.Writer, report *service.ImportReport, dryRun bool) error {
	if dryRun {
		if err := writeln(w, "Dry run: nothing was written."); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		n     int
	}{
		{"Entries", report.Entries},
		{"Jobs Imported", report.JobsImported},
		{"Results Imported", report.ResultsImported},
		{"Already Present", report.AlreadyPresent},
		{"Skipped", report.Skipped},
		{"Removed", report.Removed},
	}
	for _, r := range rows {
		if err := writef(tw, "%s\t%d\n", r.label, r.n); err != nil {
			return fmt.Errorf("write import row %s: %w", r.label, err)
		}
	}
	return tw.Flush()
}
