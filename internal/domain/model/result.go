package model

import (
	"sort"
	"strings"
	"time"
)

// JobStatusUnknown is reported by status lookups for IDs with no job row.
const JobStatusUnknown JobStatus = "unknown"

// SenderStats holds the counters collected for one sender address.
type SenderStats struct {
	Total    int       `json:"total"`
	Unread   int       `json:"unread"`
	Threads  int       `json:"threads"`
	LastDate time.Time `json:"lastDate"`
}

// Merge folds other into s.
func (s *SenderStats) Merge(other SenderStats) {
	s.Total += other.Total
	s.Unread += other.Unread
	s.Threads += other.Threads
	if other.LastDate.After(s.LastDate) {
		s.LastDate = other.LastDate
	}
}

// SenderSet maps a normalized sender address to its counters.
type SenderSet map[string]SenderStats

// Add folds one thread's metadata into the set.
func (s SenderSet) Add(meta ThreadMetadata) {
	addr := NormalizeAddress(meta.Sender)
	if addr == "" {
		return
	}
	messages := meta.Messages
	if messages < 1 {
		messages = 1
	}
	stats := SenderStats{Total: messages, Threads: 1, LastDate: meta.Date}
	if meta.Unread {
		stats.Unread = 1
	}
	cur := s[addr]
	cur.Merge(stats)
	s[addr] = cur
}

// Merge folds every entry of other into s.
func (s SenderSet) Merge(other SenderSet) {
	for addr, stats := range other {
		cur := s[addr]
		cur.Merge(stats)
		s[addr] = cur
	}
}

// Addresses returns the set's keys in a stable order.
func (s SenderSet) Addresses() []string {
	out := make([]string, 0, len(s))
	for addr := range s {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// NormalizeAddress lowercases and trims an address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// SenderAccumulator is the fetchSenders state carried between pages.
// MergedCursor is the input cursor of the last merged page and NextCursor the cursor it produced,
// so a page replayed after a crash is recognised and not merged twice.
type SenderAccumulator struct {
	Senders      SenderSet `json:"senders"`
	Pages        int       `json:"pages"`
	MergedCursor string    `json:"mergedCursor"`
	NextCursor   string    `json:"nextCursor"`
	Threads      int       `json:"threads"`
}

// HasMerged reports whether the page starting at cursor is already folded in.
func (a *SenderAccumulator) HasMerged(cursor string) bool {
	return a != nil && a.Pages > 0 && a.MergedCursor == cursor
}

// ResultRow is one row of the Results table.
type ResultRow struct {
	JobID      string     `json:"job_id"`
	Type       JobType    `json:"type"`
	Search     string     `json:"search"`
	Target     string     `json:"target"`
	Address    string     `json:"address"`
	Total      int        `json:"total"`
	Unread     int        `json:"unread"`
	Threads    int        `json:"threads"`
	LastDate   *time.Time `json:"last_date,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewResultRow denormalizes the parent job onto an outcome row.
func NewResultRow(job *Job, address string, stats SenderStats) ResultRow {
	row := ResultRow{
		JobID:      job.ID,
		Type:       job.Type,
		Search:     job.Search,
		Target:     job.TargetString(),
		Address:    address,
		Total:      stats.Total,
		Unread:     stats.Unread,
		Threads:    stats.Threads,
		FinishedAt: job.FinishedAt,
	}
	if !stats.LastDate.IsZero() {
		d := stats.LastDate.UTC()
		row.LastDate = &d
	}
	return row
}

// ResultRowsFromSenders builds one result row per sender in address order.
func ResultRowsFromSenders(job *Job, senders SenderSet) []ResultRow {
	rows := make([]ResultRow, 0, len(senders))
	for _, addr := range senders.Addresses() {
		rows = append(rows, NewResultRow(job, addr, senders[addr]))
	}
	return rows
}

// AggregatedRow is one row of the Aggregated rollup, keyed by Address.
type AggregatedRow struct {
	JobID     string
	Address   string
	Total     int
	Unread    int
	Threads   int
	LastDate  *time.Time
	UpdatedAt time.Time
}

// ThreadMetadata is what the mailbox provider reports for one thread.
type ThreadMetadata struct {
	ID       string    `json:"id"`
	Subject  string    `json:"subject"`
	Sender   string    `json:"sender"`
	Date     time.Time `json:"date"`
	Unread   bool      `json:"unread"`
	Messages int       `json:"messages"`
}

// Page is one page of matching thread IDs; an empty Next means the listing is exhausted.
type Page struct {
	Items []string
	Next  string
}

// Done reports whether no page follows this one.
func (p *Page) Done() bool {
	return p == nil || p.Next == ""
}
