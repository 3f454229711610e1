package testutil

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
)

const fakeCursorPrefix = "offset:"

// FakeMailbox is an in-memory mailbox whose searches return fixed thread lists.
// Cursors encode an offset into the result list.
type FakeMailbox struct {
	mu sync.Mutex

	threads  map[string]model.ThreadMetadata
	searches map[string][]string

	// ListErr fails every ListPage call when set.
	ListErr error
	// ItemErrs fails per-thread calls for the given thread IDs.
	ItemErrs map[string]error
	// EstimateErr fails every EstimateCount call when set.
	EstimateErr error

	archived  []string
	listCalls []core.ListPageParams
	metaCalls int
}

var _ core.Mailbox = (*FakeMailbox)(nil)

// NewFakeMailbox creates an empty fake mailbox.
func NewFakeMailbox() *FakeMailbox {
	return &FakeMailbox{
		threads:  map[string]model.ThreadMetadata{},
		searches: map[string][]string{},
		ItemErrs: map[string]error{},
	}
}

// AddThread registers a thread and makes query return it after any earlier threads.
func (m *FakeMailbox) AddThread(query string, meta model.ThreadMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[meta.ID] = meta
	m.searches[query] = append(m.searches[query], meta.ID)
}

// Archived returns the IDs passed to MarkReadAndArchive in call order.
func (m *FakeMailbox) Archived() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.archived...)
}

// ListCalls returns the ListPage parameters seen so far.
func (m *FakeMailbox) ListCalls() []core.ListPageParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.ListPageParams(nil), m.listCalls...)
}

// MetadataCalls returns how many ThreadMetadata calls were made.
func (m *FakeMailbox) MetadataCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metaCalls
}

// EstimateCount returns the number of threads the query matches.
func (m *FakeMailbox) EstimateCount(_ context.Context, query string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EstimateErr != nil {
		return 0, m.EstimateErr
	}
	return len(m.searches[query]), nil
}

// ExactCount returns the number of threads the query matches.
func (m *FakeMailbox) ExactCount(ctx context.Context, query string) (int, error) {
	return m.EstimateCount(ctx, query)
}

// ListPage returns the slice of matches starting at the cursor's offset.
func (m *FakeMailbox) ListPage(_ context.Context, params core.ListPageParams) (*model.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls = append(m.listCalls, params)
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	start := 0
	if params.Cursor != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(params.Cursor, fakeCursorPrefix))
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q", params.Cursor)
		}
		start = n
	}
	ids := m.searches[params.Query]
	size := params.Size
	if size <= 0 {
		size = len(ids)
	}
	end := min(start+size, len(ids))
	if start > end {
		start = end
	}

	page := &model.Page{Items: append([]string(nil), ids[start:end]...)}
	if end < len(ids) {
		page.Next = fakeCursorPrefix + strconv.Itoa(end)
	}
	return page, nil
}

// MarkReadAndArchive records the archive unless an error is configured for the thread.
func (m *FakeMailbox) MarkReadAndArchive(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ItemErrs[threadID]; err != nil {
		return err
	}
	m.archived = append(m.archived, threadID)
	if meta, ok := m.threads[threadID]; ok {
		meta.Unread = false
		m.threads[threadID] = meta
	}
	return nil
}

// ThreadMetadata returns the registered metadata for threadID.
func (m *FakeMailbox) ThreadMetadata(_ context.Context, threadID string) (*model.ThreadMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metaCalls++
	if err := m.ItemErrs[threadID]; err != nil {
		return nil, err
	}
	meta, ok := m.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}
	return &meta, nil
}
