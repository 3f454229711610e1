// Package gmail implements core.Mailbox on the Gmail API.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
)

const (
	userID = "me"

	labelUnread = "UNREAD"
	labelInbox  = "INBOX"

	// MaxPageSize is the largest page threads.list accepts.
	MaxPageSize = 500
	// DefaultRateLimit stays under the per-user quota for threads.get.
	DefaultRateLimit = 20
)

var metadataHeaders = []string{"From", "Subject", "Date"}

// ProviderOptions configures Provider.
type ProviderOptions struct {
	// HTTPClient carries the OAuth2 credentials. Required unless ClientOptions supplies them.
	HTTPClient *http.Client
	// ClientOptions are passed to the Gmail client after HTTPClient, e.g. option.WithEndpoint in tests.
	ClientOptions []option.ClientOption
	// RateLimit caps API calls per second. Zero uses DefaultRateLimit; negative disables limiting.
	RateLimit float64
	Logger    *slog.Logger
}

// Provider talks to one user's mailbox.
type Provider struct {
	svc     *gmailapi.Service
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ core.Mailbox = (*Provider)(nil)

// NewProvider creates a Gmail-backed mailbox.
func NewProvider(ctx context.Context, opts ProviderOptions) (*Provider, error) {
	var clientOpts []option.ClientOption
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)
	if len(clientOpts) == 0 {
		return nil, errors.New("gmail: HTTP client or client options are required")
	}

	svc, err := gmailapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	p := &Provider{svc: svc, logger: opts.Logger}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "gmail")

	switch {
	case opts.RateLimit == 0:
		p.limiter = rate.NewLimiter(rate.Limit(DefaultRateLimit), 1)
	case opts.RateLimit > 0:
		p.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return p, nil
}

// waitForRateLimit blocks until the rate limiter allows a request.
// Returns immediately if rate limiting is disabled.
func (p *Provider) waitForRateLimit(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// EstimateCount returns threads.list's resultSizeEstimate for query.
func (p *Provider) EstimateCount(ctx context.Context, query string) (int, error) {
	if err := p.waitForRateLimit(ctx); err != nil {
		return 0, err
	}
	resp, err := p.svc.Users.Threads.List(userID).Q(query).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("threads.list: %w", err)
	}
	return int(resp.ResultSizeEstimate), nil
}

// ExactCount pages through every match of query.
func (p *Provider) ExactCount(ctx context.Context, query string) (int, error) {
	var (
		total  int
		cursor string
		pages  int
	)
	for {
		page, err := p.ListPage(ctx, core.ListPageParams{Query: query, Cursor: cursor, Size: MaxPageSize})
		if err != nil {
			return 0, err
		}
		total += len(page.Items)
		pages++
		if page.Done() {
			break
		}
		cursor = page.Next
	}
	p.logger.DebugContext(ctx, "exact count", "query", query, "total", total, "pages", pages)
	return total, nil
}

// ListPage returns one page of thread IDs matching params.Query.
func (p *Provider) ListPage(ctx context.Context, params core.ListPageParams) (*model.Page, error) {
	if err := p.waitForRateLimit(ctx); err != nil {
		return nil, err
	}
	size := params.Size
	if size <= 0 || size > MaxPageSize {
		size = MaxPageSize
	}
	call := p.svc.Users.Threads.List(userID).Q(params.Query).MaxResults(int64(size))
	if params.Cursor != "" {
		call = call.PageToken(params.Cursor)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("threads.list: %w", err)
	}

	page := &model.Page{Items: make([]string, 0, len(resp.Threads)), Next: resp.NextPageToken}
	for _, th := range resp.Threads {
		if th != nil && th.Id != "" {
			page.Items = append(page.Items, th.Id)
		}
	}
	return page, nil
}

// MarkReadAndArchive removes the UNREAD and INBOX labels from every message of the thread.
func (p *Provider) MarkReadAndArchive(ctx context.Context, threadID string) error {
	if err := p.waitForRateLimit(ctx); err != nil {
		return err
	}
	req := &gmailapi.ModifyThreadRequest{RemoveLabelIds: []string{labelUnread, labelInbox}}
	if _, err := p.svc.Users.Threads.Modify(userID, threadID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("threads.modify %s: %w", threadID, err)
	}
	return nil
}

// ThreadMetadata reads the thread's headers. Sender, subject and date come from the
// newest message; the thread is unread when any message carries UNREAD.
func (p *Provider) ThreadMetadata(ctx context.Context, threadID string) (*model.ThreadMetadata, error) {
	if err := p.waitForRateLimit(ctx); err != nil {
		return nil, err
	}
	th, err := p.svc.Users.Threads.Get(userID, threadID).
		Format("metadata").
		MetadataHeaders(metadataHeaders...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("threads.get %s: %w", threadID, err)
	}
	return threadMetadata(th), nil
}

func threadMetadata(th *gmailapi.Thread) *model.ThreadMetadata {
	meta := &model.ThreadMetadata{ID: th.Id, Messages: len(th.Messages)}
	var newest *gmailapi.Message
	for _, msg := range th.Messages {
		if msg == nil {
			continue
		}
		if slices.Contains(msg.LabelIds, labelUnread) {
			meta.Unread = true
		}
		if newest == nil || msg.InternalDate >= newest.InternalDate {
			newest = msg
		}
	}
	if newest == nil {
		return meta
	}

	if newest.InternalDate > 0 {
		meta.Date = time.UnixMilli(newest.InternalDate).UTC()
	}
	if newest.Payload == nil {
		return meta
	}
	for _, h := range newest.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			meta.Sender = senderAddress(h.Value)
		case "subject":
			meta.Subject = h.Value
		case "date":
			if meta.Date.IsZero() {
				if d, err := mail.ParseDate(h.Value); err == nil {
					meta.Date = d.UTC()
				}
			}
		}
	}
	return meta
}

// senderAddress extracts the bare address from a From header, falling back to the raw
// value when it does not parse.
func senderAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		if i, j := strings.LastIndex(from, "<"), strings.LastIndex(from, ">"); i >= 0 && j > i {
			return model.NormalizeAddress(from[i+1 : j])
		}
		return model.NormalizeAddress(from)
	}
	return model.NormalizeAddress(addr.Address)
}
