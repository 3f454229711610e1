package gmail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/target/inboxjobs/internal/core"
)

// fakeGmail serves the handful of Gmail endpoints the provider calls.
type fakeGmail struct {
	mu       sync.Mutex
	pages    map[string]gmailapi.ListThreadsResponse
	threads  map[string]gmailapi.Thread
	modified map[string][]string
	queries  []string
}

func newFakeGmail() *fakeGmail {
	return &fakeGmail{
		pages:    map[string]gmailapi.ListThreadsResponse{},
		threads:  map[string]gmailapi.Thread{},
		modified: map[string][]string{},
	}
}

func (f *fakeGmail) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/threads", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		writeJSON(w, f.pages[r.URL.Query().Get("pageToken")])
	})
	mux.HandleFunc("GET /gmail/v1/users/me/threads/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		th, ok := f.threads[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, th)
	})
	mux.HandleFunc("POST /gmail/v1/users/me/threads/{id}/modify", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req gmailapi.ModifyThreadRequest
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.modified[r.PathValue("id")] = req.RemoveLabelIds
		f.mu.Unlock()
		writeJSON(w, gmailapi.Thread{Id: r.PathValue("id")})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T, fake *fakeGmail) *Provider {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	p, err := NewProvider(context.Background(), ProviderOptions{
		HTTPClient:    srv.Client(),
		ClientOptions: []option.ClientOption{option.WithEndpoint(srv.URL + "/")},
		RateLimit:     -1,
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresClient(t *testing.T) {
	_, err := NewProvider(context.Background(), ProviderOptions{})
	require.Error(t, err)
}

func TestProvider_ListPageAndExactCount(t *testing.T) {
	fake := newFakeGmail()
	fake.pages[""] = gmailapi.ListThreadsResponse{
		Threads:            []*gmailapi.Thread{{Id: "t1"}, {Id: "t2"}},
		NextPageToken:      "p2",
		ResultSizeEstimate: 201,
	}
	fake.pages["p2"] = gmailapi.ListThreadsResponse{Threads: []*gmailapi.Thread{{Id: "t3"}}}
	p := newTestProvider(t, fake)
	ctx := context.Background()

	page, err := p.ListPage(ctx, core.ListPageParams{Query: "is:unread", Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, page.Items)
	assert.Equal(t, "p2", page.Next)

	page, err = p.ListPage(ctx, core.ListPageParams{Query: "is:unread", Cursor: "p2", Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, page.Items)
	assert.True(t, page.Done())

	n, err := p.ExactCount(ctx, "is:unread")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = p.EstimateCount(ctx, "is:unread")
	require.NoError(t, err)
	assert.Equal(t, 201, n)
	assert.Contains(t, fake.queries, "is:unread")
}

func TestProvider_MarkReadAndArchive(t *testing.T) {
	fake := newFakeGmail()
	p := newTestProvider(t, fake)

	require.NoError(t, p.MarkReadAndArchive(context.Background(), "t9"))
	assert.ElementsMatch(t, []string{"UNREAD", "INBOX"}, fake.modified["t9"])
}

func TestProvider_ThreadMetadata(t *testing.T) {
	fake := newFakeGmail()
	older := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	fake.threads["t1"] = gmailapi.Thread{
		Id: "t1",
		Messages: []*gmailapi.Message{
			{
				Id:           "m1",
				InternalDate: older.UnixMilli(),
				LabelIds:     []string{"INBOX", "UNREAD"},
				Payload: &gmailapi.MessagePart{Headers: []*gmailapi.MessagePartHeader{
					{Name: "From", Value: "someone@else.com"},
				}},
			},
			{
				Id:           "m2",
				InternalDate: newer.UnixMilli(),
				LabelIds:     []string{"INBOX"},
				Payload: &gmailapi.MessagePart{Headers: []*gmailapi.MessagePartHeader{
					{Name: "From", Value: `"Weekly News" <News@Example.COM>`},
					{Name: "Subject", Value: "Issue 12"},
				}},
			},
		},
	}
	p := newTestProvider(t, fake)

	meta, err := p.ThreadMetadata(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", meta.ID)
	assert.Equal(t, "news@example.com", meta.Sender)
	assert.Equal(t, "Issue 12", meta.Subject)
	assert.Equal(t, 2, meta.Messages)
	assert.True(t, meta.Unread)
	assert.True(t, newer.Equal(meta.Date))

	_, err = p.ThreadMetadata(context.Background(), "missing")
	require.Error(t, err)
}

func TestSenderAddress(t *testing.T) {
	tests := map[string]string{
		"a@x.com":                        "a@x.com",
		"Alice <Alice@X.com>":            "alice@x.com",
		`"Broken, Name" <b@y.com>`:       "b@y.com",
		"not an address <c@z.com> extra": "c@z.com",
		"garbage":                        "garbage",
	}
	for in, want := range tests {
		assert.Equal(t, want, senderAddress(in), in)
	}
}

func TestThreadMetadata_DateHeaderFallback(t *testing.T) {
	th := &gmailapi.Thread{Id: "t1", Messages: []*gmailapi.Message{{
		Payload: &gmailapi.MessagePart{Headers: []*gmailapi.MessagePartHeader{
			{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
		}},
	}}}
	meta := threadMetadata(th)
	assert.True(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC).Equal(meta.Date))
	assert.False(t, meta.Unread)
}

func TestNewHTTPClient(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	token := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"installed":{
		"client_id":"id.apps.googleusercontent.com",
		"client_secret":"secret",
		"auth_uri":"https://accounts.google.com/o/oauth2/auth",
		"token_uri":"https://oauth2.googleapis.com/token",
		"redirect_uris":["http://localhost"]}}`), 0o600))
	require.NoError(t, os.WriteFile(token, []byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expiry":"2999-01-01T00:00:00Z"}`), 0o600))

	client, err := NewHTTPClient(context.Background(), AuthOptions{CredentialsFile: creds, TokenFile: token})
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = NewHTTPClient(context.Background(), AuthOptions{CredentialsFile: creds})
	require.Error(t, err)

	require.NoError(t, os.WriteFile(token, []byte(`{}`), 0o600))
	_, err = NewHTTPClient(context.Background(), AuthOptions{CredentialsFile: creds, TokenFile: token})
	require.Error(t, err)
}
