package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

// AuthOptions locates the OAuth2 client secret and the user's stored token.
type AuthOptions struct {
	// CredentialsFile is the OAuth client JSON downloaded from the Google console.
	CredentialsFile string
	// TokenFile holds the user's token; refreshed tokens are written back to it.
	TokenFile string
	Logger    *slog.Logger
}

// NewHTTPClient builds an HTTP client authorized for the gmail.modify scope.
func NewHTTPClient(ctx context.Context, opts AuthOptions) (*http.Client, error) {
	if opts.CredentialsFile == "" || opts.TokenFile == "" {
		return nil, errors.New("gmail: credentials file and token file are required")
	}
	secret, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(secret, gmailapi.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	tok, err := readToken(opts.TokenFile)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ts := &persistingTokenSource{
		base:   cfg.TokenSource(ctx, tok),
		path:   opts.TokenFile,
		last:   tok.AccessToken,
		logger: logger.With("component", "gmail_auth"),
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
}

func readToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err = json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds no token", path)
	}
	return &tok, nil
}

// persistingTokenSource writes refreshed tokens back to disk so restarts reuse them.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken
	if err = writeToken(s.path, tok); err != nil {
		s.logger.Warn("persist refreshed token failed", "path", s.path, "error", err)
	}
	return tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
