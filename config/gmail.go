package config

// GmailConfig locates the OAuth2 material for the mailbox provider.
type GmailConfig struct {
	// CredentialsFile is the OAuth client JSON downloaded from the Google console.
	CredentialsFile string `env:"CREDENTIALS_FILE" envDefault:"credentials.json"`

	// TokenFile holds the user's OAuth2 token. Refreshed tokens are written back.
	TokenFile string `env:"TOKEN_FILE" envDefault:"token.json"`

	// RateLimit caps Gmail API calls per second. Negative disables limiting.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"20"`
}

// Sanitize applies guardrails to Gmail configuration values.
func (g *GmailConfig) Sanitize() {
	if g.RateLimit == 0 {
		g.RateLimit = 20
	}
}

// LegacyConfig points at the key-value store written by the previous implementation.
type LegacyConfig struct {
	// HashKey is the Redis hash whose fields are legacy job snapshots.
	HashKey string `env:"HASH_KEY" envDefault:"jobs"`
}
