package bootstrap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/inboxjobs/config"
)

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { _ = SetLogLevel("info") })

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		require.NoError(t, SetLogLevel(in), in)
		assert.Equal(t, want, logLevel.Level(), in)
	}

	require.Error(t, SetLogLevel("verbose"))
}

func TestInitLogger_HonorsLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		_ = SetLogLevel("info")
	})

	logger := InitLogger()
	require.NoError(t, SetLogLevel("error"))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.NoError(t, SetLogLevel("debug"))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestValidateServiceConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.AppConfig
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{
			name: "postgres with both services",
			cfg:  &config.AppConfig{Services: "http,scheduler", Store: config.StoreBackendPostgres},
		},
		{
			name:    "no services",
			cfg:     &config.AppConfig{Services: "", Store: config.StoreBackendPostgres},
			wantErr: true,
		},
		{
			name:    "unknown service",
			cfg:     &config.AppConfig{Services: "http,worker", Store: config.StoreBackendPostgres},
			wantErr: true,
		},
		{
			name:    "unknown store",
			cfg:     &config.AppConfig{Services: "http", Store: "sheets"},
			wantErr: true,
		},
		{
			name:    "memory store outside dev",
			cfg:     &config.AppConfig{Services: "http", Store: config.StoreBackendMemory},
			wantErr: true,
		},
		{
			name: "memory store in dev",
			cfg:  &config.AppConfig{Services: "http", Store: config.StoreBackendMemory, IsDev: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGetEnabledServices(t *testing.T) {
	assert.Equal(t, []string{"http", "scheduler"},
		GetEnabledServices(&config.AppConfig{Services: "scheduler, http"}))
	assert.Equal(t, []string{"scheduler"},
		GetEnabledServices(&config.AppConfig{Services: "scheduler"}))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVICES", "http")
	t.Setenv("STORE_BACKEND", " Memory ")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SCHEDULER_PAGE_SIZE", "900")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Services)
	assert.Equal(t, config.StoreBackendMemory, cfg.Store)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 500, cfg.Scheduler.PageSize)
}
