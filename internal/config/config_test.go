package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 80, cfg.Quest.BadgeMinScore)
	assert.Equal(t, 10*time.Minute, cfg.Reconcile.Interval)
	assert.Zero(t, cfg.Redis.LeaderboardTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	noEnvFile(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("QUEST_BADGE_MIN_SCORE", "85")
	t.Setenv("LEADERBOARD_CACHE_TTL", "30s")
	t.Setenv("RECONCILE_INTERVAL", "1h")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_BUCKET_NAME", "uploads")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 85, cfg.Quest.BadgeMinScore)
	assert.Equal(t, 30*time.Second, cfg.Redis.LeaderboardTTL)
	assert.Equal(t, time.Hour, cfg.Reconcile.Interval)
	assert.True(t, cfg.Storage.Enabled())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")
	// registers cleanup for the value godotenv sets
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "warn", cfg.Log.Level, "process environment wins over .env")
}

func TestValidate(t *testing.T) {
	noEnvFile(t)

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"empty dsn", map[string]string{"DATABASE_DSN": ""}},
		{"badge floor over 100", map[string]string{"QUEST_BADGE_MIN_SCORE": "120"}},
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"negative ttl", map[string]string{"LEADERBOARD_CACHE_TTL": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
