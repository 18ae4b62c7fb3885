package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "env: development\n"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 0.7, cfg.Moderation.Threshold)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 3, cfg.Queue.Tries)
	assert.Equal(t, 3, cfg.Webhook.RetryCount)
	assert.Equal(t, 10, cfg.Webhook.TimeoutSeconds)
	assert.Equal(t, "local", cfg.Storage.Driver)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
port: 8080
env: production
jwt_secret: super-secret
moderation:
  enable: true
  api_url: https://moderation.example.com/check
  api_key: mod-key
providers:
  amadeus:
    key: client-id
    secret: client-secret
    base_url: https://api.example.com/v1
    token_url: https://auth.example.com/token
  places:
    key: places-key
    base_url: https://places.example.com
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.True(t, cfg.Moderation.Enable)

	amadeus := cfg.Providers["amadeus"]
	assert.True(t, amadeus.IsEnabled())
	// Per-provider retry settings fall back to the shared defaults.
	assert.Equal(t, 10000, amadeus.TimeoutMS)
	assert.Equal(t, 3, amadeus.RetryTimes)
	assert.Equal(t, 300, amadeus.RetrySleepMS)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "not_a_real_field: 1\n"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name, yaml string
	}{
		{"bad port", "port: 70000\n"},
		{"bad threshold", "moderation:\n  threshold: 1.5\n"},
		{"bad storage driver", "storage:\n  driver: ftp\n"},
		{"s3 without bucket", "storage:\n  driver: s3\n"},
		{"enabled provider without base_url", "providers:\n  amadeus:\n    key: k\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestProviderIsEnabled(t *testing.T) {
	off := false
	assert.False(t, APIProvider{}.IsEnabled(), "no key means disabled")
	assert.True(t, APIProvider{Key: "k"}.IsEnabled())
	assert.False(t, APIProvider{Key: "k", Enabled: &off}.IsEnabled(), "explicit flag wins")
}

func TestDSNValue(t *testing.T) {
	cfg := AppConfig{DSN: "user:pw@tcp(db:3306)/trips"}
	assert.Equal(t, "user:pw@tcp(db:3306)/trips", cfg.DSNValue())

	cfg = AppConfig{Database: DatabaseConfig{Host: "db.internal", Port: 3307, User: "trip", Password: "pw", Name: "trips"}}
	dsn := cfg.DSNValue()
	assert.Contains(t, dsn, "trip:pw@tcp(db.internal:3307)/trips")
	assert.Contains(t, dsn, "parseTime=true")
}
