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
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "secret",
		"database": {"dsn": "file:markport.db"},
		"dedup": {"strip_www": true}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.LogConfig.Level)
	assert.Equal(t, DefaultChunkSize, cfg.Import.ChunkSize)
	assert.Equal(t, DefaultMaxOpsPerWrite, cfg.Import.MaxOpsPerWrite)
	assert.Equal(t, DefaultBulkConcurrency, cfg.Import.BulkConcurrency)
	assert.Equal(t, DefaultCleanupCron, cfg.Import.CleanupCron)
	assert.Equal(t, int64(DefaultMaxUploadSize), cfg.Import.MaxUploadSize)
	assert.Equal(t, "app.markport.tag", cfg.Remote.TagCollection)
	assert.True(t, cfg.Dedup.StripWWW)
	assert.False(t, cfg.Dedup.StripTrailingSlash)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing secret", content: `{"port": 1, "database": {"dsn": "x"}}`},
		{name: "missing port", content: `{"jwt_secret": "s", "database": {"dsn": "x"}}`},
		{name: "unknown driver", content: `{"port": 1, "jwt_secret": "s", "database": {"driver": "mysql"}}`},
		{name: "postgres without host", content: `{"port": 1, "jwt_secret": "s", "database": {"driver": "postgres"}}`},
		{name: "bad cron", content: `{"port": 1, "jwt_secret": "s", "database": {"dsn": "x"}, "import": {"cleanup_cron": "nope"}}`},
		{name: "tiny write cap", content: `{"port": 1, "jwt_secret": "s", "database": {"dsn": "x"}, "import": {"max_ops_per_write": 1}}`},
		{name: "bad archive", content: `{"port": 1, "jwt_secret": "s", "database": {"dsn": "x"}, "archive": {"type": "ftp"}}`},
		{name: "broken json", content: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}
