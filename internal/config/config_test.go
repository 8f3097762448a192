package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
	assert.Equal(t, "gemini-2.5-pro", cfg.Providers.Gemini.ProModel)
	assert.Equal(t, "gemini-2.0-flash", cfg.Providers.Gemini.FlashModel)
	assert.Equal(t, 3, cfg.Conversation.MaxClarifications)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())
	assert.Equal(t, time.Hour, cfg.SessionTimeout())
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileBytes)
	assert.NotEmpty(t, cfg.Upload.GeneratedDir)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
addr = ":9090"

[conversation]
max_clarifications = 5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Conversation.MaxClarifications)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8, cfg.Conversation.HistoryBudget)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[conversation]
max_clarifications = 0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid))
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Server.Addr = ":7070"
	cfg.Routing.MaxTokens = 2000
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", got.Server.Addr)
	assert.Equal(t, 2000, got.Routing.MaxTokens)
}
