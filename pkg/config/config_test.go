package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, "New Conversation", cfg.Chat.DefaultTitle)
	require.Equal(t, "csrftoken", cfg.Token.CookieName)
	require.Equal(t, "X-CSRFToken", cfg.Token.Header)
	require.Equal(t, "typingIndicator", cfg.Chat.TypingID)
	require.Equal(t, 5*time.Second, cfg.Banner.Visible)
	require.Equal(t, 300*time.Millisecond, cfg.Banner.Fade)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kbchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base-url: http://kb.example.com
chat:
  default-title: Research
banner:
  visible: 2s
input:
  max-lines: 4
`), 0o600))
	t.Setenv("KBCHAT_REDIS_ENABLED", "true")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, "http://kb.example.com", cfg.BaseURL)
	require.Equal(t, "Research", cfg.Chat.DefaultTitle)
	require.Equal(t, 2*time.Second, cfg.Banner.Visible)
	require.Equal(t, 4, cfg.Input.MaxLines)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "typingIndicator", cfg.Chat.TypingID)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Input.MaxLines = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.BaseURL = " "
	require.Error(t, cfg.Validate())
}
