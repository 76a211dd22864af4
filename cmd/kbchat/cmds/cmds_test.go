package cmds

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/config"
)

var detail = &api.ConversationDetail{
	ID:    "4",
	Title: "Tides",
	Messages: []api.Message{
		{Role: "user", Content: "why <b>tides</b>?"},
		{Role: "assistant", Content: "Because of the **moon**."},
	},
}

func TestWriteConversationsFormats(t *testing.T) {
	convs := []api.Conversation{
		{ID: "4", Title: "Tides", CreatedAt: "2024-05-01", Preview: "why\ntides?"},
		{ID: "2", Title: "Stars"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeConversations(&buf, convs, "table"))
	require.Contains(t, buf.String(), "TITLE")
	require.Contains(t, buf.String(), "Tides")
	require.Contains(t, buf.String(), "why tides?")

	buf.Reset()
	require.NoError(t, writeConversations(&buf, convs, "json"))
	require.Contains(t, buf.String(), `"id": "4"`)
	require.Contains(t, buf.String(), `"created_at": "2024-05-01"`)

	buf.Reset()
	require.NoError(t, writeConversations(&buf, convs, "yaml"))
	require.Contains(t, buf.String(), `- id: "4"`)
	require.Contains(t, buf.String(), "title: Stars")

	buf.Reset()
	require.NoError(t, writeConversations(&buf, nil, "table"))
	require.Equal(t, "no conversations\n", buf.String())

	require.Error(t, writeConversations(&buf, convs, "xml"))
}

func TestWriteConversationHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConversation(&buf, detail, "html", config.Default()))
	out := buf.String()
	require.Contains(t, out, "<title>Tides</title>")
	require.Contains(t, out, "why &lt;b&gt;tides&lt;/b&gt;?")
	require.Contains(t, out, "<strong>moon</strong>")
	require.Contains(t, out, "/static/images/ai.webp")
}

func TestWriteConversationMarkdown(t *testing.T) {
	md := conversationMarkdown(detail, config.Default())
	require.Contains(t, md, "# Tides\n")
	require.Contains(t, md, "> why <b>tides</b>?\n")
	require.Contains(t, md, "Because of the **moon**.\n")

	empty := conversationMarkdown(&api.ConversationDetail{ID: "9"}, config.Default())
	require.Contains(t, empty, "# New Conversation\n")
	require.Contains(t, empty, "_No messages yet._")

	var buf bytes.Buffer
	require.NoError(t, writeConversation(&buf, detail, "markdown", config.Default()))
	require.Contains(t, buf.String(), "Tides")
	require.Contains(t, buf.String(), "moon")
}

func TestOneLine(t *testing.T) {
	require.Equal(t, "a b c", oneLine(" a\n b\tc ", 10))
	require.Equal(t, "abcd…", oneLine("abcdefgh", 5))
}

func TestInitLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, InitLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf))
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	require.Error(t, InitLogger(config.LoggingConfig{Level: "debug", Format: "xml"}, &buf))
	require.Error(t, InitLogger(config.LoggingConfig{Level: "loud", Format: "json"}, &buf))

	path := filepath.Join(t.TempDir(), "kbchat.log")
	got, err := InitFileLogger(config.LoggingConfig{Level: "warn", File: path})
	require.NoError(t, err)
	require.Equal(t, path, got)
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestAppFlagsAndClient(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var gotToken string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-CSRFToken")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	defer ts.Close()

	app := NewApp()
	root := &cobra.Command{Use: "kbchat", RunE: func(*cobra.Command, []string) error { return nil }}
	require.NoError(t, app.AddPersistentFlags(root))
	require.NoError(t, root.ParseFlags([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--base-url", ts.URL,
		"--cookie", "sessionid=s; csrftoken=tok%2B1",
	}))

	// an explicit config path must exist
	require.Error(t, app.Load(root))

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("chat:\n  default-title: Fresh\nlogging:\n  level: error\n"), 0o600))
	require.NoError(t, root.ParseFlags([]string{"--config", cfgPath}))
	require.NoError(t, app.Load(root))
	require.Equal(t, ts.URL, app.Config.BaseURL)
	require.Equal(t, "Fresh", app.Config.Chat.DefaultTitle)
	require.Equal(t, "error", app.Config.Logging.Level)

	client, err := app.NewClient()
	require.NoError(t, err)
	conv, err := client.CreateConversation(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, api.ConversationID("1"), conv.ID)
	require.Equal(t, "tok+1", gotToken)
}
