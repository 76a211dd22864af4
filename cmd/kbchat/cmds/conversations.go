package cmds

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/chatrunner"
	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/navigator"
	"github.com/go-go-golems/kbchat/pkg/render"
	"github.com/go-go-golems/kbchat/pkg/transcript"
)

// ConversationsCommand groups the commands that manage stored conversations.
type ConversationsCommand struct {
	*cobra.Command
	app *App
}

func NewConversationsCommand(app *App) *cobra.Command {
	c := &ConversationsCommand{app: app}
	c.Command = &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "List, show and delete conversations",
	}
	c.AddCommand(c.newListCommand())
	c.AddCommand(c.newShowCommand())
	c.AddCommand(c.newDeleteCommand())
	return c.Command
}

func (c *ConversationsCommand) newListCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.app.NewClient()
			if err != nil {
				return err
			}
			convs, err := client.ListConversations(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "list conversations")
			}
			return writeConversations(cmd.OutOrStdout(), convs, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func writeConversations(w io.Writer, convs []api.Conversation, output string) error {
	switch output {
	case "json":
		return writeJSON(w, convs)
	case "yaml":
		return writeYAML(w, convs)
	case "table":
		if len(convs) == 0 {
			_, err := fmt.Fprintln(w, "no conversations")
			return err
		}
		rows := make([][]string, 0, len(convs))
		for _, conv := range convs {
			rows = append(rows, []string{conv.ID.String(), conv.Title, conv.CreatedAt, oneLine(conv.Preview, 48)})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "TITLE", "CREATED", "PREVIEW").
			Rows(rows...)
		_, err := fmt.Fprintln(w, t.Render())
		return err
	default:
		return errors.Errorf("unknown output format %q", output)
	}
}

func (c *ConversationsCommand) newShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id|url>",
		Short: "Show the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := navigator.ParseTarget(args[0])
			if err != nil {
				return err
			}
			client, err := c.app.NewClient()
			if err != nil {
				return err
			}
			detail, err := client.GetConversation(cmd.Context(), id)
			if err != nil {
				return errors.Wrapf(err, "load conversation %s", id)
			}
			return writeConversation(cmd.OutOrStdout(), detail, format, c.app.Config)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format (markdown, html, json, yaml)")
	return cmd
}

func writeConversation(w io.Writer, detail *api.ConversationDetail, format string, cfg *config.Config) error {
	switch format {
	case "json":
		return writeJSON(w, detail)
	case "yaml":
		return writeYAML(w, detail)
	case "html":
		r := render.NewRenderer(transcript.NewContainer(), render.NewBannerBoard(), cfg)
		nodes := make([]transcript.Node, 0, len(detail.Messages))
		for _, m := range detail.Messages {
			nodes = append(nodes, r.NodeFor(turnOf(m)))
		}
		doc, err := render.Document(titleOf(detail, cfg), nodes, cfg.Chat)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, doc)
		return err
	case "markdown":
		md := conversationMarkdown(detail, cfg)
		out, err := renderMarkdown(w, md)
		if err != nil {
			log.Debug().Err(err).Msg("printing raw markdown")
			out = md
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return errors.Errorf("unknown format %q", format)
	}
}

func conversationMarkdown(detail *api.ConversationDetail, cfg *config.Config) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", titleOf(detail, cfg))
	if len(detail.Messages) == 0 {
		sb.WriteString("_No messages yet._\n")
	}
	for _, m := range detail.Messages {
		turn := turnOf(m)
		if turn.Role == transcript.RoleUser {
			sb.WriteString("**You**")
		} else {
			sb.WriteString("**Assistant**")
		}
		if m.Timestamp != "" {
			fmt.Fprintf(&sb, " _%s_", m.Timestamp)
		}
		sb.WriteString("\n\n")
		if turn.Role == transcript.RoleUser {
			// user text is shown as typed
			for _, line := range strings.Split(turn.Content, "\n") {
				sb.WriteString("> " + line + "\n")
			}
		} else {
			sb.WriteString(turn.Content + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderMarkdown styles md for a terminal, or with the plain style when w is
// not one.
func renderMarkdown(w io.Writer, md string) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(terminalWidthOr(100)))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func (c *ConversationsCommand) newDeleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id|url>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := navigator.ParseTarget(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := chatrunner.Confirm(
					stdio{Reader: cmd.InOrStdin(), Writer: cmd.ErrOrStderr()},
					fmt.Sprintf("Delete conversation %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
					return err
				}
			}

			client, err := c.app.NewClient()
			if err != nil {
				return err
			}
			if err := client.DeleteConversation(cmd.Context(), id); err != nil {
				return errors.Wrapf(err, "delete conversation %s", id)
			}
			log.Info().Str("conversation_id", id.String()).Msg("conversation deleted")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

type stdio struct {
	io.Reader
	io.Writer
}

func turnOf(m api.Message) transcript.Turn {
	role := transcript.RoleAssistant
	if m.Role == string(transcript.RoleUser) {
		role = transcript.RoleUser
	}
	return transcript.Turn{Role: role, Content: m.Content}
}

func titleOf(detail *api.ConversationDetail, cfg *config.Config) string {
	if strings.TrimSpace(detail.Title) == "" {
		return cfg.Chat.DefaultTitle
	}
	return detail.Title
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func terminalWidthOr(fallback int) int {
	if w := terminalWidth(); w > 0 {
		return w
	}
	return fallback
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode json")
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return enc.Close()
}
