package cmds

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/chatrunner"
	"github.com/go-go-golems/kbchat/pkg/navigator"
)

func NewChatCommand(app *App) *cobra.Command {
	var (
		target       string
		resumeLatest bool
		plain        bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant",
		Long: "Open the chat. On a terminal this starts the full-screen UI; " +
			"otherwise, or with --plain, messages are read from stdin one per line. " +
			"In line mode /new starts a new conversation, /open <id> opens one, " +
			"/list shows the history and /quit exits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOptionalTarget(target)
			if err != nil {
				return err
			}
			client, err := app.NewClient()
			if err != nil {
				return err
			}

			mode := chatrunner.RunModeLine
			if !plain && chatrunner.IsInteractive() {
				mode = chatrunner.RunModeChat
				path, err := InitFileLogger(app.Config.Logging)
				if err != nil {
					return err
				}
				log.Debug().Str("log_file", path).Msg("logging to file while the UI runs")
			}

			builder := chatrunner.NewChatBuilder().
				WithContext(cmd.Context()).
				WithConfig(app.Config).
				WithClient(client).
				WithMode(mode).
				WithConversation(id).
				WithResumeLatest(resumeLatest).
				WithInputReader(cmd.InOrStdin()).
				WithOutputWriter(cmd.OutOrStdout()).
				WithWidth(terminalWidth())

			session, err := builder.Build()
			if err != nil {
				return err
			}
			return session.Run()
		},
	}

	cmd.Flags().StringVar(&target, "conversation", "", "Conversation id or chat page URL to open")
	cmd.Flags().BoolVar(&resumeLatest, "resume-latest", false, "Open the most recent conversation")
	cmd.Flags().BoolVar(&plain, "plain", false, "Use line mode even on a terminal")
	return cmd
}

func parseOptionalTarget(target string) (api.ConversationID, error) {
	if target == "" {
		return "", nil
	}
	id, err := navigator.ParseTarget(target)
	if err != nil {
		return "", errors.Wrap(err, "invalid --conversation")
	}
	return id, nil
}

// terminalWidth is the stdout width, or zero when stdout is not a terminal.
func terminalWidth() int {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(int(fd))
	if err != nil {
		return 0
	}
	return width
}
