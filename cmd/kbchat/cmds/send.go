package cmds

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/kbchat/pkg/chatrunner"
)

func NewSendCommand(app *App) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send one message and print the reply",
		Long: "Send one message and print the assistant's reply on stdout. " +
			"Without arguments the message is read from stdin. A new conversation " +
			"is created unless --conversation is given; its URL is printed on stderr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOptionalTarget(target)
			if err != nil {
				return err
			}

			message := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read message from stdin")
				}
				message = string(b)
			}

			client, err := app.NewClient()
			if err != nil {
				return err
			}

			session, err := chatrunner.NewChatBuilder().
				WithContext(cmd.Context()).
				WithConfig(app.Config).
				WithClient(client).
				WithMode(chatrunner.RunModeBlocking).
				WithConversation(id).
				WithMessage(message).
				WithOutputWriter(cmd.OutOrStdout()).
				WithErrorWriter(cmd.ErrOrStderr()).
				Build()
			if err != nil {
				return err
			}
			return session.Run()
		},
	}

	cmd.Flags().StringVar(&target, "conversation", "", "Conversation id or chat page URL to send to")
	return cmd
}
