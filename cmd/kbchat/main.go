package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/kbchat/cmd/kbchat/cmds"
)

func main() {
	app := cmds.NewApp()

	rootCmd := &cobra.Command{
		Use:   "kbchat",
		Short: "kbchat is a terminal client for the knowledge-base assistant",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// reinitialize the logger because we can now parse --log-level and co
			// from the command line flags and the config file
			return app.Load(cmd)
		},
		SilenceUsage: true,
	}

	err := app.AddPersistentFlags(rootCmd)
	cobra.CheckErr(err)

	rootCmd.AddCommand(
		cmds.NewChatCommand(app),
		cmds.NewSendCommand(app),
		cmds.NewConversationsCommand(app),
		cmds.NewConfigCommand(app),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
